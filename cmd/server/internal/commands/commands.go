package commands

import (
	"net/http"
	"time"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		// zero so websocket streams are not cut off; frame writes carry their own deadline
		WriteTimeout:   0,
		IdleTimeout:    5 * time.Minute,
		MaxHeaderBytes: 8 * 1024, // 8KiB
	}
}
