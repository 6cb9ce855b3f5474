package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/cors"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/events"
	httpmiddleware "github.com/wolfeidau/hostelsec/internal/http"
	"github.com/wolfeidau/hostelsec/internal/ingest"
	"github.com/wolfeidau/hostelsec/internal/logger"
	"github.com/wolfeidau/hostelsec/internal/realtime"
	"github.com/wolfeidau/hostelsec/internal/server"
	"github.com/wolfeidau/hostelsec/internal/storage"
	"github.com/wolfeidau/hostelsec/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8000" env:"HOSTELSEC_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"HOSTELSEC_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"HOSTELSEC_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"*" env:"HOSTELSEC_CORS_ORIGINS"`

	// Operational modes
	Tracing          bool          `help:"export traces over OTLP" default:"false" env:"HOSTELSEC_TRACING"`
	TraceSampleRatio float64       `help:"fraction of traces sampled" default:"1" env:"HOSTELSEC_TRACE_SAMPLE_RATIO"`
	Metrics          bool          `help:"export event, ingest and authz metrics over OTLP" default:"false" env:"HOSTELSEC_METRICS"`
	MetricInterval   time.Duration `help:"metric export interval" default:"10s" env:"HOSTELSEC_METRIC_INTERVAL"`
	ShutdownTimeout  time.Duration `help:"grace period for in-flight requests on shutdown" default:"10s"`

	JWT       JWTFlags       `embed:"" prefix:"jwt-"`
	Store     StoreFlags     `embed:""`
	S3        S3Flags        `embed:"" prefix:"s3-"`
	Realtime  RealtimeFlags  `embed:"" prefix:"realtime-"`
	RateLimit RateLimitFlags `embed:"" prefix:"agent-rate-"`
}

// JWTFlags configures token signing and lifetimes.
type JWTFlags struct {
	Secret       string        `help:"HMAC secret for signing tokens" env:"HOSTELSEC_JWT_SECRET"`
	Alg          string        `help:"signing algorithm" default:"HS256" enum:"HS256,HS384,HS512" env:"HOSTELSEC_JWT_ALG"`
	AccessTTL    time.Duration `help:"access token lifetime" default:"30m" env:"HOSTELSEC_ACCESS_TTL"`
	RefreshTTL   time.Duration `help:"refresh token lifetime" default:"168h" env:"HOSTELSEC_REFRESH_TTL"`
	LenientScope bool          `help:"treat an unparsable scope claim as org-wide instead of rejecting the token" default:"false" env:"HOSTELSEC_LENIENT_SCOPE"`
}

func (f *JWTFlags) validate() error {
	if f.Secret == "" {
		return errors.New("JWT secret is required (--jwt-secret or HOSTELSEC_JWT_SECRET)")
	}
	if len(f.Secret) < 32 {
		return errors.New("JWT secret must be at least 32 bytes (256 bits) for HMAC signing")
	}
	if f.AccessTTL <= 0 || f.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// S3Flags configures evidence storage. Storage stays disabled unless the
// endpoint, bucket and both keys are set.
type S3Flags struct {
	Endpoint  string `help:"S3 compatible endpoint URL" env:"S3_ENDPOINT"`
	Region    string `help:"S3 region" default:"us-east-1" env:"S3_REGION"`
	Bucket    string `help:"bucket for evidence images" env:"S3_BUCKET"`
	AccessKey string `help:"S3 access key" env:"S3_ACCESS_KEY"`
	SecretKey string `help:"S3 secret key" env:"S3_SECRET_KEY"`
	Prefix    string `help:"key prefix for evidence objects" default:"evidence" env:"S3_PREFIX"`
	MaxTries  uint   `help:"attempts per upload" default:"3"`
}

func (f *S3Flags) config() storage.S3Config {
	return storage.S3Config{
		Endpoint:  f.Endpoint,
		Region:    f.Region,
		Bucket:    f.Bucket,
		AccessKey: f.AccessKey,
		SecretKey: f.SecretKey,
		Prefix:    f.Prefix,
		MaxTries:  f.MaxTries,
	}
}

// RealtimeFlags configures the broadcaster and websocket observers.
type RealtimeFlags struct {
	DeliveryTimeout time.Duration `help:"maximum time one observer may take to accept a message" default:"5s" env:"HOSTELSEC_DELIVERY_TIMEOUT"`
	BufferSize      int           `help:"messages queued per websocket connection" default:"64" env:"HOSTELSEC_OBSERVER_BUFFER"`
	WriteTimeout    time.Duration `help:"websocket frame write timeout" default:"5s"`
}

// RateLimitFlags configures the ingest limits: per client address before the
// agent key is checked, then per authenticated agent.
type RateLimitFlags struct {
	RPS       float64 `help:"sustained ingest requests per second per agent, 0 disables" default:"10" env:"HOSTELSEC_AGENT_RATE_RPS"`
	Burst     int     `help:"ingest burst per agent" default:"20" env:"HOSTELSEC_AGENT_RATE_BURST"`
	AuthRPS   float64 `help:"sustained ingest attempts per second per client address, 0 disables" default:"50" env:"HOSTELSEC_AGENT_RATE_AUTH_RPS"`
	AuthBurst int     `help:"ingest attempt burst per client address" default:"100" env:"HOSTELSEC_AGENT_RATE_AUTH_BURST"`
}

func (c *ServeCmd) Validate() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS requires both --cert and --key")
	}
	return c.JWT.validate()
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	shutdownTelemetry, err := telemetry.InitTelemetry(ctx, telemetry.Config{
		ServiceName:    "hostelsec",
		Version:        globals.Version,
		Traces:         c.Tracing,
		SampleRatio:    c.TraceSampleRatio,
		Metrics:        c.Metrics,
		MetricInterval: c.MetricInterval,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without export")
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}()

	stores, closeStores, err := c.Store.open(ctx, log)
	if err != nil {
		return err
	}
	defer closeStores()

	objects, err := storage.New(c.S3.config())
	if err != nil {
		return fmt.Errorf("failed to configure object storage: %w", err)
	}
	if _, ok := objects.(storage.Disabled); ok {
		log.Warn().Msg("Object storage not configured, evidence images will be dropped")
	} else {
		log.Info().Str("endpoint", c.S3.Endpoint).Str("bucket", c.S3.Bucket).Msg("Evidence storage enabled")
	}

	signer, err := auth.NewHMACSigner([]byte(c.JWT.Secret), c.JWT.Alg)
	if err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}
	codec := auth.NewCodec(signer, auth.CodecConfig{
		AccessTTL:    c.JWT.AccessTTL,
		RefreshTTL:   c.JWT.RefreshTTL,
		LenientScope: c.JWT.LenientScope,
	})
	if c.JWT.LenientScope {
		log.Warn().Msg("Lenient scope parsing is enabled, malformed scope claims are treated as org-wide")
	}

	hasher := auth.NewBcryptHasher()
	broadcaster := realtime.NewBroadcaster(c.Realtime.DeliveryTimeout)
	engine := events.NewEngine(stores.Events, stores.Cameras, broadcaster)
	gateway := ingest.NewGateway(stores, engine, objects, hasher)

	srv := server.NewServer(server.Options{
		Version:     globals.Version,
		Logger:      log,
		Stores:      stores,
		Codec:       codec,
		Hasher:      hasher,
		Engine:      engine,
		Gateway:     gateway,
		Broadcaster: broadcaster,
		AgentRateLimit: httpmiddleware.RateLimitConfig{
			RequestsPerSecond: c.RateLimit.RPS,
			Burst:             c.RateLimit.Burst,
		},
		AgentAuthRateLimit: httpmiddleware.RateLimitConfig{
			RequestsPerSecond: c.RateLimit.AuthRPS,
			Burst:             c.RateLimit.AuthBurst,
		},
		WebSocket: realtime.WebSocketConfig{
			BufferSize:     c.Realtime.BufferSize,
			WriteTimeout:   c.Realtime.WriteTimeout,
			OriginPatterns: originPatterns(c.CORSOrigins),
		},
	})

	handler := withCORS(c.CORSOrigins, srv.Handler(ctx))
	httpServer := configureHTTPServer(c.Listen, handler)

	if c.Cert != "" {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", c.Listen).Bool("tls", c.Cert != "").Msg("Starting HTTP server")
		var err error
		if c.Cert != "" {
			err = httpServer.ListenAndServeTLS(c.Cert, c.Key)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// withCORS adds CORS support to the API handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Agent-Id", "X-Agent-Key"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: !allowsAny(allowedOrigins),
	})
	return middleware.Handler(h)
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// originPatterns converts CORS origins to websocket host patterns.
func originPatterns(origins []string) []string {
	if allowsAny(origins) {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
