package models

import "time"

// Agent is an edge device bound to a single site. Only the hash of its API key is kept.
type Agent struct {
	ID         int64
	SiteID     int64
	Name       string
	Version    *string
	APIKeyHash *string
	LastSeen   *time.Time
	CreatedAt  time.Time
}

// HasKey reports whether the agent can authenticate at all.
func (a *Agent) HasKey() bool {
	return a.APIKeyHash != nil && *a.APIKeyHash != ""
}
