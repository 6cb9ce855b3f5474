package models

import "time"

// Organization is the top level tenant. It owns sites and users directly.
type Organization struct {
	ID        int64
	Name      string // unique process-wide
	CreatedAt time.Time
}

// Site belongs to exactly one organization and owns cameras, agents and guests.
type Site struct {
	ID        int64
	OrgID     int64
	Name      string // unique within the organization
	CreatedAt time.Time
}
