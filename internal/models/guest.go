package models

import "time"

// Guest is a time-boxed visitor registered at a site.
type Guest struct {
	ID        int64
	SiteID    int64
	Name      string
	Contact   *string
	ExpiresAt time.Time
	FolderKey *string
	CreatedAt time.Time
}

// IsExpired returns true once the guest's access window has closed.
func (g *Guest) IsExpired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}
