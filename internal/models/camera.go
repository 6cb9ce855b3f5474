package models

import (
	"fmt"
	"time"
)

// CameraRole describes which side of a door a camera watches.
type CameraRole string

const (
	CameraRoleEntry CameraRole = "entry"
	CameraRoleExit  CameraRole = "exit"
)

// ParseCameraRole validates a camera role.
func ParseCameraRole(s string) (CameraRole, error) {
	switch CameraRole(s) {
	case CameraRoleEntry, CameraRoleExit:
		return CameraRole(s), nil
	}
	return "", fmt.Errorf("unknown camera role %q", s)
}

// Camera belongs to a site. Deleting a camera deletes its events.
type Camera struct {
	ID        int64
	SiteID    int64
	Name      string // unique within the site
	Role      CameraRole
	StreamURL *string
	Enabled   bool
	CreatedAt time.Time
}
