package store

import (
	"errors"
)

// Sentinel errors shared by every store implementation.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidReference = errors.New("referenced entity does not exist")
	ErrInvalidValue     = errors.New("value rejected by store constraint")
	ErrUnavailable      = errors.New("store temporarily unavailable")
)

// Stores bundles every entity store used by the service.
type Stores struct {
	Organizations OrganizationStore
	Sites         SiteStore
	Users         UserStore
	Agents        AgentStore
	Cameras       CameraStore
	Events        EventStore
	Evidence      EvidenceStore
	Guests        GuestStore
}
