package server

import (
	"time"

	"github.com/wolfeidau/hostelsec/internal/models"
)

type organizationView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func newOrganizationView(o *models.Organization) organizationView {
	return organizationView{ID: o.ID, Name: o.Name, CreatedAt: o.CreatedAt}
}

type siteView struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func newSiteView(s *models.Site) siteView {
	return siteView{ID: s.ID, OrgID: s.OrgID, Name: s.Name, CreatedAt: s.CreatedAt}
}

type userView struct {
	ID       int64       `json:"id"`
	OrgID    int64       `json:"org_id"`
	SiteID   *int64      `json:"site_id"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:       u.ID,
		OrgID:    u.OrgID,
		SiteID:   u.SiteID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// meView reports the site from the claim scope, not the stored assignment.
type meView struct {
	ID     int64       `json:"id"`
	OrgID  int64       `json:"org_id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	SiteID *int64      `json:"site_id"`
}

type cameraView struct {
	ID        int64             `json:"id"`
	SiteID    int64             `json:"site_id"`
	Name      string            `json:"name"`
	Role      models.CameraRole `json:"role"`
	StreamURL *string           `json:"stream_url"`
	Enabled   bool              `json:"enabled"`
	CreatedAt time.Time         `json:"created_at"`
}

func newCameraView(c *models.Camera) cameraView {
	return cameraView{
		ID:        c.ID,
		SiteID:    c.SiteID,
		Name:      c.Name,
		Role:      c.Role,
		StreamURL: c.StreamURL,
		Enabled:   c.Enabled,
		CreatedAt: c.CreatedAt,
	}
}

func newCameraViews(cameras []*models.Camera) []cameraView {
	views := make([]cameraView, 0, len(cameras))
	for _, c := range cameras {
		views = append(views, newCameraView(c))
	}
	return views
}

type guestView struct {
	ID        int64     `json:"id"`
	SiteID    int64     `json:"site_id"`
	Name      string    `json:"name"`
	Contact   *string   `json:"contact"`
	ExpiresAt time.Time `json:"expires_at"`
	FolderKey *string   `json:"folder_key"`
	CreatedAt time.Time `json:"created_at"`
}

func newGuestView(g *models.Guest) guestView {
	return guestView{
		ID:        g.ID,
		SiteID:    g.SiteID,
		Name:      g.Name,
		Contact:   g.Contact,
		ExpiresAt: g.ExpiresAt,
		FolderKey: g.FolderKey,
		CreatedAt: g.CreatedAt,
	}
}

type evidenceView struct {
	ID              int64     `json:"id"`
	EventID         int64     `json:"event_id"`
	ImageKey        string    `json:"image_key"`
	ThumbKey        *string   `json:"thumb_key"`
	AnnotationsJSON *string   `json:"annotations_json"`
	CreatedAt       time.Time `json:"created_at"`
}

func newEvidenceView(e *models.Evidence) evidenceView {
	return evidenceView{
		ID:              e.ID,
		EventID:         e.EventID,
		ImageKey:        e.ImageKey,
		ThumbKey:        e.ThumbKey,
		AnnotationsJSON: e.AnnotationsJSON,
		CreatedAt:       e.CreatedAt,
	}
}

type agentCreatedView struct {
	ID      int64   `json:"id"`
	SiteID  int64   `json:"site_id"`
	Name    string  `json:"name"`
	Version *string `json:"version"`
	APIKey  string  `json:"api_key"`
}

// agentEventView is the ingest acknowledgement returned to an agent.
type agentEventView struct {
	ID          int64              `json:"id"`
	CameraID    int64              `json:"camera_id"`
	Timestamp   time.Time          `json:"ts"`
	Type        string             `json:"type"`
	PersonName  *string            `json:"person_name"`
	Similarity  *float64           `json:"similarity"`
	Status      models.EventStatus `json:"status"`
	EvidenceKey *string            `json:"evidence_key,omitempty"`
}
