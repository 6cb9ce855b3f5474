package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

type createSiteRequest struct {
	OrgID int64  `json:"org_id"`
	Name  string `json:"name"`
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := auth.Require(ctx, p, auth.OrgStaff, nil); err != nil {
		writeError(w, r, err)
		return
	}

	var req createSiteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateName("name", req.Name); err != nil {
		writeError(w, r, err)
		return
	}

	site := &models.Site{OrgID: req.OrgID, Name: req.Name}
	if err := s.stores.Sites.Create(ctx, site); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidReference):
			writeError(w, r, apperr.Invalid("Invalid org_id"))
		case errors.Is(err, store.ErrAlreadyExists):
			writeError(w, r, apperr.Conflict("Site already exists"))
		default:
			writeError(w, r, err)
		}
		return
	}

	zerolog.Ctx(ctx).Info().Int64("site_id", site.ID).Int64("org_id", site.OrgID).Msg("site created")
	writeJSON(w, http.StatusOK, newSiteView(site))
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := auth.Require(ctx, p, auth.AnyRole, nil); err != nil {
		writeError(w, r, err)
		return
	}

	views := []siteView{}
	visible := auth.VisibleSites(p)
	if visible.Empty {
		writeJSON(w, http.StatusOK, views)
		return
	}

	sites, err := s.stores.Sites.List(ctx, store.SiteFilter{SiteID: visible.SiteID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, site := range sites {
		views = append(views, newSiteView(site))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, _, ok := s.siteFromPath(w, r, auth.AnyRole)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSiteView(site))
}

// siteFromPath loads the {id} site and runs the site gate for required.
func (s *Server) siteFromPath(w http.ResponseWriter, r *http.Request, required auth.RoleSet) (*models.Site, auth.Principal, bool) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return nil, p, false
	}

	siteID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return nil, p, false
	}

	site, err := s.stores.Sites.Get(ctx, siteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.NotFound("site")
		}
		writeError(w, r, err)
		return nil, p, false
	}

	if err := auth.Require(ctx, p, required, &site.ID); err != nil {
		writeError(w, r, err)
		return nil, p, false
	}
	return site, p, true
}

type createGuestRequest struct {
	Name      string     `json:"name"`
	Contact   *string    `json:"contact"`
	ExpiresAt *time.Time `json:"expires_at"`
	FolderKey *string    `json:"folder_key"`
}

func (s *Server) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	site, p, ok := s.siteFromPath(w, r, auth.OrgStaff)
	if !ok {
		return
	}

	var req createGuestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateName("name", req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	now := s.now().UTC()
	if req.ExpiresAt == nil || !req.ExpiresAt.After(now) {
		writeError(w, r, apperr.Invalid("expires_at must be in the future"))
		return
	}

	guest := &models.Guest{
		SiteID:    site.ID,
		Name:      req.Name,
		Contact:   req.Contact,
		ExpiresAt: req.ExpiresAt.UTC(),
		FolderKey: req.FolderKey,
		CreatedAt: now,
	}
	if err := s.stores.Guests.Create(ctx, guest); err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().
		Int64("guest_id", guest.ID).
		Int64("site_id", site.ID).
		Int64("created_by", p.UserID).
		Msg("guest registered")
	writeJSON(w, http.StatusOK, newGuestView(guest))
}

func (s *Server) handleListGuests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	site, _, ok := s.siteFromPath(w, r, auth.AnyRole)
	if !ok {
		return
	}

	active, err := queryBool(r, "active")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var activeAt *time.Time
	if active {
		now := s.now().UTC()
		activeAt = &now
	}

	guests, err := s.stores.Guests.ListBySite(ctx, site.ID, activeAt)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]guestView, 0, len(guests))
	for _, g := range guests {
		views = append(views, newGuestView(g))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteGuest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	guestID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	guest, err := s.stores.Guests.Get(ctx, guestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.NotFound("guest")
		}
		writeError(w, r, err)
		return
	}
	if err := auth.Require(ctx, p, auth.OrgStaff, &guest.SiteID); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.stores.Guests.Delete(ctx, guest.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().Int64("guest_id", guest.ID).Int64("deleted_by", p.UserID).Msg("guest removed")
	w.WriteHeader(http.StatusNoContent)
}
