package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

type createCameraRequest struct {
	SiteID    int64   `json:"site_id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	StreamURL *string `json:"stream_url"`
	Enabled   *bool   `json:"enabled"`
}

type updateCameraRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleCreateCamera(w http.ResponseWriter, r *http.Request) {
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

	var req createCameraRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateName("name", req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := models.ParseCameraRole(req.Role)
	if err != nil {
		writeError(w, r, apperr.Invalid("role must be one of entry, exit"))
		return
	}

	camera := &models.Camera{
		SiteID:    req.SiteID,
		Name:      req.Name,
		Role:      role,
		StreamURL: req.StreamURL,
		Enabled:   req.Enabled == nil || *req.Enabled,
	}
	if err := s.stores.Cameras.Create(ctx, camera); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidReference):
			writeError(w, r, apperr.Invalid("Invalid site_id"))
		case errors.Is(err, store.ErrAlreadyExists):
			writeError(w, r, apperr.Conflict("Camera already exists"))
		default:
			writeError(w, r, err)
		}
		return
	}

	zerolog.Ctx(ctx).Info().Int64("camera_id", camera.ID).Int64("site_id", camera.SiteID).Msg("camera created")
	writeJSON(w, http.StatusOK, newCameraView(camera))
}

// handleListCameras narrows guards to their own site. Other roles may filter
// with site_id.
func (s *Server) handleListCameras(w http.ResponseWriter, r *http.Request) {
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

	visible := auth.VisibleSites(p)
	if visible.Empty {
		writeJSON(w, http.StatusOK, []cameraView{})
		return
	}

	siteID := visible.SiteID
	if siteID == nil {
		if siteID, err = queryInt64(r, "site_id"); err != nil {
			writeError(w, r, err)
			return
		}
	}

	cameras, err := s.stores.Cameras.List(ctx, siteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCameraViews(cameras))
}

func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	camera, ok := s.cameraFromPath(w, r, auth.AnyRole)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCameraView(camera))
}

func (s *Server) handleUpdateCamera(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	camera, ok := s.cameraFromPath(w, r, auth.OrgStaff)
	if !ok {
		return
	}

	var req updateCameraRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, r, apperr.Invalid("enabled is required"))
		return
	}

	updated, err := s.stores.Cameras.SetEnabled(ctx, camera.ID, *req.Enabled)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.NotFound("camera")
		}
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().Int64("camera_id", updated.ID).Bool("enabled", updated.Enabled).Msg("camera updated")
	writeJSON(w, http.StatusOK, newCameraView(updated))
}

// cameraFromPath loads the {id} camera and runs the site gate for required.
func (s *Server) cameraFromPath(w http.ResponseWriter, r *http.Request, required auth.RoleSet) (*models.Camera, bool) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	cameraID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	camera, err := s.stores.Cameras.Get(ctx, cameraID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.NotFound("camera")
		}
		writeError(w, r, err)
		return nil, false
	}

	if err := auth.Require(ctx, p, required, &camera.SiteID); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return camera, true
}
