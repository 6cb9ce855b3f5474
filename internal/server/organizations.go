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

type createOrganizationRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := auth.Require(ctx, p, auth.AdminOnly, nil); err != nil {
		writeError(w, r, err)
		return
	}

	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateName("name", req.Name); err != nil {
		writeError(w, r, err)
		return
	}

	org := &models.Organization{Name: req.Name}
	if err := s.stores.Organizations.Create(ctx, org); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, r, apperr.Conflict("Organization already exists"))
			return
		}
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().Int64("org_id", org.ID).Int64("created_by", p.UserID).Msg("organization created")
	writeJSON(w, http.StatusOK, newOrganizationView(org))
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
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

	orgs, err := s.stores.Organizations.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]organizationView, 0, len(orgs))
	for _, o := range orgs {
		views = append(views, newOrganizationView(o))
	}
	writeJSON(w, http.StatusOK, views)
}
