package server

import (
	"errors"
	"net/http"
	"net/mail"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

type createUserRequest struct {
	OrgID    int64  `json:"org_id"`
	SiteID   *int64 `json:"site_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (req *createUserRequest) validate() (models.Role, error) {
	if err := validateName("name", req.Name); err != nil {
		return "", err
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "", apperr.Invalid("invalid email")
	}
	if len(req.Password) < 4 || len(req.Password) > 128 {
		return "", apperr.Invalid("password must be between 4 and 128 characters")
	}
	if req.Role == "" {
		return models.RoleGuard, nil
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return "", apperr.Invalid("role must be one of ADMIN, SUPERVISOR, GUARD")
	}
	return role, nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
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

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := req.validate()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.stores.Organizations.Get(ctx, req.OrgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, apperr.Invalid("Invalid org_id"))
			return
		}
		writeError(w, r, err)
		return
	}
	if req.SiteID != nil {
		site, err := s.stores.Sites.Get(ctx, *req.SiteID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		if site == nil || site.OrgID != req.OrgID {
			writeError(w, r, apperr.Invalid("Invalid site_id"))
			return
		}
	}

	hash, err := s.opts.Hasher.Hash(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := &models.User{
		OrgID:        req.OrgID,
		SiteID:       req.SiteID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.stores.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, r, apperr.Conflict("User already exists"))
			return
		}
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().
		Int64("user_id", user.ID).
		Str("role", string(user.Role)).
		Int64("created_by", p.UserID).
		Msg("user created")
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
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

	users, err := s.stores.Users.List(ctx, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	writeJSON(w, http.StatusOK, views)
}
