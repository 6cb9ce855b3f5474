package server

import (
	"errors"
	"mime"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// parseLogin accepts either a JSON body or an OAuth2 password form where the
// email is sent as username.
func parseLogin(w http.ResponseWriter, r *http.Request) (email, password string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return "", "", err
		}
		email = req.Email
		if email == "" {
			email = req.Username
		}
		return email, req.Password, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	email = r.PostForm.Get("username")
	if email == "" {
		email = r.PostForm.Get("email")
	}
	return email, r.PostForm.Get("password"), nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	email, password, err := parseLogin(w, r)
	if err != nil || email == "" || password == "" {
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		logger.Debug().Msg("login for unknown email")
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive || !s.opts.Hasher.Verify(password, user.PasswordHash) {
		logger.Debug().Int64("user_id", user.ID).Bool("active", user.IsActive).Msg("login rejected")
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := s.codec.IssuePair(user.ID, auth.ScopeForUser(user))
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")
	writeJSON(w, http.StatusOK, pair)
}

// handleRefresh re-issues a pair from the user's current state, so a role or
// site change takes effect on the next refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	decoded, err := s.codec.DecodeAs(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.stores.Users.Get(ctx, decoded.PrincipalID)
	if err != nil || !user.IsActive {
		zerolog.Ctx(ctx).Debug().Err(err).Int64("user_id", decoded.PrincipalID).Msg("refresh rejected")
		auth.WriteUnauthorized(w)
		return
	}

	pair, err := s.codec.IssuePair(user.ID, auth.ScopeForUser(user))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.stores.Users.Get(ctx, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meView{
		ID:     user.ID,
		OrgID:  user.OrgID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		SiteID: p.Scope.SitePtr(),
	})
}
