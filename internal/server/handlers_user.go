package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// requireFreshLogin returns the authenticated user context when the
// session's auth_time is within the configured reauth window. Sensitive
// account changes on an older session are rejected so a stolen token
// cannot silently take over the account.
func (s *Server) requireFreshLogin(w http.ResponseWriter, r *http.Request) *common.UserContext {
	uc := common.UserContextFromContext(r.Context())
	if uc == nil {
		writeBearerChallenge(w, "bearer token required")
		return nil
	}
	if time.Since(uc.AuthTime) > s.app.Config.Auth.GetReauthWindow() {
		writeServiceError(w, models.ErrStaleCredential)
		return nil
	}
	return uc
}

// handleChangeEmail handles PUT /api/users/me/email.
func (s *Server) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	uc := s.requireFreshLogin(w, r)
	if uc == nil {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		WriteError(w, http.StatusBadRequest, "a valid email address is required")
		return
	}

	ctx := r.Context()
	store := s.app.Storage.UserStore()

	if existing, err := store.GetUserByEmail(ctx, email); err == nil && existing != nil && existing.UserID != uc.UserID {
		WriteErrorWithCode(w, http.StatusConflict, "an account with this email already exists", "email_taken")
		return
	}

	user, err := store.GetUser(ctx, uc.UserID)
	if err != nil || user == nil {
		WriteError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	user.Email = email
	user.ModifiedAt = time.Now().UTC()
	if err := store.SaveUser(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to update email")
		WriteError(w, http.StatusInternalServerError, "failed to update email")
		return
	}

	s.logger.Info().Str("user_id", user.UserID).Msg("Email updated")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"user":   userResponse(user),
	})
}

// handleChangePassword handles PUT /api/users/me/password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	uc := s.requireFreshLogin(w, r)
	if uc == nil {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if len(req.Password) < 6 {
		WriteError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	ctx := r.Context()
	store := s.app.Storage.UserStore()

	user, err := store.GetUser(ctx, uc.UserID)
	if err != nil || user == nil {
		WriteError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	// Accounts created through Google have no password to change
	if user.Provider != "password" {
		WriteError(w, http.StatusBadRequest, "this account does not use a password")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user.PasswordHash = hash
	user.ModifiedAt = time.Now().UTC()
	if err := store.SaveUser(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to update password")
		WriteError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	s.logger.Info().Str("user_id", user.UserID).Msg("Password updated")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
