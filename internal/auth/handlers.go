package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/skillgauge/assessment-platform/pkg/http/errors"
)

const oauthStateCookie = "oauth_state"

// HTTPHandlers exposes authentication endpoints.
type HTTPHandlers struct {
	svc    *Service
	oauth  *OAuthService
	logger zerolog.Logger
}

// NewHTTPHandlers creates the auth handler set. oauth may be nil when Google
// login is not configured.
func NewHTTPHandlers(svc *Service, oauth *OAuthService, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		oauth:  oauth,
		logger: logger.With().Str("component", "auth_handlers").Logger(),
	}
}

// Register handles POST /v1/auth/register.
func (h *HTTPHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Email and password are required", "email")
		return
	}

	user, tokens, err := h.svc.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyExists, "Email already registered")
		case errors.Is(err, ErrPasswordTooShort):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Password must be at least 8 characters", "password")
		default:
			h.logger.Error().Err(err).Msg("registration failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeRegistrationFailed, "Registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// Login handles POST /v1/auth/login.
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	user, tokens, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid email or password")
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeLoginFailed, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// Refresh handles POST /v1/auth/refresh.
func (h *HTTPHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Refresh token is required")
		return
	}

	tokens, err := h.svc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeRefreshFailed, "Invalid or expired refresh token")
		return
	}

	respondJSON(w, http.StatusOK, tokens)
}

// GetMe handles GET /v1/users/me.
func (h *HTTPHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := RequireClaims(w, r)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// OAuthStart handles GET /v1/auth/google. It sets a state cookie and
// redirects to the Google consent screen.
func (h *HTTPHandlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		httperrors.RespondError(w, http.StatusNotImplemented, httperrors.ErrCodeOAuthNotConfigured, "Google login is not configured")
		return
	}

	state, err := h.oauth.GenerateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth state generation failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeOAuthStartFailed, "Could not start Google login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallback handles GET /v1/auth/google/callback.
func (h *HTTPHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		httperrors.RespondError(w, http.StatusNotImplemented, httperrors.ErrCodeOAuthNotConfigured, "Google login is not configured")
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthInvalidState, "OAuth state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthMissingCode, "Missing authorization code")
		return
	}

	identity, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth exchange failed")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeOAuthCallbackFailed, "Google login failed")
		return
	}

	user, tokens, err := h.svc.LoginOAuth(r.Context(), identity.Email, identity.Name)
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth login failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeOAuthCallbackFailed, "Google login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
