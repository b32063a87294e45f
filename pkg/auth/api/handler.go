package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/shieldscore/authkit/pkg/apierror"
	"github.com/shieldscore/authkit/pkg/auth"
	"github.com/shieldscore/authkit/pkg/ratelimit"
	"github.com/shieldscore/authkit/pkg/session"
)

// Cookie names for browser clients
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Handler handles the HTTP auth endpoints
type Handler struct {
	service      *auth.AuthService
	limiter      ratelimit.Limiter
	log          *slog.Logger
	secureCookie bool
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithInsecureCookies disables the Secure cookie attribute for local
// development over plain HTTP
func WithInsecureCookies() HandlerOption {
	return func(h *Handler) {
		h.secureCookie = false
	}
}

// WithHandlerLogger sets the handler logger
func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler creates a new auth handler
func NewHandler(service *auth.AuthService, limiter ratelimit.Limiter, options ...HandlerOption) *Handler {
	h := &Handler{
		service:      service,
		limiter:      limiter,
		log:          slog.Default(),
		secureCookie: true,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// RegisterRoutes registers the public auth routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/password/forgot", h.ForgotPassword)
	r.Post("/password/validate-token", h.ValidateResetToken)
	r.Post("/password/reset", h.ResetPassword)
	r.Post("/login", h.Login)
	r.Post("/login/verify", h.VerifyLogin)
	r.Post("/verification/send", h.SendVerificationCode)
	r.Post("/token/refresh", h.RefreshToken)
}

// RegisterProtectedRoutes registers routes that require a valid access token.
// Mount them behind jwtauth.Verifier/Authenticator middleware.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
	r.Post("/sessions/revoke-all", h.RevokeAllSessions)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /auth/password/forgot.
// The response is identical for known and unknown emails.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if !h.allow(w, r, ratelimit.OperationPasswordReset, req.Email) {
		return
	}

	info := clientInfo(r)
	// Unknown emails come back as nil from the service, so an error here is
	// a genuine internal failure, not an account-existence signal
	if err := h.service.InitPasswordReset(r.Context(), req.Email, info); err != nil {
		h.internalError(w, "Failed to initiate password reset", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "If an account exists for that email, a reset link has been sent",
	})
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateResetToken handles POST /auth/password/validate-token
func (h *Handler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Token == "" {
		h.respondError(w, http.StatusBadRequest, "Token is required")
		return
	}

	if err := h.service.ValidateResetToken(r.Context(), req.Token); err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   "Invalid or expired token",
			})
			return
		}
		h.internalError(w, "Failed to validate reset token", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword handles POST /auth/password/reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Token == "" || req.NewPassword == "" {
		h.respondError(w, http.StatusBadRequest, "Token and new password are required")
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword, clientInfo(r))
	if err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   "Invalid or expired token",
			})
			return
		}
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) && apiErr.Code == apierror.ErrCodePasswordComplexity {
			h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   apiErr.Message,
				"errors":  apiErr.Details["errors"],
			})
			return
		}
		h.internalError(w, "Failed to reset password", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password has been reset",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"user_id"`
}

// Login handles POST /auth/login. A correct password triggers an emailed
// verification code; the session is created by VerifyLogin.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Email == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	if !h.allow(w, r, ratelimit.OperationLogin, req.Email) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrAccountLocked):
			// One generic answer: the response must not reveal whether the
			// account exists or is locked
			h.respondError(w, http.StatusUnauthorized, "Invalid email or password")
		case apierror.IsCode(err, apierror.ErrCodePasswordExpired):
			h.respondError(w, http.StatusUnauthorized, "Password has expired and must be reset")
		default:
			h.internalError(w, "Login failed", err)
		}
		return
	}

	var resp loginResponse
	if err := copier.Copy(&resp, &result); err != nil {
		h.internalError(w, "Login failed", err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

type verifyLoginRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Code   string    `json:"code"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// VerifyLogin handles POST /auth/login/verify. A correct code establishes
// the session and sets the token cookies.
func (h *Handler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyLoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.UserID == uuid.Nil || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "User id and code are required")
		return
	}

	if !h.allow(w, r, ratelimit.OperationVerification, req.UserID.String()) {
		return
	}

	pair, err := h.service.VerifyMFA(r.Context(), req.UserID, req.Code, clientInfo(r))
	if err != nil {
		if errors.Is(err, auth.ErrMFAInvalid) {
			h.respondError(w, http.StatusUnauthorized, "Invalid or expired verification code")
			return
		}
		h.internalError(w, "Login verification failed", err)
		return
	}

	h.setCookie(w, AccessTokenCookie, pair.AccessToken, pair.AccessTokenExpires)
	h.setCookie(w, RefreshTokenCookie, pair.RefreshToken, pair.RefreshTokenExpires)

	var resp tokenResponse
	if err := copier.Copy(&resp, &pair); err != nil {
		h.internalError(w, "Login verification failed", err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

type sendVerificationRequest struct {
	Email string `json:"email"`
}

// SendVerificationCode handles POST /auth/verification/send
func (h *Handler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req sendVerificationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if !h.allow(w, r, ratelimit.OperationVerification, req.Email) {
		return
	}

	if err := h.service.SendVerificationCode(r.Context(), req.Email); err != nil {
		h.internalError(w, "Failed to send verification code", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "If an account exists for that email, a code has been sent",
	})
}

// RefreshToken handles POST /auth/token/refresh using the refresh token
// cookie
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		h.respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	accessToken, expires, err := h.service.Sessions().RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			h.clearCookie(w, AccessTokenCookie)
			h.clearCookie(w, RefreshTokenCookie)
			h.respondError(w, http.StatusUnauthorized, "Session expired, please log in again")
			return
		}
		h.internalError(w, "Failed to refresh token", err)
		return
	}

	h.setCookie(w, AccessTokenCookie, accessToken, expires)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
	})
}

// Logout handles POST /auth/logout. Revokes the presented refresh token and
// clears both cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		if err := h.service.Sessions().RevokeSession(r.Context(), cookie.Value); err != nil &&
			!errors.Is(err, session.ErrSessionNotFound) {
			h.log.Error("Failed to revoke session on logout", "error", err)
		}
	}

	h.clearCookie(w, AccessTokenCookie)
	h.clearCookie(w, RefreshTokenCookie)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged out",
	})
}

// RevokeAllSessions handles POST /auth/sessions/revoke-all for the
// authenticated user
func (h *Handler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.service.Sessions().RevokeAllUserSessions(r.Context(), userID); err != nil {
		h.internalError(w, "Failed to revoke sessions", err)
		return
	}

	h.clearCookie(w, AccessTokenCookie)
	h.clearCookie(w, RefreshTokenCookie)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All sessions revoked",
	})
}

// allow consults the rate limiter and writes the 429 response itself when
// the attempt is over budget
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, op ratelimit.Operation, key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))

	result, err := h.limiter.Allow(r.Context(), op, key)
	if err != nil {
		// Fail open: a broken limiter must not take the auth flows down
		h.log.Error("Rate limiter failure", "operation", op, "error", err)
		return true
	}
	if result.Allowed {
		return true
	}

	h.service.LogRateLimitExceeded(r.Context(), string(op), key, clientInfo(r))

	retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	h.respondJSON(w, http.StatusTooManyRequests, map[string]interface{}{
		"error": "Too many attempts, please try again later",
	})
	return false
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{"error": message})
}

// internalError answers with a generic body; the raw error goes only to the
// server log
func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	h.log.Error(message, "error", err)
	h.respondError(w, http.StatusInternalServerError, "Internal server error")
}

func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
