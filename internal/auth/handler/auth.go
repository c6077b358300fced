package handler

import (
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medstock/internal/auth/middleware"
	"github.com/medflow/medstock/internal/auth/service"
	"github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/httputil"
	"github.com/medflow/medstock/pkg/logger"
)

const (
	dashboardPage  = "/dashboard.html"
	loginErrorPage = middleware.LoginPage + "?error=1"
)

// CookieConfig controls how the session cookie is written
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service *service.AuthService
	cookie  CookieConfig
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, cookie CookieConfig, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		cookie:  cookie,
		logger:  log,
	}
}

// RegisterRoutes mounts the login, logout and change-password routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Post("/api/change-password", h.ChangePassword)
}

// Login accepts a JSON body or an HTML form post
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if isFormPost(r) {
		h.loginForm(w, r)
		return
	}

	var req service.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Password, h.priorToken(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.setCookie(w, result)
	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) loginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, loginErrorPage, http.StatusSeeOther)
		return
	}

	result, err := h.service.Login(r.Context(), r.PostFormValue("password"), h.priorToken(r))
	if err != nil {
		if !errors.Is(err, errors.ErrInvalidCredentials) {
			h.logger.Error().Err(err).Msg("form login failed")
		}
		http.Redirect(w, r, loginErrorPage, http.StatusSeeOther)
		return
	}

	h.setCookie(w, result)
	http.Redirect(w, r, dashboardPage, http.StatusSeeOther)
}

// Logout destroys the session, clears the cookie and returns to the login page
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), h.priorToken(r)); err != nil {
		h.logger.Warn().Err(err).Msg("logout error")
	}

	h.clearCookie(w)
	http.Redirect(w, r, middleware.LoginPage, http.StatusFound)
}

// ChangePassword verifies the current password and stores a new one.
// It must run behind the guard.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.SessionFromContext(r.Context()); !ok {
		httputil.Error(w, errors.Unauthorized("authentication required"))
		return
	}

	var req service.ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), &req); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Password changed successfully!")
}

func (h *AuthHandler) priorToken(r *http.Request) string {
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		return c.Value
	}
	return ""
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, result *service.LoginResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(time.Until(result.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func isFormPost(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}
