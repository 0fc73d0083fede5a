package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/server/models"
	"github.com/dmitrijs2005/credkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type registrationRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type requestResetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	UserID     string `json:"userId"`
	ResetToken string `json:"resetToken"`
	Password   string `json:"password"`
}

func (h *Handler) badBody(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, common.KindValidation, "malformed request body", map[string]any{"body": err.Error()})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ping != nil {
		if err := h.opts.Ping(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "storage unavailable", nil)
			return
		}
	}
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) registration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := decodeBody(r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	res, err := h.opts.Sessions.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, "registration", err)
		return
	}
	h.writeSession(w, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	res, err := h.opts.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(r.Context(), w, "login", err)
		return
	}
	h.writeSession(w, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Sessions.Logout(r.Context(), refreshTokenFromCookie(r)); err != nil {
		h.writeDomainError(r.Context(), w, "logout", err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Sessions.Activate(r.Context(), chi.URLParam(r, "link")); err != nil {
		h.writeDomainError(r.Context(), w, "activate", err)
		return
	}
	http.Redirect(w, r, h.opts.ClientURL, http.StatusTemporaryRedirect)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.opts.Sessions.Refresh(r.Context(), refreshTokenFromCookie(r))
	if err != nil {
		if status := statusForKind(common.KindOf(err)); status == http.StatusUnauthorized {
			h.clearRefreshCookie(w)
		}
		h.writeDomainError(r.Context(), w, "refresh", err)
		return
	}
	h.writeSession(w, res)
}

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := decodeBody(r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	if _, err := h.opts.Resets.RequestReset(r.Context(), req.Email); err != nil {
		h.writeDomainError(r.Context(), w, "request reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		h.badBody(w, err)
		return
	}

	if err := h.opts.Resets.ResetPassword(r.Context(), req.UserID, req.ResetToken, req.Password); err != nil {
		h.writeDomainError(r.Context(), w, "reset password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.opts.Sessions.Authenticate(r.Context(), bearerToken(r.Header.Get(common.AuthorizationHeaderName)))
	if err != nil {
		h.writeDomainError(r.Context(), w, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// writeSession sets the refresh cookie and returns the pair with the profile.
func (h *Handler) writeSession(w http.ResponseWriter, res *models.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    res.RefreshToken,
		Path:     "/api",
		MaxAge:   int(h.opts.RefreshTTL / time.Second),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    "",
		Path:     "/api",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshTokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
