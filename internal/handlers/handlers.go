// Package handlers exposes the board as a JSON API over chi.
package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/petermazzocco/bboard/internal/auth"
	"github.com/petermazzocco/bboard/internal/board"
	"github.com/petermazzocco/bboard/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Handler struct {
	Board    *board.Service
	Sessions *auth.Sessions
	Log      zerolog.Logger

	// RateLimit caps POSTs to the login, register and comment endpoints per
	// client and minute. Zero disables the limit.
	RateLimit int
	OAuth     bool
	// MediaRoot and MediaURL serve locally stored files when both are set.
	MediaRoot string
	MediaURL  string
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(h.Sessions.Load)

	limit := func(next http.Handler) http.Handler { return next }
	if h.RateLimit > 0 {
		limit = httprate.Limit(
			h.RateLimit,
			1*time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		)
	}

	r.Get("/", h.Index)
	r.Get("/rubrics", h.Rubrics)
	r.Get("/category/{rubric_id}", h.ByRubric)
	r.Get("/category/{rubric_id}/{id}", h.Detail)
	r.With(limit).Post("/category/{rubric_id}/{id}", h.PostComment)

	r.Get("/login", h.LoginState)
	r.With(limit).Post("/login", h.Login)
	r.With(auth.RequireUser).HandleFunc("/logout", h.Logout)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/register", h.RegisterForm)
		r.With(limit).Post("/register", h.Register)
		r.Get("/register/done", h.RegisterDone)
		r.Get("/activate/{sign}", h.Activate)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Get("/profile", h.Profile)
			r.Get("/profile/change", h.UserInfo)
			r.Post("/profile/change", h.ChangeUserInfo)
			r.Get("/profile/add", h.NewListing)
			r.Post("/profile/add", h.CreateListing)
			r.Get("/profile/change/{id}", h.EditListing)
			r.Post("/profile/change/{id}", h.UpdateListing)
			r.Get("/profile/delete/{id}", h.ConfirmDeleteListing)
			r.Post("/profile/delete/{id}", h.DeleteListing)
			r.Get("/profile/{id}", h.ProfileListing)
			r.Get("/password/change", h.PasswordForm)
			r.Post("/password/change", h.ChangePassword)
			r.Get("/password/change/done", h.PasswordDone)
			r.Get("/delete", h.ConfirmDeleteAccount)
			r.Post("/delete", h.DeleteAccount)
		})
	})

	if h.OAuth {
		r.HandleFunc("/auth/{provider}", h.BeginOAuth)
		r.Get("/auth/{provider}/callback", h.OAuthCallback)
	}
	if h.MediaRoot != "" && strings.HasPrefix(h.MediaURL, "/") {
		prefix := "/" + strings.Trim(h.MediaURL, "/") + "/"
		r.With(middleware.SetHeader("X-Content-Type-Options", "nosniff")).
			Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(h.MediaRoot))))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// success writes {"message", "level": "success"} merged with data.
func success(w http.ResponseWriter, status int, message string, data map[string]any) {
	body := map[string]any{"message": message, "level": "success"}
	for k, v := range data {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// fail maps service errors onto responses. warning is the message shown with
// rejected forms.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, warning string) {
	var fe *board.FormError
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": warning,
			"level":   "warning",
			"errors":  fe.Errors,
			"form":    fe.Form,
		})
	case errors.Is(err, board.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, board.ErrBadSignature):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad signature"})
	case errors.Is(err, board.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "Please enter a correct username and password. Note that both fields may be case-sensitive.",
		})
	default:
		hlog.FromRequest(r).Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// idParam reads a numeric path segment. Anything else reads as a missing
// object.
func idParam(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, board.ErrNotFound
	}
	return uint(id), nil
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
