package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/petermazzocco/bboard/internal/auth"
	"github.com/petermazzocco/bboard/internal/board"
	"github.com/petermazzocco/bboard/models"
	"github.com/rs/zerolog/hlog"
)

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	if err := h.Sessions.Login(w, r, user); err != nil {
		h.fail(w, r, err, "")
		return false
	}
	return true
}

func (h *Handler) LoginState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": auth.UserFrom(r.Context())})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form")
		return
	}
	user, err := h.Board.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if !h.signIn(w, r, user) {
		return
	}
	success(w, http.StatusOK, "Signed in", map[string]any{"user": user})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		h.fail(w, r, err, "")
		return
	}
	success(w, http.StatusOK, "Signed out", nil)
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"form": map[string]any{"send_messages": true}})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form")
		return
	}
	user, err := h.Board.Register(r.Context(), r.PostForm)
	if err != nil {
		h.fail(w, r, err, "Registration failed")
		return
	}
	success(w, http.StatusCreated, "Registration complete", map[string]any{
		"user": user,
		"next": "/accounts/register/done",
	})
}

func (h *Handler) RegisterDone(w http.ResponseWriter, r *http.Request) {
	success(w, http.StatusOK, "Registration complete. An activation link has been sent to your email address.", nil)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	res, err := h.Board.Activate(r.Context(), chi.URLParam(r, "sign"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	msg := "Your account has been activated"
	if res == board.AlreadyActivated {
		msg = "Your account was activated earlier"
	}
	success(w, http.StatusOK, msg, map[string]any{"result": res})
}

func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"form": auth.UserFrom(r.Context())})
}

func (h *Handler) ChangeUserInfo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form")
		return
	}
	user, err := h.Board.ChangeUserInfo(r.Context(), auth.UserFrom(r.Context()), r.PostForm)
	if err != nil {
		h.fail(w, r, err, "User data not changed")
		return
	}
	success(w, http.StatusOK, "User data changed", map[string]any{"user": user})
}

func (h *Handler) PasswordForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"form": map[string]string{}})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form")
		return
	}
	if err := h.Board.ChangePassword(r.Context(), auth.UserFrom(r.Context()), r.PostForm); err != nil {
		h.fail(w, r, err, "Password not changed")
		return
	}
	success(w, http.StatusOK, "Password changed", map[string]any{"next": "/accounts/password/change/done"})
}

func (h *Handler) PasswordDone(w http.ResponseWriter, r *http.Request) {
	success(w, http.StatusOK, "Your password has been changed", nil)
}

func (h *Handler) ConfirmDeleteAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": auth.UserFrom(r.Context())})
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if err := h.Board.DeleteAccount(r.Context(), user); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := h.Sessions.Logout(w, r); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Uint("user_id", user.ID).Msg("clear session of deleted user")
	}
	success(w, http.StatusOK, "User deleted", nil)
}

// BeginOAuth starts the provider redirect, or signs in straight away when
// the provider session is already complete.
func (h *Handler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	if gothUser, err := auth.CompleteOAuth(w, r); err == nil {
		h.finishOAuth(w, r, gothUser.Email, gothUser.NickName, gothUser.FirstName, gothUser.LastName)
		return
	}
	auth.BeginOAuth(w, r)
}

func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	gothUser, err := auth.CompleteOAuth(w, r)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("oauth callback")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not Authorized"})
		return
	}
	h.finishOAuth(w, r, gothUser.Email, gothUser.NickName, gothUser.FirstName, gothUser.LastName)
}

func (h *Handler) finishOAuth(w http.ResponseWriter, r *http.Request, email, nickname, first, last string) {
	user, err := h.Board.OAuthUser(r.Context(), email, nickname, first, last)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if !h.signIn(w, r, user) {
		return
	}
	http.Redirect(w, r, "/accounts/profile", http.StatusTemporaryRedirect)
}
