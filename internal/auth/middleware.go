package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/petermazzocco/bboard/models"
	"github.com/rs/zerolog/hlog"
)

const (
	SessionName    = "bboard_session"
	sessionUserKey = "user_id"
)

type ctxKeyUser struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

// UserFrom returns the signed-in user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKeyUser{}).(*models.User)
	return u
}

type UserLoader interface {
	User(ctx context.Context, id uint) (*models.User, error)
}

type Sessions struct {
	Store sessions.Store
	Users UserLoader
}

// NewCookieStore builds the cookie-backed session store shared with gothic.
func NewCookieStore(secret string, maxAge int, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Load attaches the session user to the request context. Requests without a
// valid session, or whose user is gone or deactivated, continue anonymously.
func (s *Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.Store.Get(r, SessionName)
		if err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("discarding unreadable session")
		}
		if id, ok := session.Values[sessionUserKey].(uint); ok && id != 0 {
			user, err := s.Users.User(r.Context(), id)
			switch {
			case err != nil:
				hlog.FromRequest(r).Debug().Err(err).Uint("user_id", id).Msg("session user not loaded")
			case !user.IsActive:
				hlog.FromRequest(r).Debug().Uint("user_id", id).Msg("session user inactive")
			default:
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, _ := s.Store.Get(r, SessionName)
	session.Values[sessionUserKey] = user.ID
	return session.Save(r, w)
}

func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.Store.Get(r, SessionName)
	delete(session.Values, sessionUserKey)
	opts := *session.Options
	opts.MaxAge = -1
	session.Options = &opts
	return session.Save(r, w)
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Not Authorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
