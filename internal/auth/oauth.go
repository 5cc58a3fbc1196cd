package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// SetupOAuth registers the Google provider. gothic keeps its state in the
// same session store as the board.
func SetupOAuth(store sessions.Store, key, secret, callbackURL string) {
	gothic.Store = store
	goth.UseProviders(google.New(key, secret, callbackURL, "email", "profile"))
}

// gothic looks the provider up in the query string.
func withProvider(r *http.Request) *http.Request {
	q := r.URL.Query()
	q.Set("provider", chi.URLParam(r, "provider"))
	r.URL.RawQuery = q.Encode()
	return r
}

func BeginOAuth(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withProvider(r))
}

func CompleteOAuth(w http.ResponseWriter, r *http.Request) (goth.User, error) {
	return gothic.CompleteUserAuth(w, withProvider(r))
}
