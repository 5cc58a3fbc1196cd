// Package board implements the bulletin board operations on top of the
// store, the media storage and the notification dispatcher.
package board

import (
	"errors"
	"time"

	"github.com/petermazzocco/bboard/internal/captcha"
	"github.com/petermazzocco/bboard/internal/forms"
	"github.com/petermazzocco/bboard/internal/media"
	"github.com/petermazzocco/bboard/internal/notify"
	"github.com/petermazzocco/bboard/internal/signing"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/rs/zerolog"
)

const (
	IndexPageSize  = 20
	RubricPageSize = 2
)

var (
	ErrNotFound           = store.ErrNotFound
	ErrBadSignature       = signing.ErrBadSignature
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// FormError reports rejected input. Form holds the bound values so the
// caller can show them again next to the messages.
type FormError struct {
	Errors forms.Errors
	Form   any
}

func (e *FormError) Error() string { return e.Errors.Error() }

type Service struct {
	Store    *store.Store
	Media    media.Storage
	Notifier notify.Notifier
	Captcha  captcha.Verifier
	Signer   *signing.Signer
	Log      zerolog.Logger

	// Images, when set, rewrites uploads before they are stored.
	Images media.Processor
	// RequireActivation creates new accounts inactive until the emailed
	// activation link is followed.
	RequireActivation bool
	Now               func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ImageURL resolves a stored image key; an empty key stays empty.
func (s *Service) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return s.Media.URL(key)
}
