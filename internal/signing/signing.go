// Package signing produces the tamper-evident tokens embedded in account
// activation links.
package signing

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

const tokenName = "activation"

var ErrBadSignature = errors.New("bad signature")

type Signer struct {
	codec *securecookie.SecureCookie
}

// New derives the HMAC key from secret. maxAge of zero disables expiry.
func New(secret string, maxAge time.Duration) *Signer {
	key := sha256.Sum256([]byte("bboard.signing:" + secret))
	codec := securecookie.New(key[:], nil)
	codec.MaxAge(int(maxAge / time.Second))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Signer{codec: codec}
}

func (s *Signer) Sign(username string) (string, error) {
	token, err := s.codec.Encode(tokenName, username)
	if err != nil {
		return "", fmt.Errorf("sign %q: %w", username, err)
	}
	return token, nil
}

func (s *Signer) Unsign(token string) (string, error) {
	var username string
	if err := s.codec.Decode(tokenName, token, &username); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return username, nil
}
