package board

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/petermazzocco/bboard/internal/auth"
	"github.com/petermazzocco/bboard/internal/forms"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/models"
)

type ActivationResult string

const (
	Activated        ActivationResult = "activated"
	AlreadyActivated ActivationResult = "already_activated"
)

const (
	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "A user with that email address already exists."
	msgUserTaken     = "A user with that username or email address already exists."
)

// Register creates an account from the registration form and sends the
// activation email.
func (s *Service) Register(ctx context.Context, values url.Values) (*models.User, error) {
	form, errs := forms.ParseRegister(values)
	if err := s.checkUnique(ctx, errs, form.Username, form.Email, 0); err != nil {
		return nil, err
	}
	if errs.Any() {
		return nil, &FormError{Errors: errs, Form: forms.Values(values, "password1", "password2")}
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		IsActive:     !s.RequireActivation,
		IsActivated:  !s.RequireActivation,
		SendMessages: form.SendMessages,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, s.duplicateUser(ctx, err, form.Username, form.Email, 0, forms.Values(values, "password1", "password2"))
		}
		return nil, err
	}
	s.Log.Info().Uint("user_id", u.ID).Msg("user registered")
	if err := s.Notifier.UserRegistered(ctx, u); err != nil {
		s.Log.Error().Err(err).Uint("user_id", u.ID).Msg("send activation email")
	}
	return u, nil
}

func (s *Service) checkUnique(ctx context.Context, errs forms.Errors, username, email string, exceptID uint) error {
	if _, bad := errs["username"]; !bad {
		taken, err := s.Store.UsernameTaken(ctx, username, exceptID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("username", msgUsernameTaken)
		}
	}
	if _, bad := errs["email"]; !bad {
		taken, err := s.Store.EmailTaken(ctx, email, exceptID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("email", msgEmailTaken)
		}
	}
	return nil
}

// duplicateUser turns a unique violation that got past checkUnique into a
// form error on the field that is now taken. When neither field is found
// taken the error goes to the whole form.
func (s *Service) duplicateUser(ctx context.Context, cause error, username, email string, exceptID uint, form map[string]string) error {
	errs := forms.Errors{}
	if err := s.checkUnique(ctx, errs, username, email, exceptID); err != nil {
		return err
	}
	if !errs.Any() {
		s.Log.Warn().Err(cause).Str("username", username).Msg("unattributed duplicate user")
		errs.Add("", msgUserTaken)
	}
	return &FormError{Errors: errs, Form: form}
}

// Activate turns on the account named by a signed activation token.
func (s *Service) Activate(ctx context.Context, token string) (ActivationResult, error) {
	username, err := s.Signer.Unsign(token)
	if err != nil {
		return "", err
	}
	u, err := s.Store.UserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u.IsActivated {
		return AlreadyActivated, nil
	}
	u.IsActive = true
	u.IsActivated = true
	if err := s.Store.SaveUser(ctx, u); err != nil {
		return "", err
	}
	s.Log.Info().Uint("user_id", u.ID).Msg("user activated")
	return Activated, nil
}

// Authenticate checks credentials. Unknown users, wrong passwords and
// inactive accounts all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.Store.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) || !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	now := s.now()
	u.LastLogin = &now
	if err := s.Store.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ChangeUserInfo(ctx context.Context, u *models.User, values url.Values) (*models.User, error) {
	form, errs := forms.ParseUserInfo(values)
	if err := s.checkUnique(ctx, errs, form.Username, form.Email, u.ID); err != nil {
		return nil, err
	}
	if errs.Any() {
		return nil, &FormError{Errors: errs, Form: forms.Values(values)}
	}
	changed := *u
	changed.Username = form.Username
	changed.Email = form.Email
	changed.FirstName = form.FirstName
	changed.LastName = form.LastName
	changed.SendMessages = form.SendMessages
	if err := s.Store.SaveUser(ctx, &changed); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, s.duplicateUser(ctx, err, form.Username, form.Email, u.ID, forms.Values(values))
		}
		return nil, err
	}
	return &changed, nil
}

func (s *Service) ChangePassword(ctx context.Context, u *models.User, values url.Values) error {
	form, errs := forms.ParsePasswordChange(values)
	if form.OldPassword != "" && !auth.CheckPassword(u.PasswordHash, form.OldPassword) {
		errs.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
	}
	if errs.Any() {
		return &FormError{Errors: errs, Form: map[string]string{}}
	}
	hash, err := auth.HashPassword(form.NewPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.Store.SaveUser(ctx, u)
}

// DeleteAccount removes the user with all of their listings.
func (s *Service) DeleteAccount(ctx context.Context, u *models.User) error {
	return s.DeleteUser(ctx, u)
}

// OAuthUser returns the account for an email verified by an OAuth provider,
// creating an active one when none exists.
func (s *Service) OAuthUser(ctx context.Context, email, nickname, firstName, lastName string) (*models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Store.UserByEmail(ctx, email)
	switch {
	case err == nil:
		if !u.IsActivated {
			u.IsActive = true
			u.IsActivated = true
		}
		if !u.IsActive {
			return nil, ErrInvalidCredentials
		}
		now := s.now()
		u.LastLogin = &now
		if err := s.Store.SaveUser(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	username, err := s.freeUsername(ctx, nickname, email)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u = &models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: auth.UnusablePassword,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
		IsActivated:  true,
		SendMessages: true,
		LastLogin:    &now,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.Log.Info().Uint("user_id", u.ID).Msg("user created from oauth")
	return u, nil
}

func (s *Service) freeUsername(ctx context.Context, nickname, email string) (string, error) {
	base := strings.Join(strings.Fields(nickname), "")
	if base == "" {
		base, _, _ = strings.Cut(strings.TrimSpace(email), "@")
	}
	base = strings.ReplaceAll(base, "/", "")
	if r := []rune(base); len(r) > 140 {
		base = string(r[:140])
	}
	if base == "" {
		base = "user"
	}
	name := base
	for {
		taken, err := s.Store.UsernameTaken(ctx, name, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
		name = base + "-" + uuid.NewString()[:8]
	}
}
