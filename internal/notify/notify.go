// Package notify sends the activation and new-comment emails.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/petermazzocco/bboard/models"
)

type Notifier interface {
	UserRegistered(ctx context.Context, user *models.User) error
	CommentCreated(ctx context.Context, recipient *models.User, listing *models.Listing, comment *models.Comment) error
}

type Signer interface {
	Sign(username string) (string, error)
}

// Dispatcher renders the emails and hands them to a Mailer.
type Dispatcher struct {
	Mailer  Mailer
	Signer  Signer
	BaseURL string
}

func (d *Dispatcher) UserRegistered(ctx context.Context, user *models.User) error {
	token, err := d.Signer.Sign(user.Username)
	if err != nil {
		return err
	}
	body, err := render("activation", map[string]any{
		"User": user,
		"Link": d.link("accounts", "activate", token),
	})
	if err != nil {
		return err
	}
	return d.Mailer.Send(ctx, Message{
		To:      user.Email,
		Subject: "Activate your account, " + user.Username,
		Body:    body,
	})
}

func (d *Dispatcher) CommentCreated(ctx context.Context, recipient *models.User, listing *models.Listing, comment *models.Comment) error {
	body, err := render("new_comment", map[string]any{
		"User":    recipient,
		"Listing": listing,
		"Comment": comment,
		"Link":    d.link("category", fmt.Sprint(listing.RubricID), fmt.Sprint(listing.ID)),
	})
	if err != nil {
		return err
	}
	return d.Mailer.Send(ctx, Message{
		To:      recipient.Email,
		Subject: "New comment on " + listing.Title,
		Body:    body,
	})
}

func (d *Dispatcher) link(parts ...string) string {
	return strings.TrimRight(d.BaseURL, "/") + "/" + strings.Join(parts, "/")
}
