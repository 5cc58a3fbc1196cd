package forms

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/petermazzocco/bboard/internal/captcha"
	"github.com/petermazzocco/bboard/models"
)

// MaxAuthorLength bounds the author column of a comment.
const MaxAuthorLength = 30

type CommentData struct {
	Author  string `json:"author"`
	Content string `json:"content"`
	Captcha string `json:"-"`
}

// CommentForm is one of the two comment form variants. Which one applies is
// decided by CommentFormFor alone.
type CommentForm interface {
	Kind() string
	Initial() CommentData
	Bind(values url.Values) CommentData
	// Validate returns field errors for bad input and an error when a
	// collaborator (the captcha service) failed.
	Validate(ctx context.Context, d CommentData, remoteIP string) (Errors, error)
}

// CommentFormFor picks the authenticated variant for a signed-in viewer and
// the guest variant otherwise.
func CommentFormFor(viewer *models.User, v captcha.Verifier) CommentForm {
	if viewer != nil {
		return AuthenticatedCommentForm{Username: viewer.Username}
	}
	return GuestCommentForm{Captcha: v}
}

// AuthenticatedCommentForm always signs the comment with the viewer's
// username; a posted author is ignored.
type AuthenticatedCommentForm struct {
	Username string
}

func (AuthenticatedCommentForm) Kind() string { return "user" }

func (f AuthenticatedCommentForm) Initial() CommentData {
	return CommentData{Author: f.Username}
}

func (f AuthenticatedCommentForm) Bind(values url.Values) CommentData {
	return CommentData{Author: f.Username, Content: strings.TrimSpace(values.Get("content"))}
}

func (f AuthenticatedCommentForm) Validate(ctx context.Context, d CommentData, remoteIP string) (Errors, error) {
	errs := Errors{}
	maxLength(errs, "author", d.Author, MaxAuthorLength)
	required(errs, "content", d.Content)
	return errs, nil
}

// GuestCommentForm needs a free-text author and a solved captcha.
type GuestCommentForm struct {
	Captcha captcha.Verifier
}

func (GuestCommentForm) Kind() string { return "guest" }

func (GuestCommentForm) Initial() CommentData { return CommentData{} }

func (GuestCommentForm) Bind(values url.Values) CommentData {
	return CommentData{
		Author:  strings.TrimSpace(values.Get("author")),
		Content: strings.TrimSpace(values.Get("content")),
		Captcha: values.Get("captcha"),
	}
}

func (f GuestCommentForm) Validate(ctx context.Context, d CommentData, remoteIP string) (Errors, error) {
	errs := Errors{}
	if required(errs, "author", d.Author) {
		maxLength(errs, "author", d.Author, MaxAuthorLength)
		singleLine(errs, "author", d.Author)
	}
	required(errs, "content", d.Content)
	if !required(errs, "captcha", d.Captcha) {
		return errs, nil
	}
	if err := f.Captcha.Verify(ctx, d.Captcha, remoteIP); err != nil {
		if !errors.Is(err, captcha.ErrFailed) {
			return errs, err
		}
		errs.Add("captcha", "Invalid CAPTCHA.")
	}
	return errs, nil
}
