package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/petermazzocco/bboard/internal/forms"
	"github.com/petermazzocco/bboard/internal/media"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/models"
)

// ListingSubmission is a posted listing form together with its files.
type ListingSubmission struct {
	Values           url.Values
	Image            *forms.Upload
	AdditionalImages []*forms.Upload
}

// Profile lists the user's own listings, inactive ones included.
func (s *Service) Profile(ctx context.Context, user *models.User) ([]models.Listing, error) {
	listings, err := s.Store.ListingsByAuthor(ctx, user.ID)
	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, err
}

func (s *Service) ProfileListing(ctx context.Context, user *models.User, id uint) (*Detail, error) {
	l, err := s.Store.OwnedListing(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, l)
}

func (s *Service) CreateListing(ctx context.Context, user *models.User, sub ListingSubmission) (*models.Listing, error) {
	form, set, rubric, err := s.validateListing(ctx, sub, nil, nil)
	if err != nil {
		return nil, err
	}

	l := &models.Listing{AuthorID: user.ID}
	form.Apply(l)
	var saved []string
	if form.Image != nil {
		if l.Image, err = s.saveUpload(ctx, form.Image); err != nil {
			return nil, err
		}
		saved = append(saved, l.Image)
	}
	added, err := s.saveUploads(ctx, set.New)
	saved = append(saved, added...)
	if err != nil {
		s.removeFiles(ctx, saved)
		return nil, err
	}

	err = s.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateListing(ctx, l); err != nil {
			return err
		}
		return createImages(ctx, tx, l.ID, added)
	})
	if err != nil {
		s.removeFiles(ctx, saved)
		return nil, err
	}
	l.Rubric = rubric
	s.Log.Info().Uint("listing_id", l.ID).Uint("user_id", user.ID).Msg("listing created")
	return l, nil
}

// UpdateListing applies an edit of one of user's listings. Row changes commit
// together; files of replaced or deleted images are removed only after that.
func (s *Service) UpdateListing(ctx context.Context, user *models.User, id uint, sub ListingSubmission) (*models.Listing, error) {
	l, err := s.Store.OwnedListing(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Store.AdditionalImages(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	form, set, rubric, err := s.validateListing(ctx, sub, l, existing)
	if err != nil {
		return nil, err
	}

	oldImage := l.Image
	form.Apply(l)
	var saved []string
	switch {
	case form.Image != nil:
		if l.Image, err = s.saveUpload(ctx, form.Image); err != nil {
			return nil, err
		}
		saved = append(saved, l.Image)
	case form.ClearImage:
		l.Image = ""
	}
	added, err := s.saveUploads(ctx, set.New)
	saved = append(saved, added...)
	if err != nil {
		s.removeFiles(ctx, saved)
		return nil, err
	}

	var dropped []string
	err = s.Store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.SaveListing(ctx, l); err != nil {
			return err
		}
		for _, img := range existing {
			if !slices.Contains(set.Delete, img.ID) {
				continue
			}
			if err := tx.DeleteAdditionalImage(ctx, img.ID); err != nil {
				return err
			}
			dropped = append(dropped, img.Image)
		}
		return createImages(ctx, tx, l.ID, added)
	})
	if err != nil {
		s.removeFiles(ctx, saved)
		return nil, err
	}
	if oldImage != l.Image {
		dropped = append(dropped, oldImage)
	}
	s.removeFiles(ctx, dropped)
	l.Rubric = rubric
	s.Log.Info().Uint("listing_id", l.ID).Uint("user_id", user.ID).Msg("listing updated")
	return l, nil
}

// DeleteOwnListing deletes a listing of user; listings of others are not
// found.
func (s *Service) DeleteOwnListing(ctx context.Context, user *models.User, id uint) error {
	l, err := s.Store.OwnedListing(ctx, id, user.ID)
	if err != nil {
		return err
	}
	return s.DeleteListing(ctx, l)
}

// validateListing checks the listing form and its image set together and
// prepares every upload, so nothing is written unless all of it is valid.
func (s *Service) validateListing(ctx context.Context, sub ListingSubmission, current *models.Listing, existing []models.AdditionalImage) (forms.ListingForm, forms.ImageSet, *models.Rubric, error) {
	form, errs := forms.ParseListing(sub.Values, sub.Image, current)
	set, setErrs := forms.ParseImageSet(sub.Values, sub.AdditionalImages)
	errs.Extend(setErrs)
	errs.Extend(set.Check(existing))

	var rubric *models.Rubric
	if form.RubricID != 0 {
		r, err := s.Store.SubRubric(ctx, form.RubricID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			errs.Add("rubric", "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			return form, set, nil, err
		default:
			rubric = r
		}
	}

	if !errs.Any() {
		if form.Image != nil {
			if err := s.prepare(form.Image); err != nil {
				errs.Add("image", "%s", err)
			}
		}
		for i, u := range set.New {
			if err := s.prepare(u); err != nil {
				errs.Add(fmt.Sprintf("images.%d", i), "%s", err)
			}
		}
	}
	if errs.Any() {
		return form, set, nil, &FormError{Errors: errs, Form: forms.Values(sub.Values)}
	}
	return form, set, rubric, nil
}

// prepare runs the image processor over u in place.
func (s *Service) prepare(u *forms.Upload) error {
	if s.Images == nil {
		return nil
	}
	data, err := s.Images.Process(u.Data)
	if err != nil {
		s.Log.Debug().Err(err).Str("filename", u.Filename).Msg("image processing failed")
		return errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	u.Data = data
	return nil
}

func (s *Service) saveUpload(ctx context.Context, u *forms.Upload) (string, error) {
	key := media.UploadKey(u.ContentType, s.now())
	if err := s.Media.Save(ctx, key, bytes.NewReader(u.Data), u.ContentType); err != nil {
		return "", fmt.Errorf("store %s: %w", u.Filename, err)
	}
	return key, nil
}

// saveUploads stores uploads in order. On failure it returns the keys stored
// so far with the error.
func (s *Service) saveUploads(ctx context.Context, uploads []*forms.Upload) ([]string, error) {
	keys := make([]string, 0, len(uploads))
	for _, u := range uploads {
		key, err := s.saveUpload(ctx, u)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func createImages(ctx context.Context, tx *store.Store, listingID uint, keys []string) error {
	for _, key := range keys {
		if err := tx.CreateAdditionalImage(ctx, &models.AdditionalImage{ListingID: listingID, Image: key}); err != nil {
			return err
		}
	}
	return nil
}
