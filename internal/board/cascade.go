package board

import (
	"context"
	"errors"

	"github.com/petermazzocco/bboard/internal/media"
	"github.com/petermazzocco/bboard/models"
)

// DeleteListing removes the additional images of l, row then file, and then
// l itself. Comments go with the listing row.
func (s *Service) DeleteListing(ctx context.Context, l *models.Listing) error {
	images, err := s.Store.AdditionalImages(ctx, l.ID)
	if err != nil {
		return err
	}
	for _, img := range images {
		if err := s.deleteAdditionalImage(ctx, img); err != nil {
			return err
		}
	}
	if err := s.Store.DeleteListing(ctx, l.ID); err != nil {
		return err
	}
	s.removeFile(ctx, l.Image)
	s.Log.Info().Uint("listing_id", l.ID).Int("images", len(images)).Msg("listing deleted")
	return nil
}

// DeleteUser deletes every listing of u one by one and then u.
func (s *Service) DeleteUser(ctx context.Context, u *models.User) error {
	listings, err := s.Store.ListingsByAuthor(ctx, u.ID)
	if err != nil {
		return err
	}
	for i := range listings {
		if err := s.DeleteListing(ctx, &listings[i]); err != nil {
			return err
		}
	}
	if err := s.Store.DeleteUser(ctx, u.ID); err != nil {
		return err
	}
	s.Log.Info().Uint("user_id", u.ID).Int("listings", len(listings)).Msg("user deleted")
	return nil
}

// DeleteUserByUsername is DeleteUser for the command line.
func (s *Service) DeleteUserByUsername(ctx context.Context, username string) error {
	u, err := s.Store.UserByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.DeleteUser(ctx, u)
}

func (s *Service) deleteAdditionalImage(ctx context.Context, img models.AdditionalImage) error {
	if err := s.Store.DeleteAdditionalImage(ctx, img.ID); err != nil {
		return err
	}
	s.removeFile(ctx, img.Image)
	return nil
}

// removeFile deletes a stored file. Failures are logged only; the rows are
// already gone.
func (s *Service) removeFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	err := s.Media.Delete(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, media.ErrNotFound):
		s.Log.Debug().Str("key", key).Msg("file already gone")
	default:
		s.Log.Warn().Err(err).Str("key", key).Msg("remove file")
	}
}

func (s *Service) removeFiles(ctx context.Context, keys []string) {
	for _, key := range keys {
		s.removeFile(ctx, key)
	}
}
