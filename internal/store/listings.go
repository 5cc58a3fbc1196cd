package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/petermazzocco/bboard/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListingFilter struct {
	RubricID uint
	Keyword  string
}

func (f ListingFilter) scope(db *gorm.DB) *gorm.DB {
	db = db.Where("listings.is_active = ?", true)
	if f.RubricID != 0 {
		db = db.Where("listings.rubric_id = ?", f.RubricID)
	}
	if f.Keyword != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Keyword)) + "%"
		db = db.Where(`(LOWER(listings.title) LIKE ? ESCAPE '\' OR LOWER(listings.content) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("listings.created_at DESC").Order("listings.id DESC")
}

// CountActive counts active listings matching f.
func (s *Store) CountActive(ctx context.Context, f ListingFilter) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Listing{}).Scopes(f.scope).Count(&n).Error
	return n, translate(err)
}

// ActiveListings returns one window of active listings matching f, newest first.
func (s *Store) ActiveListings(ctx context.Context, f ListingFilter, offset, limit int) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.WithContext(ctx).
		Scopes(f.scope, newestFirst).
		Preload("Rubric.SuperRubric").
		Offset(offset).
		Limit(limit).
		Find(&listings).Error
	return listings, translate(err)
}

func (s *Store) Listing(ctx context.Context, id uint) (*models.Listing, error) {
	var l models.Listing
	if err := s.db.WithContext(ctx).Preload("Rubric.SuperRubric").First(&l, id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

// OwnedListing acquires a listing by id and author in one query, so a listing
// of another user is indistinguishable from a missing one.
func (s *Store) OwnedListing(ctx context.Context, id, authorID uint) (*models.Listing, error) {
	var l models.Listing
	err := s.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		Preload("Rubric.SuperRubric").
		First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

// ListingsByAuthor returns every listing of the author, inactive ones included.
func (s *Store) ListingsByAuthor(ctx context.Context, authorID uint) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Scopes(newestFirst).
		Preload("Rubric.SuperRubric").
		Find(&listings).Error
	return listings, translate(err)
}

func (s *Store) CreateListing(ctx context.Context, l *models.Listing) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error; err != nil {
		return fmt.Errorf("create listing: %w", translate(err))
	}
	return nil
}

func (s *Store) SaveListing(ctx context.Context, l *models.Listing) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(l).Error; err != nil {
		return fmt.Errorf("save listing %d: %w", l.ID, translate(err))
	}
	return nil
}

// DeleteListing removes the listing row. Comment and additional image rows go
// with it through the foreign key cascade.
func (s *Store) DeleteListing(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Listing{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete listing %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AdditionalImages(ctx context.Context, listingID uint) ([]models.AdditionalImage, error) {
	var images []models.AdditionalImage
	err := s.db.WithContext(ctx).Where("listing_id = ?", listingID).Order("id").Find(&images).Error
	return images, translate(err)
}

func (s *Store) CreateAdditionalImage(ctx context.Context, img *models.AdditionalImage) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(img).Error; err != nil {
		return fmt.Errorf("create additional image: %w", translate(err))
	}
	return nil
}

func (s *Store) DeleteAdditionalImage(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.AdditionalImage{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete additional image %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
