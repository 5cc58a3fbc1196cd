package store

import (
	"context"
	"fmt"

	"github.com/petermazzocco/bboard/models"
	"gorm.io/gorm/clause"
)

// ActiveComments returns the visible comments of a listing, oldest first.
func (s *Store) ActiveComments(ctx context.Context, listingID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("listing_id = ? AND is_active = ?", listingID, true).
		Order("created_at").
		Order("id").
		Find(&comments).Error
	return comments, translate(err)
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		return fmt.Errorf("create comment: %w", translate(err))
	}
	return nil
}
