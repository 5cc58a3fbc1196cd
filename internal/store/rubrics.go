package store

import (
	"context"
	"fmt"

	"github.com/petermazzocco/bboard/models"
	"gorm.io/gorm/clause"
)

// SuperRubrics returns the top-level rubrics ordered by (order, name).
func (s *Store) SuperRubrics(ctx context.Context) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	err := s.db.WithContext(ctx).
		Where("super_rubric_id IS NULL").
		Order("sort_order, name").
		Find(&rubrics).Error
	return rubrics, translate(err)
}

// SubRubrics returns the second-level rubrics with their parent loaded,
// ordered by (parent order, parent name, order, name).
func (s *Store) SubRubrics(ctx context.Context) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	err := s.db.WithContext(ctx).
		Joins("JOIN rubrics AS parent ON parent.id = rubrics.super_rubric_id").
		Where("rubrics.super_rubric_id IS NOT NULL").
		Preload("SuperRubric").
		Order("parent.sort_order, parent.name, rubrics.sort_order, rubrics.name").
		Find(&rubrics).Error
	return rubrics, translate(err)
}

// SubRubric looks up a sub-rubric. A super-rubric id is reported as not found.
func (s *Store) SubRubric(ctx context.Context, id uint) (*models.Rubric, error) {
	var r models.Rubric
	err := s.db.WithContext(ctx).
		Where("id = ? AND super_rubric_id IS NOT NULL", id).
		Preload("SuperRubric").
		First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) Rubric(ctx context.Context, id uint) (*models.Rubric, error) {
	var r models.Rubric
	if err := s.db.WithContext(ctx).Preload("SuperRubric").First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) CreateRubric(ctx context.Context, r *models.Rubric) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		return fmt.Errorf("create rubric %q: %w", r.Name, translate(err))
	}
	return nil
}

// DeleteRubric fails with the storage integrity error while a listing or a
// sub-rubric still references the rubric.
func (s *Store) DeleteRubric(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Rubric{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete rubric %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
