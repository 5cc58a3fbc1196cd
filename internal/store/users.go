package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/petermazzocco/bboard/models"
	"gorm.io/gorm/clause"
)

func (s *Store) User(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// UserByEmail compares addresses case-insensitively.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// UsernameTaken reports whether another user than exceptID holds username.
func (s *Store) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&n).Error
	return n > 0, translate(err)
}

func (s *Store) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), exceptID).
		Count(&n).Error
	return n > 0, translate(err)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, translate(err))
	}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(u).Error; err != nil {
		return fmt.Errorf("save user %d: %w", u.ID, translate(err))
	}
	return nil
}

// DeleteUser removes only the user row; owned listings must be deleted first
// so their files are cleaned up.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
