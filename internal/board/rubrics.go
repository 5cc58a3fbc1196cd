package board

import (
	"context"
	"errors"
	"strings"

	"github.com/petermazzocco/bboard/internal/forms"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/models"
)

// CreateRubric adds a super-rubric, or a sub-rubric when parentID is set.
// The parent is not required to be a super-rubric.
func (s *Service) CreateRubric(ctx context.Context, name string, order int16, parentID *uint) (*models.Rubric, error) {
	name = strings.TrimSpace(name)
	errs := forms.Errors{}
	switch {
	case name == "":
		errs.Add("name", "This field is required.")
	case len([]rune(name)) > 20:
		errs.Add("name", "Ensure this value has at most 20 characters (it has %d).", len([]rune(name)))
	}
	var parent *models.Rubric
	if parentID != nil {
		p, err := s.Store.Rubric(ctx, *parentID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			errs.Add("super_rubric", "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			return nil, err
		}
		parent = p
	}
	if errs.Any() {
		return nil, &FormError{Errors: errs, Form: map[string]string{"name": name}}
	}

	r := &models.Rubric{Name: name, SortOrder: order, SuperRubricID: parentID}
	if err := s.Store.CreateRubric(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			errs.Add("name", "Rubric with this Name already exists.")
			return nil, &FormError{Errors: errs, Form: map[string]string{"name": name}}
		}
		return nil, err
	}
	r.SuperRubric = parent
	return r, nil
}

// DeleteRubric fails with the storage integrity error while the rubric is in
// use.
func (s *Service) DeleteRubric(ctx context.Context, id uint) error {
	return s.Store.DeleteRubric(ctx, id)
}
