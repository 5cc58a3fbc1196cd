package board

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/petermazzocco/bboard/internal/forms"
	"github.com/petermazzocco/bboard/internal/paginate"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/models"
)

type ListingPage = paginate.Page[models.Listing]

type RubricTree struct {
	Super []models.Rubric `json:"super_rubrics"`
	Sub   []models.Rubric `json:"sub_rubrics"`
}

// Detail is a listing with everything its page shows.
type Detail struct {
	Listing  *models.Listing          `json:"listing"`
	Images   []models.AdditionalImage `json:"additional_images"`
	Comments []models.Comment         `json:"comments"`
}

// Index pages through all active listings matching keyword.
func (s *Service) Index(ctx context.Context, keyword, page string) (ListingPage, error) {
	return s.listings(ctx, store.ListingFilter{Keyword: keyword}, page, IndexPageSize)
}

// ByRubric pages through the active listings of one sub-rubric.
func (s *Service) ByRubric(ctx context.Context, rubricID uint, keyword, page string) (*models.Rubric, ListingPage, error) {
	rubric, err := s.Store.SubRubric(ctx, rubricID)
	if err != nil {
		return nil, ListingPage{}, err
	}
	p, err := s.listings(ctx, store.ListingFilter{RubricID: rubric.ID, Keyword: keyword}, page, RubricPageSize)
	return rubric, p, err
}

func (s *Service) listings(ctx context.Context, f store.ListingFilter, page string, perPage int) (ListingPage, error) {
	count, err := s.Store.CountActive(ctx, f)
	if err != nil {
		return ListingPage{}, err
	}
	w := paginate.Resolve(page, count, perPage)
	items, err := s.Store.ActiveListings(ctx, f, w.Offset, w.Limit)
	if err != nil {
		return ListingPage{}, err
	}
	return paginate.NewPage(items, w, count), nil
}

func (s *Service) Rubrics(ctx context.Context) (RubricTree, error) {
	super, err := s.Store.SuperRubrics(ctx)
	if err != nil {
		return RubricTree{}, err
	}
	sub, err := s.Store.SubRubrics(ctx)
	if err != nil {
		return RubricTree{}, err
	}
	return RubricTree{Super: super, Sub: sub}, nil
}

// Detail loads a listing by id. Inactive listings are still reachable by
// direct link.
func (s *Service) Detail(ctx context.Context, id uint) (*Detail, error) {
	l, err := s.Store.Listing(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, l)
}

func (s *Service) detail(ctx context.Context, l *models.Listing) (*Detail, error) {
	images, err := s.Store.AdditionalImages(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	comments, err := s.Store.ActiveComments(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if images == nil {
		images = []models.AdditionalImage{}
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return &Detail{Listing: l, Images: images, Comments: comments}, nil
}

// CommentForm returns the comment form variant for viewer, nil meaning a
// guest.
func (s *Service) CommentForm(viewer *models.User) forms.CommentForm {
	return forms.CommentFormFor(viewer, s.Captcha)
}

// PostComment validates and stores a comment on the listing, then tells its
// author when they asked for it.
func (s *Service) PostComment(ctx context.Context, viewer *models.User, listingID uint, values url.Values, remoteIP string) (*models.Comment, error) {
	l, err := s.Store.Listing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	form := s.CommentForm(viewer)
	data := form.Bind(values)
	errs, err := form.Validate(ctx, data, remoteIP)
	if err != nil {
		return nil, fmt.Errorf("validate comment: %w", err)
	}
	if errs.Any() {
		return nil, &FormError{Errors: errs, Form: data}
	}

	c := &models.Comment{
		ListingID: l.ID,
		Author:    data.Author,
		Content:   data.Content,
		IsActive:  true,
	}
	if err := s.Store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	s.commentCreated(ctx, l, c)
	return c, nil
}

func (s *Service) commentCreated(ctx context.Context, l *models.Listing, c *models.Comment) {
	log := s.Log.With().Uint("listing_id", l.ID).Uint("comment_id", c.ID).Logger()
	author, err := s.Store.User(ctx, l.AuthorID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("load listing author")
		}
		return
	}
	if !author.SendMessages {
		return
	}
	if err := s.Notifier.CommentCreated(ctx, author, l, c); err != nil {
		log.Error().Err(err).Uint("user_id", author.ID).Msg("notify new comment")
	}
}
