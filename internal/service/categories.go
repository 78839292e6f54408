package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/models"
	"github.com/punchamoorthee/expensemanager/internal/store"
	"github.com/punchamoorthee/expensemanager/internal/views"
)

type CategoryService struct {
	categories store.CategoryStore
	views      views.Cacher
	log        zerolog.Logger
}

func NewCategoryService(categories store.CategoryStore, v views.Cacher, log zerolog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		views:      v,
		log:        log.With().Str("component", "categories").Logger(),
	}
}

func (s *CategoryService) Create(ctx context.Context, req models.CategoryRequest) (*domain.Category, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCategory(req); err != nil {
		return nil, err
	}

	c := &domain.Category{
		UserID:   &owner,
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Color:    req.Color,
		Icon:     req.Icon,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := s.categories.InsertCategory(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(owner)
	return c, nil
}

// Update edits one of the caller's own categories. System categories are
// read-only.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req models.CategoryRequest) (*domain.Category, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCategory(req); err != nil {
		return nil, err
	}

	c, err := s.categories.GetCategory(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if c.IsSystem || c.UserID == nil {
		return nil, domain.ErrSystemEntityProtected
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Type = req.Type
	c.Color = req.Color
	c.Icon = req.Icon
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(owner)
	return c, nil
}

// Delete removes an own category. Transactions that used it become
// uncategorized.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	c, err := s.categories.GetCategory(ctx, id, owner)
	if err != nil {
		return err
	}
	if c.IsSystem || c.UserID == nil {
		return domain.ErrSystemEntityProtected
	}
	if err := s.categories.DeleteCategory(ctx, id, owner); err != nil {
		return err
	}

	s.log.Info().Str("category_id", id.String()).Msg("category deleted")
	s.invalidate(owner)
	// Its transactions are now uncategorized.
	s.views.MarkStale(owner, views.KeyTransactions)
	return nil
}

// List returns own and system categories, own first.
func (s *CategoryService) List(ctx context.Context, filter store.CategoryFilter) ([]*domain.Category, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown category type %q", domain.ErrInvalidInput, filter.Type)
	}
	load := func() ([]*domain.Category, error) { return s.categories.ListCategories(ctx, owner, filter) }
	if filter == (store.CategoryFilter{}) {
		return views.Cached(s.views, owner, views.KeyCategories, load)
	}
	return load()
}

func (s *CategoryService) invalidate(owner uuid.UUID) {
	s.views.MarkStale(owner, views.KeyCategories, views.KeyDashboard)
}

func validateCategory(req models.CategoryRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown category type %q", domain.ErrInvalidInput, req.Type)
	}
	return nil
}
