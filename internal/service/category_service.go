package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sweet_shop/internal/model"
	"sweet_shop/internal/repository"

	"github.com/rs/zerolog"
)

type CategoryService interface {
	List(ctx context.Context, activeOnly bool) ([]model.Category, error)
	Get(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, req model.CreateCategoryRequest, actor string) (*model.Category, error)
	Update(ctx context.Context, id string, req model.UpdateCategoryRequest, actor string) (*model.Category, error)
	Delete(ctx context.Context, id string, actor string) error
	SweetsOf(ctx context.Context, id string) ([]model.Sweet, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	sweetRepo    repository.SweetRepository
	admins       AdminChecker
	logger       zerolog.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo repository.CategoryRepository, sweetRepo repository.SweetRepository, admins AdminChecker, logger zerolog.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		sweetRepo:    sweetRepo,
		admins:       admins,
		logger:       logger.With().Str("component", "categories").Logger(),
	}
}

func (s *categoryService) requireAdmin(ctx context.Context, actor string) error {
	ok, err := s.admins.IsAdmin(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *categoryService) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	categories, err := s.categoryRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Get(ctx context.Context, id string) (*model.Category, error) {
	if err := validateID(id, "category"); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func (s *categoryService) Create(ctx context.Context, req model.CreateCategoryRequest, actor string) (*model.Category, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidInput("category name is required")
	}
	existing, err := s.categoryRepo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}
	if existing != nil {
		return nil, ErrCategoryAlreadyExists
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	category := &model.Category{
		Name:        name,
		Description: req.Description,
		IsActive:    isActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info().Str("category_id", category.ID).Str("name", name).Str("actor", actor).Msg("category created")
	return category, nil
}

// Update rejects an empty patch and one that would not change anything
func (s *categoryService) Update(ctx context.Context, id string, req model.UpdateCategoryRequest, actor string) (*model.Category, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, ErrNoFieldsToUpdate
	}

	var patch model.UpdateCategoryRequest
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidInput("category name must not be empty")
		}
		if name != category.Name {
			other, err := s.categoryRepo.FindByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to check category name: %w", err)
			}
			if other != nil {
				return nil, ErrCategoryAlreadyExists
			}
			patch.Name = &name
		}
	}
	if req.Description != nil && *req.Description != category.Description {
		patch.Description = req.Description
	}
	if req.IsActive != nil && *req.IsActive != category.IsActive {
		patch.IsActive = req.IsActive
	}
	if patch.IsEmpty() {
		return nil, ErrNoChanges
	}

	updated, err := s.categoryRepo.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrCategoryAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return updated, nil
}

// Delete refuses to remove a category that sweets still reference by name
func (s *categoryService) Delete(ctx context.Context, id string, actor string) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}

	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	inUse, err := s.sweetRepo.CountByCategory(ctx, category.Name)
	if err != nil {
		return fmt.Errorf("failed to count sweets in category: %w", err)
	}
	if inUse > 0 {
		return fmt.Errorf("%w (%d sweets)", ErrCategoryInUse, inUse)
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.logger.Info().Str("category_id", id).Str("actor", actor).Msg("category deleted")
	return nil
}

func (s *categoryService) SweetsOf(ctx context.Context, id string) ([]model.Sweet, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sweets, err := s.sweetRepo.FindByCategory(ctx, category.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweets in category: %w", err)
	}
	return sweets, nil
}
