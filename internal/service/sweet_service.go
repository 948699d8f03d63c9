package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sweet_shop/internal/events"
	"sweet_shop/internal/model"
	"sweet_shop/internal/repository"

	"github.com/rs/zerolog"
)

const publishTimeout = 3 * time.Second

// SweetService owns the catalog and its stock transitions
type SweetService interface {
	List(ctx context.Context) ([]model.Sweet, error)
	Get(ctx context.Context, id string) (*model.Sweet, error)
	Search(ctx context.Context, filters model.SweetFilters) ([]model.Sweet, error)
	Create(ctx context.Context, req model.CreateSweetRequest, actor string) (*model.Sweet, error)
	Update(ctx context.Context, id string, req model.UpdateSweetRequest, actor string) (*model.Sweet, error)
	Delete(ctx context.Context, id string, actor string) error
	Purchase(ctx context.Context, id string, quantity int, actor string) (*model.PurchaseResult, error)
	Restock(ctx context.Context, id string, quantity int, actor string) (*model.RestockResult, error)
}

type sweetService struct {
	sweetRepo         repository.SweetRepository
	admins            AdminChecker
	publisher         events.Publisher
	lowStockThreshold int
	logger            zerolog.Logger
}

// NewSweetService creates a new SweetService. A nil publisher disables stock events.
func NewSweetService(sweetRepo repository.SweetRepository, admins AdminChecker, publisher events.Publisher, lowStockThreshold int, logger zerolog.Logger) SweetService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &sweetService{
		sweetRepo:         sweetRepo,
		admins:            admins,
		publisher:         publisher,
		lowStockThreshold: lowStockThreshold,
		logger:            logger.With().Str("component", "sweets").Logger(),
	}
}

func (s *sweetService) requireAdmin(ctx context.Context, actor string) error {
	ok, err := s.admins.IsAdmin(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *sweetService) List(ctx context.Context) ([]model.Sweet, error) {
	sweets, err := s.sweetRepo.FindAll(ctx, model.SweetFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list sweets: %w", err)
	}
	return sweets, nil
}

func (s *sweetService) Get(ctx context.Context, id string) (*model.Sweet, error) {
	if err := validateID(id, "sweet"); err != nil {
		return nil, err
	}
	sweet, err := s.sweetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sweet: %w", err)
	}
	if sweet == nil {
		return nil, ErrSweetNotFound
	}
	return sweet, nil
}

// Search matches name and category case-insensitively; price bounds are inclusive
func (s *sweetService) Search(ctx context.Context, filters model.SweetFilters) ([]model.Sweet, error) {
	if filters.PriceMin != nil && *filters.PriceMin < 0 {
		return nil, invalidInput("price_min must not be negative")
	}
	if filters.PriceMax != nil && *filters.PriceMax < 0 {
		return nil, invalidInput("price_max must not be negative")
	}
	if filters.PriceMin != nil && filters.PriceMax != nil && *filters.PriceMin > *filters.PriceMax {
		return nil, invalidInput("price_min must not exceed price_max")
	}

	sweets, err := s.sweetRepo.FindAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search sweets: %w", err)
	}
	return sweets, nil
}

func (s *sweetService) Create(ctx context.Context, req model.CreateSweetRequest, actor string) (*model.Sweet, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" || category == "" {
		return nil, invalidInput("name and category are required")
	}
	if req.Price < 0 || req.Quantity < 0 {
		return nil, invalidInput("price and quantity must not be negative")
	}

	existing, err := s.sweetRepo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check sweet name: %w", err)
	}
	if existing != nil {
		return nil, ErrSweetAlreadyExists
	}

	now := time.Now().UTC()
	sweet := &model.Sweet{
		Name:      name,
		Category:  category,
		Price:     req.Price,
		Quantity:  req.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sweetRepo.Create(ctx, sweet); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSweetAlreadyExists
		}
		return nil, fmt.Errorf("failed to create sweet: %w", err)
	}

	s.logger.Info().Str("sweet_id", sweet.ID).Str("name", sweet.Name).Str("actor", actor).Msg("sweet created")
	return sweet, nil
}

// Update applies the provided fields only. An empty patch returns the sweet as stored.
func (s *sweetService) Update(ctx context.Context, id string, req model.UpdateSweetRequest, actor string) (*model.Sweet, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	sweet, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return sweet, nil
	}

	var patch model.UpdateSweetRequest
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidInput("name must not be empty")
		}
		if name != sweet.Name {
			other, err := s.sweetRepo.FindByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to check sweet name: %w", err)
			}
			if other != nil && other.ID != sweet.ID {
				return nil, ErrSweetAlreadyExists
			}
		}
		patch.Name = &name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, invalidInput("category must not be empty")
		}
		patch.Category = &category
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, invalidInput("price must not be negative")
		}
		patch.Price = req.Price
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, invalidInput("quantity must not be negative")
		}
		patch.Quantity = req.Quantity
	}

	// only patched columns are written; stock moved by a concurrent purchase survives
	updated, err := s.sweetRepo.Update(ctx, id, patch, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrSweetAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrSweetNotFound
		}
		return nil, fmt.Errorf("failed to update sweet: %w", err)
	}
	return updated, nil
}

func (s *sweetService) Delete(ctx context.Context, id string, actor string) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := validateID(id, "sweet"); err != nil {
		return err
	}
	if err := s.sweetRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSweetNotFound
		}
		return fmt.Errorf("failed to delete sweet: %w", err)
	}
	s.logger.Info().Str("sweet_id", id).Str("actor", actor).Msg("sweet deleted")
	return nil
}

// Purchase is open to any authenticated user. The decrement happens in a single
// conditional store operation so concurrent buyers cannot oversell.
func (s *sweetService) Purchase(ctx context.Context, id string, quantity int, actor string) (*model.PurchaseResult, error) {
	if actor == "" {
		return nil, ErrInvalidToken
	}
	if err := validateID(id, "sweet"); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, invalidInput("quantity must be greater than zero")
	}

	sweet, err := s.sweetRepo.DecrementQuantity(ctx, id, quantity, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientQuantity) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("failed to purchase sweet: %w", err)
	}
	if sweet == nil {
		return nil, ErrSweetNotFound
	}

	s.publish(ctx, sweet, -quantity, actor, events.ReasonPurchase)
	return &model.PurchaseResult{
		Message:           fmt.Sprintf("Successfully purchased %d %s(s)", quantity, sweet.Name),
		RemainingQuantity: sweet.Quantity,
	}, nil
}

func (s *sweetService) Restock(ctx context.Context, id string, quantity int, actor string) (*model.RestockResult, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := validateID(id, "sweet"); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, invalidInput("quantity must be greater than zero")
	}

	sweet, err := s.sweetRepo.IncrementQuantity(ctx, id, quantity, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to restock sweet: %w", err)
	}
	if sweet == nil {
		return nil, ErrSweetNotFound
	}

	s.publish(ctx, sweet, quantity, actor, events.ReasonRestock)
	return &model.RestockResult{
		Message:     fmt.Sprintf("Successfully restocked %d %s(s)", quantity, sweet.Name),
		NewQuantity: sweet.Quantity,
	}, nil
}

// publish never fails the caller; the stock change is already committed
func (s *sweetService) publish(ctx context.Context, sweet *model.Sweet, change int, actor, reason string) {
	event := events.StockChanged{
		SweetID:  sweet.ID,
		Name:     sweet.Name,
		Change:   change,
		Quantity: sweet.Quantity,
		Actor:    actor,
		Reason:   reason,
		LowStock: sweet.Quantity <= s.lowStockThreshold,
		At:       sweet.UpdatedAt,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishStockChanged(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("sweet_id", sweet.ID).Str("reason", reason).Msg("failed to publish stock event")
		return
	}
	if event.LowStock {
		s.logger.Info().Str("sweet_id", sweet.ID).Int("quantity", sweet.Quantity).Msg("sweet is low on stock")
	}
}
