package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sweet_shop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SweetRepository defines operations for sweet data
type SweetRepository interface {
	Create(ctx context.Context, sweet *model.Sweet) error
	FindByID(ctx context.Context, id string) (*model.Sweet, error)
	FindByName(ctx context.Context, name string) (*model.Sweet, error)
	FindAll(ctx context.Context, filters model.SweetFilters) ([]model.Sweet, error)
	FindByCategory(ctx context.Context, category string) ([]model.Sweet, error)
	CountByCategory(ctx context.Context, category string) (int, error)
	// Update writes only the non-nil fields of patch and returns the stored row.
	// It returns ErrNotFound for an unknown id.
	Update(ctx context.Context, id string, patch model.UpdateSweetRequest, at time.Time) (*model.Sweet, error)
	Delete(ctx context.Context, id string) error
	// DecrementQuantity subtracts n only if the current quantity is at least n.
	// It returns (nil, nil) for an unknown id and ErrInsufficientQuantity when stock is short.
	DecrementQuantity(ctx context.Context, id string, n int, at time.Time) (*model.Sweet, error)
	// IncrementQuantity adds n. It returns (nil, nil) for an unknown id.
	IncrementQuantity(ctx context.Context, id string, n int, at time.Time) (*model.Sweet, error)
}

type sweetRepository struct {
	db DB
}

// NewSweetRepository creates a new SweetRepository
func NewSweetRepository(db DB) SweetRepository {
	return &sweetRepository{db: db}
}

const sweetColumns = `id, name, category, price, quantity, created_at, updated_at`

func scanSweet(row scanner) (*model.Sweet, error) {
	s := &model.Sweet{}
	if err := row.Scan(&s.ID, &s.Name, &s.Category, &s.Price, &s.Quantity, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sweetRepository) querySweets(ctx context.Context, sql string, args ...any) ([]model.Sweet, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweets: %w", err)
	}
	defer rows.Close()

	sweets := []model.Sweet{}
	for rows.Next() {
		s, err := scanSweet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sweet row: %w", err)
		}
		sweets = append(sweets, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sweet rows: %w", err)
	}
	return sweets, nil
}

// Create inserts a new sweet into the database
func (r *sweetRepository) Create(ctx context.Context, s *model.Sweet) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	sql := `INSERT INTO sweets (id, name, category, price, quantity, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, sql, s.ID, s.Name, s.Category, s.Price, s.Quantity, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create sweet: %w", err)
	}
	return nil
}

// FindByID retrieves a sweet by its ID
func (r *sweetRepository) FindByID(ctx context.Context, id string) (*model.Sweet, error) {
	s, err := scanSweet(r.db.QueryRow(ctx, `SELECT `+sweetColumns+` FROM sweets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to find sweet by ID: %w", err)
	}
	return s, nil
}

// FindByName retrieves a sweet by its exact name
func (r *sweetRepository) FindByName(ctx context.Context, name string) (*model.Sweet, error) {
	s, err := scanSweet(r.db.QueryRow(ctx, `SELECT `+sweetColumns+` FROM sweets WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sweet by name: %w", err)
	}
	return s, nil
}

// FindAll retrieves sweets matching every provided filter
func (r *sweetRepository) FindAll(ctx context.Context, filters model.SweetFilters) ([]model.Sweet, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + sweetColumns + ` FROM sweets`)

	args := []interface{}{}
	argCount := 1
	var conditions []string

	if filters.Name != nil && *filters.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argCount))
		args = append(args, containsPattern(*filters.Name))
		argCount++
	}
	if filters.Category != nil && *filters.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category ILIKE $%d", argCount))
		args = append(args, containsPattern(*filters.Category))
		argCount++
	}
	if filters.PriceMin != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argCount))
		args = append(args, *filters.PriceMin)
		argCount++
	}
	if filters.PriceMax != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argCount))
		args = append(args, *filters.PriceMax)
		//argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY name")

	return r.querySweets(ctx, queryBuilder.String(), args...)
}

// FindByCategory retrieves sweets whose category equals the given name exactly
func (r *sweetRepository) FindByCategory(ctx context.Context, category string) ([]model.Sweet, error) {
	return r.querySweets(ctx, `SELECT `+sweetColumns+` FROM sweets WHERE category = $1 ORDER BY name`, category)
}

// CountByCategory counts sweets referencing a category name
func (r *sweetRepository) CountByCategory(ctx context.Context, category string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sweets WHERE category = $1`, category).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sweets by category: %w", err)
	}
	return count, nil
}

// Update applies a partial update. Columns missing from patch are never written,
// so concurrent stock changes are not overwritten.
func (r *sweetRepository) Update(ctx context.Context, id string, patch model.UpdateSweetRequest, at time.Time) (*model.Sweet, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE sweets SET ")

	args := []interface{}{}
	argCount := 1
	var sets []string

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argCount))
		args = append(args, *patch.Name)
		argCount++
	}
	if patch.Category != nil {
		sets = append(sets, fmt.Sprintf("category = $%d", argCount))
		args = append(args, *patch.Category)
		argCount++
	}
	if patch.Price != nil {
		sets = append(sets, fmt.Sprintf("price = $%d", argCount))
		args = append(args, *patch.Price)
		argCount++
	}
	if patch.Quantity != nil {
		sets = append(sets, fmt.Sprintf("quantity = $%d", argCount))
		args = append(args, *patch.Quantity)
		argCount++
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", argCount))
	args = append(args, at)
	argCount++

	queryBuilder.WriteString(strings.Join(sets, ", "))
	queryBuilder.WriteString(fmt.Sprintf(" WHERE id = $%d RETURNING ", argCount))
	queryBuilder.WriteString(sweetColumns)
	args = append(args, id)

	s, err := scanSweet(r.db.QueryRow(ctx, queryBuilder.String(), args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update sweet: %w", err)
	}
	return s, nil
}

// Delete removes a sweet from the database
func (r *sweetRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM sweets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sweet: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementQuantity performs the purchase transition as one conditional statement
func (r *sweetRepository) DecrementQuantity(ctx context.Context, id string, n int, at time.Time) (*model.Sweet, error) {
	sql := `UPDATE sweets SET quantity = quantity - $1, updated_at = $2
            WHERE id = $3 AND quantity >= $1
            RETURNING ` + sweetColumns
	s, err := scanSweet(r.db.QueryRow(ctx, sql, n, at, id))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to decrement sweet quantity: %w", err)
	}

	// No row was updated: either the sweet is unknown or stock is short.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sweets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check sweet existence: %w", err)
	}
	if !exists {
		return nil, nil
	}
	return nil, ErrInsufficientQuantity
}

// IncrementQuantity performs the restock transition
func (r *sweetRepository) IncrementQuantity(ctx context.Context, id string, n int, at time.Time) (*model.Sweet, error) {
	sql := `UPDATE sweets SET quantity = quantity + $1, updated_at = $2
            WHERE id = $3
            RETURNING ` + sweetColumns
	s, err := scanSweet(r.db.QueryRow(ctx, sql, n, at, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to increment sweet quantity: %w", err)
	}
	return s, nil
}
