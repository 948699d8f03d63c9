package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sweet_shop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CategoryRepository defines operations for category data
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id string) (*model.Category, error)
	FindByName(ctx context.Context, name string) (*model.Category, error)
	FindAll(ctx context.Context, activeOnly bool) ([]model.Category, error)
	// Update writes only the non-nil fields of patch; ErrNotFound for an unknown id
	Update(ctx context.Context, id string, patch model.UpdateCategoryRequest) (*model.Category, error)
	Delete(ctx context.Context, id string) error
}

type categoryRepository struct {
	db DB
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, description, is_active, created_at`

func scanCategory(row scanner) (*model.Category, error) {
	c := &model.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	sql := `INSERT INTO categories (id, name, description, is_active, created_at)
            VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, sql, c.ID, c.Name, c.Description, c.IsActive, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find category by name: %w", err)
	}
	return c, nil
}

// FindAll lists categories ordered by name, optionally only active ones
func (r *categoryRepository) FindAll(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	sql := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		sql += ` WHERE is_active = TRUE`
	}
	sql += ` ORDER BY name`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, id string, patch model.UpdateCategoryRequest) (*model.Category, error) {
	args := []interface{}{}
	argCount := 1
	var sets []string

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argCount))
		args = append(args, *patch.Name)
		argCount++
	}
	if patch.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argCount))
		args = append(args, *patch.Description)
		argCount++
	}
	if patch.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", argCount))
		args = append(args, *patch.IsActive)
		argCount++
	}
	if len(sets) == 0 {
		c, err := r.FindByID(ctx, id)
		if err == nil && c == nil {
			return nil, ErrNotFound
		}
		return c, err
	}

	sql := fmt.Sprintf("UPDATE categories SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), argCount, categoryColumns)
	args = append(args, id)

	c, err := scanCategory(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
