// Package seed loads the sample catalog used for demos and local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sweet_shop/internal/model"
	"sweet_shop/internal/repository"

	"github.com/rs/zerolog"
)

var Categories = []model.Category{
	{Name: "Chocolate", Description: "Bars, truffles and anything cocoa", IsActive: true},
	{Name: "Gummy", Description: "Chewy gelatin and pectin sweets", IsActive: true},
	{Name: "Hard Candy", Description: "Lollipops and boiled sweets", IsActive: true},
	{Name: "Caramel", Description: "Toffees and caramels", IsActive: true},
	{Name: "Sour", Description: "Sour coated candy", IsActive: true},
}

var Sweets = []model.Sweet{
	{Name: "Chocolate Bar", Category: "Chocolate", Price: 2.50, Quantity: 100},
	{Name: "Gummy Bears", Category: "Gummy", Price: 1.75, Quantity: 150},
	{Name: "Lollipop", Category: "Hard Candy", Price: 0.99, Quantity: 200},
	{Name: "Chocolate Truffles", Category: "Chocolate", Price: 4.99, Quantity: 50},
	{Name: "Jelly Beans", Category: "Gummy", Price: 3.25, Quantity: 120},
	{Name: "Caramel Candy", Category: "Caramel", Price: 2.00, Quantity: 80},
	{Name: "Mint Chocolate", Category: "Chocolate", Price: 3.50, Quantity: 90},
	{Name: "Sour Patch Kids", Category: "Sour", Price: 2.25, Quantity: 110},
}

// Result counts what Run inserted and what already existed
type Result struct {
	Categories int
	Sweets     int
	Skipped    int
}

// Run inserts the sample categories and sweets. Records whose name already
// exists are skipped, so it is safe to run repeatedly.
func Run(ctx context.Context, repos repository.Repositories, logger zerolog.Logger) (Result, error) {
	var res Result
	now := time.Now().UTC()

	for _, c := range Categories {
		category := c
		category.CreatedAt = now
		err := repos.Categories.Create(ctx, &category)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		default:
			res.Categories++
			logger.Debug().Str("name", c.Name).Msg("seeded category")
		}
	}

	for _, s := range Sweets {
		sweet := s
		sweet.CreatedAt = now
		sweet.UpdatedAt = now
		err := repos.Sweets.Create(ctx, &sweet)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("failed to seed sweet %s: %w", s.Name, err)
		default:
			res.Sweets++
			logger.Debug().Str("name", s.Name).Msg("seeded sweet")
		}
	}

	logger.Info().Int("categories", res.Categories).Int("sweets", res.Sweets).Int("skipped", res.Skipped).Msg("seed complete")
	return res, nil
}
