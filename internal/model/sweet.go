package model

import "time"

// Sweet is a priced, quantified catalog item
type Sweet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"` // Category.Name, not its ID
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSweetRequest is used for adding a sweet to the catalog
type CreateSweetRequest struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category" binding:"required"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity" binding:"gte=0"`
}

type UpdateSweetRequest struct {
	Name     *string  `json:"name,omitempty"` // Pointers to allow partial updates
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty" binding:"omitempty,gte=0"`
	Quantity *int     `json:"quantity,omitempty" binding:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch carries no fields
func (r UpdateSweetRequest) IsEmpty() bool {
	return r.Name == nil && r.Category == nil && r.Price == nil && r.Quantity == nil
}

// QuantityRequest is the body of purchase and restock calls
type QuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// SweetFilters contains the optional, AND-ed search parameters
type SweetFilters struct {
	Name     *string
	Category *string
	PriceMin *float64
	PriceMax *float64
}

type PurchaseResult struct {
	Message           string `json:"message"`
	RemainingQuantity int    `json:"remaining_quantity"`
}

type RestockResult struct {
	Message     string `json:"message"`
	NewQuantity int    `json:"new_quantity"`
}
