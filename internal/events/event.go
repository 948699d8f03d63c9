// Package events publishes inventory changes to a message broker.
package events

import (
	"context"
	"time"
)

const (
	ReasonPurchase = "purchase"
	ReasonRestock  = "restock"
)

// StockChanged is emitted after a purchase or restock has been committed
type StockChanged struct {
	SweetID  string    `json:"sweet_id"`
	Name     string    `json:"name"`
	Change   int       `json:"change"` // negative for purchases
	Quantity int       `json:"quantity"`
	Actor    string    `json:"actor"`
	Reason   string    `json:"reason"`
	LowStock bool      `json:"low_stock"`
	At       time.Time `json:"at"`
}

// Publisher delivers stock events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishStockChanged(ctx context.Context, event StockChanged) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishStockChanged(context.Context, StockChanged) error { return nil }
func (NopPublisher) Close() error                                          { return nil }
