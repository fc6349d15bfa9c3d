// Package store defines the interface for the delivery log.
package store

import (
	"context"
	"fmt"

	"status-relay/src/contracts"
)

// DefaultListLimit caps ListDeliveries when the filter sets no limit.
const DefaultListLimit = 50

// Store persists delivery records.
type Store interface {
	// SaveDelivery records one forwarding attempt
	SaveDelivery(ctx context.Context, delivery *contracts.Delivery) error

	// GetDelivery returns a delivery by ID
	GetDelivery(ctx context.Context, id string) (*contracts.Delivery, error)

	// ListDeliveries returns matching deliveries, newest first
	ListDeliveries(ctx context.Context, filter contracts.DeliveryFilter) ([]contracts.Delivery, error)

	// Close closes the store connection
	Close() error
}

// ErrNotFound is returned when a delivery does not exist.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("delivery not found: %s", e.ID)
}

func limitOf(filter contracts.DeliveryFilter) int {
	if filter.Limit <= 0 {
		return DefaultListLimit
	}
	return filter.Limit
}
