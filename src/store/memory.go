package store

import (
	"context"
	"sync"

	"status-relay/src/contracts"
)

// DefaultMemoryCapacity is how many deliveries MemoryStore keeps.
const DefaultMemoryCapacity = 1000

// MemoryStore is an in-memory implementation of Store.
// It keeps the most recent deliveries and drops the oldest beyond its capacity.
type MemoryStore struct {
	mu         sync.RWMutex
	capacity   int
	deliveries []contracts.Delivery // oldest first
	byID       map[string]int       // id -> index into deliveries
}

// NewMemoryStore creates a new in-memory store holding up to capacity deliveries.
// A non-positive capacity uses DefaultMemoryCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		byID:     make(map[string]int),
	}
}

// SaveDelivery appends a delivery, evicting the oldest when full.
// Saving an existing ID replaces the stored record.
func (s *MemoryStore) SaveDelivery(ctx context.Context, delivery *contracts.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.byID[delivery.ID]; ok {
		s.deliveries[idx] = *delivery
		return nil
	}

	s.deliveries = append(s.deliveries, *delivery)
	if len(s.deliveries) > s.capacity {
		s.deliveries = append([]contracts.Delivery(nil), s.deliveries[len(s.deliveries)-s.capacity:]...)
		s.reindex()
		return nil
	}
	s.byID[delivery.ID] = len(s.deliveries) - 1
	return nil
}

func (s *MemoryStore) reindex() {
	s.byID = make(map[string]int, len(s.deliveries))
	for i, d := range s.deliveries {
		s.byID[d.ID] = i
	}
}

// GetDelivery returns a copy of the delivery with the given ID.
func (s *MemoryStore) GetDelivery(ctx context.Context, id string) (*contracts.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound{ID: id}
	}
	d := s.deliveries[idx]
	return &d, nil
}

// ListDeliveries returns matching deliveries, newest first.
func (s *MemoryStore) ListDeliveries(ctx context.Context, filter contracts.DeliveryFilter) ([]contracts.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := limitOf(filter)
	result := []contracts.Delivery{}
	for i := len(s.deliveries) - 1; i >= 0 && len(result) < limit; i-- {
		if filter.Matches(s.deliveries[i]) {
			result = append(result, s.deliveries[i])
		}
	}
	return result, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
