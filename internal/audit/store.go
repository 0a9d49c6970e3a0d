package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store is an append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByReceipt(ctx context.Context, receiptID uuid.UUID) ([]Event, error)
}

// InMemoryStore keeps events in order, for tests and development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByReceipt(_ context.Context, receiptID uuid.UUID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.ReceiptID == receiptID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded event, for tests.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}
