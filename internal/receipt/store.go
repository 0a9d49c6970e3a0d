package receipt

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

// Store persists receipts and their validation outcomes. The reconciler is
// the only writer of numbers and validations; a receipt is persisted with a
// number if and only if its approval is persisted alongside it.
type Store interface {
	Save(ctx context.Context, r domain.Receipt) error
	Find(ctx context.Context, id uuid.UUID) (domain.Receipt, error)
	ListPending(ctx context.Context) ([]domain.Receipt, error)
}

// InMemoryStore keeps receipts in a mutex-guarded map, for tests and
// single-process deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	receipts map[uuid.UUID]domain.Receipt
	order    []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{receipts: make(map[uuid.UUID]domain.Receipt)}
}

func (s *InMemoryStore) Save(_ context.Context, r domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.receipts[r.ID] = r
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, id uuid.UUID) (domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.receipts[id]; ok {
		return r, nil
	}
	return domain.Receipt{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Receipt
	for _, id := range s.order {
		if r := s.receipts[id]; r.Number == nil {
			out = append(out, r)
		}
	}
	return out, nil
}
