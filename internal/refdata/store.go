package refdata

import (
	"context"
	"sync"

	"fiscal/internal/domain"
)

// Tables is one consistent snapshot of the authority's reference data.
type Tables struct {
	ReceiptTypes  []domain.ReceiptType
	ConceptTypes  []domain.ConceptType
	DocumentTypes []domain.DocumentType
	VatTypes      []domain.VatType
	TaxTypes      []domain.TaxType
	Currencies    []domain.CurrencyType
	PointsOfSales []domain.PointOfSales
}

// Store caches reference tables locally. Replace swaps the whole snapshot;
// rows are read-mostly and refreshed on demand.
type Store interface {
	Replace(ctx context.Context, t Tables) error
	Load(ctx context.Context) (Tables, error)
}

// InMemoryStore keeps the snapshot behind a RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	tables Tables
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Replace(_ context.Context, t Tables) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = t
	return nil
}

func (s *InMemoryStore) Load(_ context.Context) (Tables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables, nil
}
