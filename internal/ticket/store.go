package ticket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

// Store holds authentication tickets keyed by (service, owner CUIT). Tickets
// are immutable; Save on an existing key supersedes the previous ticket.
// Implementations must be safe for concurrent readers.
type Store interface {
	Save(ctx context.Context, t domain.Ticket) error
	Find(ctx context.Context, service string, ownerCUIT int64) (domain.Ticket, error)
	// FindAnyActive returns any non-expired ticket for the service regardless
	// of owner, for callers that only need read access to the authority.
	FindAnyActive(ctx context.Context, service string) (domain.Ticket, error)
}

func storeKey(service string, ownerCUIT int64) string {
	return fmt.Sprintf("%s:%d", service, ownerCUIT)
}

// InMemoryStore keeps tickets in a mutex-guarded map. It intentionally favors
// clarity over performance; the ticket population is tiny.
type InMemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tickets: make(map[string]domain.Ticket)}
}

func (s *InMemoryStore) Save(_ context.Context, t domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[storeKey(t.Service, t.OwnerCUIT)] = t
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, service string, ownerCUIT int64) (domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tickets[storeKey(service, ownerCUIT)]; ok {
		return t, nil
	}
	return domain.Ticket{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindAnyActive(_ context.Context, service string) (domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	for _, t := range s.tickets {
		if t.Service == service && !t.Expired(now) {
			return t, nil
		}
	}
	return domain.Ticket{}, sentinel.ErrNotFound
}
