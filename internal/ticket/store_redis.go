package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

const (
	// Redis key prefix for cached tickets.
	ticketKeyPrefix = "ticket:"
	// Index set of keys per service, for FindAnyActive.
	serviceIndexPrefix = "ticket:service:"
)

// RedisStore is a Redis-backed ticket store. This is the recommended
// implementation when several gateway instances share credentials, so renewal
// in one instance is visible to all and the authority's issuance rate limit
// is not tripped by redundant logins.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisTicket struct {
	Service     string    `json:"service"`
	OwnerCUIT   int64     `json:"owner_cuit"`
	UniqueID    uint32    `json:"unique_id"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Token       string    `json:"token"`
	Sign        string    `json:"sign"`
}

// Save stores the ticket with a TTL equal to its remaining validity so Redis
// evicts expired tickets on its own.
func (s *RedisStore) Save(ctx context.Context, t domain.Ticket) error {
	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("ticket already expired: %w", sentinel.ErrInvalidState)
	}
	payload, err := json.Marshal(redisTicket{
		Service:     t.Service,
		OwnerCUIT:   t.OwnerCUIT,
		UniqueID:    t.UniqueID,
		GeneratedAt: t.GeneratedAt,
		ExpiresAt:   t.ExpiresAt,
		Token:       t.Token,
		Sign:        t.Sign,
	})
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}

	key := ticketKeyPrefix + storeKey(t.Service, t.OwnerCUIT)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, payload, ttl)
	pipe.SAdd(ctx, serviceIndexPrefix+t.Service, key)
	pipe.Expire(ctx, serviceIndexPrefix+t.Service, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Find(ctx context.Context, service string, ownerCUIT int64) (domain.Ticket, error) {
	key := ticketKeyPrefix + storeKey(service, ownerCUIT)
	return s.get(ctx, key)
}

func (s *RedisStore) FindAnyActive(ctx context.Context, service string) (domain.Ticket, error) {
	keys, err := s.client.SMembers(ctx, serviceIndexPrefix+service).Result()
	if err != nil {
		return domain.Ticket{}, err
	}
	for _, key := range keys {
		t, err := s.get(ctx, key)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.Ticket{}, err
		}
		if !t.Expired(time.Now()) {
			return t, nil
		}
	}
	return domain.Ticket{}, sentinel.ErrNotFound
}

func (s *RedisStore) get(ctx context.Context, key string) (domain.Ticket, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Ticket{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.Ticket{}, err
	}
	var rt redisTicket
	if err := json.Unmarshal(raw, &rt); err != nil {
		return domain.Ticket{}, fmt.Errorf("unmarshal ticket: %w", err)
	}
	return domain.Ticket{
		Service:     rt.Service,
		OwnerCUIT:   rt.OwnerCUIT,
		UniqueID:    rt.UniqueID,
		GeneratedAt: rt.GeneratedAt,
		ExpiresAt:   rt.ExpiresAt,
		Token:       rt.Token,
		Sign:        rt.Sign,
	}, nil
}
