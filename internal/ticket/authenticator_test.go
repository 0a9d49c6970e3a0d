package ticket

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscal/internal/authority"
	"fiscal/internal/domain"
)

type fakeLoginClient struct {
	mu     sync.Mutex
	calls  atomic.Int64
	ticket domain.Ticket
	err    error
	delay  time.Duration
}

func (c *fakeLoginClient) Login(_ context.Context, service string, _ authority.Credential) (domain.Ticket, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return domain.Ticket{}, c.err
	}
	t := c.ticket
	t.Service = service
	return t, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const testCUIT = int64(20111111112)

func freshTicket() domain.Ticket {
	return domain.Ticket{
		OwnerCUIT: testCUIT,
		Token:     "tok",
		Sign:      "sig",
		ExpiresAt: time.Now().Add(12 * time.Hour),
	}
}

func TestTicketCacheHitMakesNoLogin(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	client := &fakeLoginClient{ticket: freshTicket()}
	auth := NewAuthenticator(store, client, authority.Credential{}, testCUIT, testLogger())

	first, err := auth.Ticket(ctx, "wsfe")
	require.NoError(t, err)
	require.Equal(t, int64(1), client.calls.Load())

	second, err := auth.Ticket(ctx, "wsfe")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), client.calls.Load(), "cached ticket must not trigger a login")
}

func TestTicketRenewsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	expired := freshTicket()
	expired.Service = "wsfe"
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, expired))

	client := &fakeLoginClient{ticket: freshTicket()}
	auth := NewAuthenticator(store, client, authority.Credential{}, testCUIT, testLogger())

	ticket, err := auth.Ticket(ctx, "wsfe")
	require.NoError(t, err)
	assert.Equal(t, int64(1), client.calls.Load())
	assert.True(t, ticket.ValidAt(time.Now(), "wsfe", testCUIT))

	stored, err := store.Find(ctx, "wsfe", testCUIT)
	require.NoError(t, err)
	assert.Equal(t, ticket, stored, "renewed ticket must supersede the stored one")
}

func TestTicketConcurrentRenewalsCollapse(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	client := &fakeLoginClient{ticket: freshTicket(), delay: 20 * time.Millisecond}
	auth := NewAuthenticator(store, client, authority.Credential{}, testCUIT, testLogger())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := auth.Ticket(ctx, "wsfe")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), client.calls.Load(), "concurrent renewals must share one login")
}

func TestTicketLoginErrorPropagates(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	authErr := &authority.AuthError{Reason: authority.AuthRateLimited, Msg: "coe.alreadyAuthenticated"}
	client := &fakeLoginClient{err: authErr}
	auth := NewAuthenticator(store, client, authority.Credential{}, testCUIT, testLogger())

	_, err := auth.Ticket(ctx, "wsfe")
	var got *authority.AuthError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, authority.AuthRateLimited, got.Reason)

	_, err = store.Find(ctx, "wsfe", testCUIT)
	assert.Error(t, err, "no ticket stored after a failed login")
}

func TestActiveTicketDoesNotLogin(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	client := &fakeLoginClient{ticket: freshTicket()}
	auth := NewAuthenticator(store, client, authority.Credential{}, testCUIT, testLogger())

	_, err := auth.ActiveTicket(ctx, "wsfe")
	assert.Error(t, err)
	assert.Equal(t, int64(0), client.calls.Load())

	active := freshTicket()
	active.Service = "wsfe"
	require.NoError(t, store.Save(ctx, active))

	found, err := auth.ActiveTicket(ctx, "wsfe")
	require.NoError(t, err)
	assert.Equal(t, active, found)
	assert.Equal(t, int64(0), client.calls.Load())
}
