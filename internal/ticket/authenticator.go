package ticket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"fiscal/internal/authority"
	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fiscal_ticket_cache_hits_total",
		Help: "Ticket requests served from the store without a login",
	})
	logins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fiscal_ticket_logins_total",
		Help: "Login exchanges performed against the authority",
	})
)

// LoginClient is the slice of the authority client the authenticator needs.
type LoginClient interface {
	Login(ctx context.Context, service string, cred authority.Credential) (domain.Ticket, error)
}

// Authenticator returns a valid ticket for a service scope, logging in only
// when no cached ticket is usable. The authority rate-limits ticket issuance,
// so over-fetching must be avoided: cache hits make no network call, and
// concurrent renewals for the same (service, owner) collapse into a single
// login via singleflight.
type Authenticator struct {
	store  Store
	client LoginClient
	cred   authority.Credential
	cuit   int64
	logger *slog.Logger

	renewals singleflight.Group
}

func NewAuthenticator(store Store, client LoginClient, cred authority.Credential, cuit int64, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		store:  store,
		client: client,
		cred:   cred,
		cuit:   cuit,
		logger: logger,
	}
}

// Ticket returns a non-expired ticket for the service, renewing if needed.
// Renewal errors propagate unchanged; no retries happen at this layer.
func (a *Authenticator) Ticket(ctx context.Context, service string) (domain.Ticket, error) {
	cached, err := a.store.Find(ctx, service, a.cuit)
	if err == nil && cached.ValidAt(time.Now(), service, a.cuit) {
		cacheHits.Inc()
		return cached, nil
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return domain.Ticket{}, err
	}

	key := storeKey(service, a.cuit)
	result, err, _ := a.renewals.Do(key, func() (any, error) {
		// Another goroutine may have renewed while we waited on the flight.
		if t, err := a.store.Find(ctx, service, a.cuit); err == nil && t.ValidAt(time.Now(), service, a.cuit) {
			return t, nil
		}
		return a.login(ctx, service)
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result.(domain.Ticket), nil
}

// ActiveTicket returns any usable ticket for the service without triggering a
// login, for read-only callers.
func (a *Authenticator) ActiveTicket(ctx context.Context, service string) (domain.Ticket, error) {
	return a.store.FindAnyActive(ctx, service)
}

func (a *Authenticator) login(ctx context.Context, service string) (domain.Ticket, error) {
	t, err := a.client.Login(ctx, service, a.cred)
	if err != nil {
		return domain.Ticket{}, err
	}
	logins.Inc()
	if err := a.store.Save(ctx, t); err != nil {
		return domain.Ticket{}, err
	}
	a.logger.InfoContext(ctx, "ticket renewed",
		"service", service,
		"expires_at", t.ExpiresAt,
	)
	return t, nil
}
