package domain

import "time"

// Ticket is a short-lived signed credential issued by the authority's login
// service. It is immutable after issuance; renewal produces a new Ticket that
// supersedes the old one in the store.
type Ticket struct {
	Service     string // authority service scope, e.g. "wsfe"
	OwnerCUIT   int64  // taxpayer the ticket was issued to
	UniqueID    uint32 // login request correlation id
	GeneratedAt time.Time
	ExpiresAt   time.Time
	Token       string
	Sign        string
}

// ValidAt reports whether the ticket can authenticate calls at the given
// instant for the given service and owner.
func (t Ticket) ValidAt(now time.Time, service string, ownerCUIT int64) bool {
	return t.Service == service && t.OwnerCUIT == ownerCUIT && now.Before(t.ExpiresAt)
}

// Expired reports whether the ticket is past its expiration.
func (t Ticket) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
