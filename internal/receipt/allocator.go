package receipt

import (
	"context"
	"strconv"

	"fiscal/internal/authority"
	"fiscal/internal/domain"
)

// NumberClient is the slice of the authority client the allocator needs.
type NumberClient interface {
	LastAuthorized(ctx context.Context, ticket domain.Ticket, pointOfSales, receiptType int) (int64, error)
}

// Allocator asks the authority for the last consumed receipt number per
// (point of sale, receipt type). The authority is the sole source of truth:
// concurrent external actors may submit under the same credentials, so
// results are never cached and must be re-queried immediately before each
// batch submission.
type Allocator struct {
	client NumberClient
}

func NewAllocator(client NumberClient) *Allocator {
	return &Allocator{client: client}
}

// LastNumber returns the last receipt number the authority has on record.
func (a *Allocator) LastNumber(ctx context.Context, ticket domain.Ticket, pointOfSales int, receiptType string) (int64, error) {
	code, err := strconv.Atoi(receiptType)
	if err != nil {
		return 0, err
	}
	return a.client.LastAuthorized(ctx, ticket, pointOfSales, code)
}

// NextNumber returns the number the next submitted receipt will take.
func (a *Allocator) NextNumber(ctx context.Context, ticket domain.Ticket, pointOfSales int, receiptType string) (int64, error) {
	last, err := a.LastNumber(ctx, ticket, pointOfSales, receiptType)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

var _ NumberClient = (*authority.Client)(nil)
