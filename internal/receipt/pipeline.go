package receipt

import (
	"fmt"

	"fiscal/internal/domain"
)

// In-memory filter/group helpers over owned receipt slices. The validation
// workflow operates on these instead of a storage engine so the batching
// logic stays decoupled from persistence.

// BatchKey identifies a homogeneous submission group. The authority requires
// every receipt in a batch to share the point of sale and receipt type.
type BatchKey struct {
	PointOfSales int
	ReceiptType  string
}

func (k BatchKey) String() string {
	return fmt.Sprintf("pos %d type %s", k.PointOfSales, k.ReceiptType)
}

// Pending returns the receipts not yet validated (no assigned number), in
// input order.
func Pending(receipts []domain.Receipt) []domain.Receipt {
	var out []domain.Receipt
	for _, r := range receipts {
		if r.Number == nil {
			out = append(out, r)
		}
	}
	return out
}

// Group is a batch-to-be: receipts sharing a key, in their original order.
type Group struct {
	Key      BatchKey
	Receipts []domain.Receipt
}

// GroupByBatch splits receipts into homogeneous groups, preserving first-seen
// key order and the input order within each group. Number assignment depends
// on that order being stable.
func GroupByBatch(receipts []domain.Receipt) []Group {
	index := make(map[BatchKey]int)
	var groups []Group
	for _, r := range receipts {
		key := BatchKey{
			PointOfSales: r.PointOfSales.Number,
			ReceiptType:  r.ReceiptType.Code,
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Receipts = append(groups[i].Receipts, r)
	}
	return groups
}
