package receipt

import (
	"context"
	"log/slog"
	"strconv"

	"fiscal/internal/authority"
	"fiscal/internal/domain"
)

// BatchClient is the slice of the authority client the batcher needs.
type BatchClient interface {
	AuthorizeBatch(ctx context.Context, ticket domain.Ticket, batch authority.BatchRequest) (authority.BatchResponse, error)
}

// Batcher groups pending receipts into authority-compliant batches, assigns
// sequential numbers and submits each batch exactly once.
//
// Number assignment is speculative until the authority answers: a transport
// failure consumes nothing and nothing is persisted, so the next attempt
// re-queries the allocator. Concurrent Validate calls touching the same
// (point of sale, receipt type) pair are the caller's responsibility to
// serialize; the authority is unaware of concurrent local actors.
type Batcher struct {
	allocator  *Allocator
	client     BatchClient
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewBatcher(allocator *Allocator, client BatchClient, reconciler *Reconciler, logger *slog.Logger) *Batcher {
	return &Batcher{
		allocator:  allocator,
		client:     client,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Result is the outcome of one Validate call: approvals and rejections side
// by side. Partial success is preserved: groups reconciled before a failure
// stay validated.
type Result struct {
	Approved []domain.Receipt
	Rejected []Rejection
}

// Validate submits every pending receipt in the input. Already-validated
// receipts are filtered out. Returns the accumulated result alongside any
// transport/auth error; on error, groups not yet submitted have consumed no
// numbers.
func (b *Batcher) Validate(ctx context.Context, ticket domain.Ticket, receipts []domain.Receipt) (Result, error) {
	var result Result

	pending := Pending(receipts)
	if len(pending) == 0 {
		return result, nil
	}

	// Notes that do not reference the receipts they amend are rejected
	// locally; the authority would bounce them anyway.
	submittable := make([]domain.Receipt, 0, len(pending))
	for _, r := range pending {
		if r.IsCreditOrDebitNote() && len(r.RelatedReceipts) == 0 {
			result.Rejected = append(result.Rejected, Rejection{
				Receipt: r,
				Message: "credit/debit note must reference related receipts",
			})
			continue
		}
		submittable = append(submittable, r)
	}

	for _, group := range GroupByBatch(submittable) {
		last, err := b.allocator.LastNumber(ctx, ticket, group.Key.PointOfSales, group.Key.ReceiptType)
		if err != nil {
			return result, err
		}

		typeCode, err := strconv.Atoi(group.Key.ReceiptType)
		if err != nil {
			return result, err
		}

		batch := authority.BatchRequest{
			PointOfSales: group.Key.PointOfSales,
			ReceiptType:  typeCode,
		}
		assigned := make([]int64, len(group.Receipts))
		for i, r := range group.Receipts {
			assigned[i] = last + 1 + int64(i)
			detail, err := buildDetail(r, assigned[i])
			if err != nil {
				return result, err
			}
			batch.Details = append(batch.Details, detail)
		}

		b.logger.InfoContext(ctx, "submitting batch",
			"point_of_sales", group.Key.PointOfSales,
			"receipt_type", group.Key.ReceiptType,
			"size", len(group.Receipts),
			"first_number", assigned[0],
		)

		resp, err := b.client.AuthorizeBatch(ctx, ticket, batch)
		if err != nil {
			// Nothing persisted for this group; numbers were never consumed.
			return result, err
		}

		approved, rejected, err := b.reconciler.Apply(ctx, group.Receipts, assigned, resp)
		result.Approved = append(result.Approved, approved...)
		result.Rejected = append(result.Rejected, rejected...)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

func buildDetail(r domain.Receipt, number int64) (authority.ReceiptDetail, error) {
	concept, err := strconv.Atoi(r.Concept.Code)
	if err != nil {
		return authority.ReceiptDetail{}, err
	}
	docType, err := strconv.Atoi(r.DocumentType.Code)
	if err != nil {
		return authority.ReceiptDetail{}, err
	}

	detail := authority.ReceiptDetail{
		Concept:        concept,
		DocumentType:   docType,
		DocumentNumber: r.DocumentNumber,
		NumberFrom:     number,
		NumberTo:       number,
		Date:           r.IssuedDate.Format(authority.DateLayout),
		TotalAmount:    r.TotalAmount.StringFixed(2),
		NetUntaxed:     r.NetUntaxed.StringFixed(2),
		NetTaxed:       r.NetTaxed.StringFixed(2),
		ExemptAmount:   r.ExemptAmount.StringFixed(2),
		TaxAmount:      r.TotalTax().StringFixed(2),
		VatAmount:      r.TotalVat().StringFixed(2),
		CurrencyID:     r.Currency.Code,
		CurrencyQuote:  r.CurrencyQuote.String(),
	}

	// Service concepts require the service period and payment due date.
	if r.IsService() {
		detail.ServiceStart = r.ServiceStart.Format(authority.DateLayout)
		detail.ServiceEnd = r.ServiceEnd.Format(authority.DateLayout)
		detail.PaymentDue = r.ExpirationDate.Format(authority.DateLayout)
	}

	for _, rel := range r.RelatedReceipts {
		relType, err := strconv.Atoi(rel.ReceiptType.Code)
		if err != nil {
			return authority.ReceiptDetail{}, err
		}
		detail.Related = append(detail.Related, authority.RelatedDetail{
			ReceiptType:  relType,
			PointOfSales: rel.PointOfSales,
			Number:       rel.Number,
		})
	}
	for _, t := range r.Taxes {
		taxType, err := strconv.Atoi(t.Type.Code)
		if err != nil {
			return authority.ReceiptDetail{}, err
		}
		detail.Taxes = append(detail.Taxes, authority.TaxDetail{
			ID:          taxType,
			Description: t.Description,
			BaseAmount:  t.BaseAmount.StringFixed(2),
			Aliquot:     t.Aliquot.StringFixed(2),
			Amount:      t.Amount.StringFixed(2),
		})
	}
	for _, v := range r.Vat {
		vatType, err := strconv.Atoi(v.Type.Code)
		if err != nil {
			return authority.ReceiptDetail{}, err
		}
		detail.Vat = append(detail.Vat, authority.VatDetail{
			ID:         vatType,
			BaseAmount: v.BaseAmount.StringFixed(2),
			Amount:     v.Amount.StringFixed(2),
		})
	}
	return detail, nil
}
