package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fiscal/internal/audit"
	"fiscal/internal/authority"
	"fiscal/internal/domain"
	"fiscal/internal/platform/metrics"
	"fiscal/internal/receipt"
)

// ServiceWSFE is the authority service scope for electronic invoicing.
const ServiceWSFE = "wsfe"

var tracer = otel.Tracer("fiscal/workflow")

// TicketSource supplies authentication tickets for the invoicing scope.
type TicketSource interface {
	Ticket(ctx context.Context, service string) (domain.Ticket, error)
	ActiveTicket(ctx context.Context, service string) (domain.Ticket, error)
}

// FetchClient is the slice of the authority client used for remote lookups.
type FetchClient interface {
	FetchReceipt(ctx context.Context, ticket domain.Ticket, receiptType int, number int64, pointOfSales int) (authority.RemoteReceipt, error)
}

// Orchestrator is the top-level entry point for the validation workflow. It
// coordinates ticket acquisition, number allocation, batch submission and
// reconciliation.
//
// Concurrent Validate calls against the same (point of sale, receipt type)
// pair must be serialized by the caller; the authority assigns numbers
// without knowledge of concurrent local actors.
type Orchestrator struct {
	tickets   TicketSource
	allocator *receipt.Allocator
	batcher   *receipt.Batcher
	fetch     FetchClient
	auditor   *audit.Service
	metrics   *metrics.Metrics
	cuit      int64
}

func NewOrchestrator(
	tickets TicketSource,
	allocator *receipt.Allocator,
	batcher *receipt.Batcher,
	fetch FetchClient,
	auditor *audit.Service,
	m *metrics.Metrics,
	cuit int64,
) *Orchestrator {
	return &Orchestrator{
		tickets:   tickets,
		allocator: allocator,
		batcher:   batcher,
		fetch:     fetch,
		auditor:   auditor,
		metrics:   m,
		cuit:      cuit,
	}
}

// Report lists validation successes and failures side by side.
type Report struct {
	Approved []domain.Receipt
	Rejected []receipt.Rejection
}

type validateOptions struct {
	ticket       *domain.Ticket
	raiseOnError bool
}

// Option configures a Validate call.
type Option func(*validateOptions)

// WithTicket supplies a ticket, skipping the authenticator.
func WithTicket(t domain.Ticket) Option {
	return func(o *validateOptions) { o.ticket = &t }
}

// WithRaiseOnError makes Validate fail fast on the first rejection instead
// of collecting it into the report. Receipts already approved stay approved.
func WithRaiseOnError() Option {
	return func(o *validateOptions) { o.raiseOnError = true }
}

// Validate submits the pending receipts of the set and reconciles the
// authority's answer. Transport and auth errors propagate unchanged;
// rejections land in the report unless raise-on-error is set.
func (o *Orchestrator) Validate(ctx context.Context, receipts []domain.Receipt, opts ...Option) (Report, error) {
	var options validateOptions
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "workflow.Validate",
		trace.WithAttributes(attribute.Int("receipts", len(receipts))))
	defer span.End()

	start := time.Now()
	defer func() {
		o.metrics.ValidationDuration.Observe(time.Since(start).Seconds())
	}()

	ticket := domain.Ticket{}
	if options.ticket != nil {
		ticket = *options.ticket
	} else {
		var err error
		ticket, err = o.tickets.Ticket(ctx, ServiceWSFE)
		if err != nil {
			return Report{}, err
		}
	}

	o.auditor.Emit(ctx, audit.Event{
		Kind: audit.EventBatchSubmitted,
		CUIT: o.cuit,
	})

	result, err := o.batcher.Validate(ctx, ticket, receipts)
	report := Report{Approved: result.Approved, Rejected: result.Rejected}
	o.record(ctx, report)
	if err != nil {
		return report, err
	}

	if options.raiseOnError && len(report.Rejected) > 0 {
		first := report.Rejected[0]
		return report, &receipt.ValidationError{
			ReceiptID: first.Receipt.ID,
			Message:   first.Message,
		}
	}
	return report, nil
}

// LastNumber exposes the allocator for external collaborators that need the
// authority's last consumed number.
func (o *Orchestrator) LastNumber(ctx context.Context, pointOfSales int, receiptType string) (int64, error) {
	ticket, err := o.tickets.Ticket(ctx, ServiceWSFE)
	if err != nil {
		return 0, err
	}
	return o.allocator.LastNumber(ctx, ticket, pointOfSales, receiptType)
}

// FetchReceipt returns the authority's own record of a receipt, used to
// detect drift between local and remote numbering.
func (o *Orchestrator) FetchReceipt(ctx context.Context, receiptType string, number int64, pointOfSales int) (authority.RemoteReceipt, error) {
	ctx, span := tracer.Start(ctx, "workflow.FetchReceipt")
	defer span.End()

	typeCode, err := authority.ReceiptTypeCode(receiptType)
	if err != nil {
		return authority.RemoteReceipt{}, err
	}
	ticket, err := o.tickets.Ticket(ctx, ServiceWSFE)
	if err != nil {
		return authority.RemoteReceipt{}, err
	}
	return o.fetch.FetchReceipt(ctx, ticket, typeCode, number, pointOfSales)
}

// ActiveTicket returns any usable ticket for the invoicing scope without
// triggering a login.
func (o *Orchestrator) ActiveTicket(ctx context.Context) (domain.Ticket, error) {
	return o.tickets.ActiveTicket(ctx, ServiceWSFE)
}

func (o *Orchestrator) record(ctx context.Context, report Report) {
	for _, r := range report.Approved {
		o.metrics.ReceiptsApproved.Inc()
		event := audit.Event{
			Kind:         audit.EventReceiptApproved,
			CUIT:         o.cuit,
			PointOfSales: r.PointOfSales.Number,
			ReceiptType:  r.ReceiptType.Code,
			ReceiptID:    r.ID,
		}
		if r.Number != nil {
			event.ReceiptNumber = *r.Number
		}
		if r.Validation != nil {
			event.CAE = r.Validation.CAE
		}
		o.auditor.Emit(ctx, event)
	}
	for _, rej := range report.Rejected {
		o.metrics.ReceiptsRejected.Inc()
		o.auditor.Emit(ctx, audit.Event{
			Kind:         audit.EventReceiptRejected,
			CUIT:         o.cuit,
			PointOfSales: rej.Receipt.PointOfSales.Number,
			ReceiptType:  rej.Receipt.ReceiptType.Code,
			ReceiptID:    rej.Receipt.ID,
			Message:      rej.Message,
		})
	}
}
