package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fiscal/internal/authority"
	"fiscal/internal/domain"
	"fiscal/internal/platform/middleware"
	"fiscal/internal/workflow"
	dErrors "fiscal/pkg/domain-errors"
	"fiscal/pkg/platform/httputil"
)

// Workflow is the orchestrator surface the HTTP layer depends on.
type Workflow interface {
	Validate(ctx context.Context, receipts []domain.Receipt, opts ...workflow.Option) (workflow.Report, error)
	LastNumber(ctx context.Context, pointOfSales int, receiptType string) (int64, error)
	FetchReceipt(ctx context.Context, receiptType string, number int64, pointOfSales int) (authority.RemoteReceipt, error)
	ActiveTicket(ctx context.Context) (domain.Ticket, error)
}

// Handler wires receipt and ticket endpoints to the workflow orchestrator.
type Handler struct {
	workflow Workflow
	logger   *slog.Logger
}

func NewHandler(wf Workflow, logger *slog.Logger) *Handler {
	return &Handler{workflow: wf, logger: logger}
}

// Register mounts all endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/receipts/validate", h.handleValidate)
	r.Get("/receipts/last-number", h.handleLastNumber)
	r.Get("/receipts/{type}/{number}", h.handleFetchReceipt)
	r.Get("/tickets/active", h.handleActiveTicket)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid validate request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Receipts) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "no receipts provided"))
		return
	}

	receipts := make([]domain.Receipt, 0, len(req.Receipts))
	for _, payload := range req.Receipts {
		rec, err := payload.toDomain()
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		receipts = append(receipts, rec)
	}

	var opts []workflow.Option
	if req.RaiseOnError {
		opts = append(opts, workflow.WithRaiseOnError())
	}

	report, err := h.workflow.Validate(ctx, receipts, opts...)
	if err != nil {
		h.logger.ErrorContext(ctx, "validation failed",
			"request_id", requestID,
			"receipts", len(receipts),
			"error", err.Error(),
		)
		httputil.WriteError(w, translate(err))
		return
	}

	h.logger.InfoContext(ctx, "batch validated",
		"request_id", requestID,
		"approved", len(report.Approved),
		"rejected", len(report.Rejected),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromReport(report))
}

func (h *Handler) handleLastNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pos, err := strconv.Atoi(r.URL.Query().Get("point_of_sales"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid point_of_sales"))
		return
	}
	receiptType := r.URL.Query().Get("receipt_type")
	if receiptType == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing receipt_type"))
		return
	}

	last, err := h.workflow.LastNumber(ctx, pos, receiptType)
	if err != nil {
		h.logger.ErrorContext(ctx, "last number query failed",
			"request_id", middleware.GetRequestID(ctx),
			"point_of_sales", pos,
			"receipt_type", receiptType,
			"error", err.Error(),
		)
		httputil.WriteError(w, translate(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lastNumberResponse{
		PointOfSales: pos,
		ReceiptType:  receiptType,
		LastNumber:   last,
	})
}

func (h *Handler) handleFetchReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	receiptType := chi.URLParam(r, "type")
	number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid receipt number"))
		return
	}
	pos, err := strconv.Atoi(r.URL.Query().Get("point_of_sales"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid point_of_sales"))
		return
	}

	remote, err := h.workflow.FetchReceipt(ctx, receiptType, number, pos)
	if err != nil {
		httputil.WriteError(w, translate(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRemoteReceipt(remote))
}

func (h *Handler) handleActiveTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.workflow.ActiveTicket(r.Context())
	if err != nil {
		httputil.WriteError(w, translate(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromTicket(ticket))
}
