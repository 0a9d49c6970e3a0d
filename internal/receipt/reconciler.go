package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fiscal/internal/authority"
	"fiscal/internal/domain"
)

// Rejection pairs a receipt with the authority's verdict text. The text is
// kept verbatim.
type Rejection struct {
	Receipt domain.Receipt
	Message string
}

// Reconciler maps the authority's per-receipt results back onto local
// records. Approvals persist the assigned number, the CAE and an approved
// validation in one save. Rejections keep the number unassigned (the
// authority never consumed one, or abandoned it) and persist a rejected
// validation for auditability.
type Reconciler struct {
	store  Store
	logger *slog.Logger
}

func NewReconciler(store Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Apply reconciles one batch response against the submitted group. The group
// receipts carry the speculatively assigned numbers in assigned[i]; only
// approved receipts keep theirs.
func (rc *Reconciler) Apply(ctx context.Context, group []domain.Receipt, assigned []int64, resp authority.BatchResponse) (approved []domain.Receipt, rejected []Rejection, err error) {
	if len(assigned) != len(group) {
		return nil, nil, fmt.Errorf("assigned numbers (%d) do not match group size (%d)", len(assigned), len(group))
	}

	// Envelope-level errors mean the authority processed nothing.
	if len(resp.Details) == 0 && len(resp.Errors) > 0 {
		msg := resp.Errors[0].Msg
		for _, r := range group {
			rej, saveErr := rc.reject(ctx, r, []domain.Observation{{Code: resp.Errors[0].Code, Msg: msg}})
			if saveErr != nil {
				return approved, rejected, saveErr
			}
			rejected = append(rejected, rej)
		}
		return approved, rejected, nil
	}

	byNumber := make(map[int64]authority.DetailResponse, len(resp.Details))
	for _, det := range resp.Details {
		byNumber[det.NumberFrom] = det
	}

	now := time.Now()
	for i, r := range group {
		det, ok := byNumber[assigned[i]]
		if !ok {
			return approved, rejected, fmt.Errorf("authority response missing receipt number %d", assigned[i])
		}

		if det.Result == domain.ResultApproved {
			num := assigned[i]
			r.Number = &num
			r.Validation = &domain.Validation{
				ReceiptID:    r.ID,
				Result:       domain.ResultApproved,
				CAE:          det.CAE,
				CAEExpiry:    parseCAEExpiry(det.CAEExpiry),
				Observations: det.Observations,
				ProcessedAt:  now,
			}
			if err := rc.store.Save(ctx, r); err != nil {
				return approved, rejected, err
			}
			approved = append(approved, r)
			continue
		}

		rej, saveErr := rc.reject(ctx, r, det.Observations)
		if saveErr != nil {
			return approved, rejected, saveErr
		}
		rejected = append(rejected, rej)
	}

	rc.logger.InfoContext(ctx, "batch reconciled",
		"approved", len(approved),
		"rejected", len(rejected),
	)
	return approved, rejected, nil
}

func (rc *Reconciler) reject(ctx context.Context, r domain.Receipt, observations []domain.Observation) (Rejection, error) {
	r.Number = nil
	r.Validation = &domain.Validation{
		ReceiptID:    r.ID,
		Result:       domain.ResultRejected,
		Observations: observations,
		ProcessedAt:  time.Now(),
	}
	if err := rc.store.Save(ctx, r); err != nil {
		return Rejection{}, err
	}
	return Rejection{Receipt: r, Message: observationText(observations)}, nil
}

// observationText renders observations the way callers match on them. The
// authority's message text is included untouched.
func observationText(observations []domain.Observation) string {
	parts := make([]string, 0, len(observations))
	for _, obs := range observations {
		parts = append(parts, fmt.Sprintf("%d: %s", obs.Code, obs.Msg))
	}
	return strings.Join(parts, "; ")
}

func parseCAEExpiry(s string) time.Time {
	t, err := time.Parse(authority.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
