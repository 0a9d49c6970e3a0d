package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kinds of audit events the validation workflow emits.
const (
	EventBatchSubmitted  = "batch_submitted"
	EventReceiptApproved = "receipt_approved"
	EventReceiptRejected = "receipt_rejected"
)

// Event is one append-only audit record of a workflow outcome. Message holds
// authority text verbatim where applicable.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Kind          string    `json:"kind"`
	CUIT          int64     `json:"cuit"`
	PointOfSales  int       `json:"point_of_sales,omitempty"`
	ReceiptType   string    `json:"receipt_type,omitempty"`
	ReceiptID     uuid.UUID `json:"receipt_id,omitempty"`
	ReceiptNumber int64     `json:"receipt_number,omitempty"`
	CAE           string    `json:"cae,omitempty"`
	Message       string    `json:"message,omitempty"`
	At            time.Time `json:"at"`
}
