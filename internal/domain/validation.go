package domain

import (
	"time"

	"github.com/google/uuid"
)

// Validation result codes as reported by the authority.
const (
	ResultApproved = "A"
	ResultRejected = "R"
)

// Validation records the outcome of one submission of a receipt to the
// authority. Approved validations carry the CAE and its expiry. Validations
// are immutable once created; a retry after rejection produces a new record.
type Validation struct {
	ReceiptID    uuid.UUID
	Result       string
	CAE          string
	CAEExpiry    time.Time
	Observations []Observation
	ProcessedAt  time.Time
}

// Observation is an authority-side remark attached to a validation outcome.
// Msg is authority-controlled text and must never be reformatted; downstream
// consumers match on it verbatim.
type Observation struct {
	Code int
	Msg  string
}

// Approved reports whether this validation approved the receipt.
func (v Validation) Approved() bool { return v.Result == ResultApproved }
