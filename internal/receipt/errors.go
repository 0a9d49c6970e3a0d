package receipt

import (
	"github.com/google/uuid"
)

// ValidationError is raised (in raise-on-error mode) for the first rejected
// receipt of a batch. Message is the authority's text verbatim; authorities
// have been known to edit and even typo their own messages, and downstream
// consumers match on the text, so it is never reformatted.
type ValidationError struct {
	ReceiptID uuid.UUID
	Message   string
}

func (e *ValidationError) Error() string { return e.Message }
