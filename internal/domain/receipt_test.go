package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReceiptTotalVat(t *testing.T) {
	r := Receipt{
		Vat: []Vat{
			{Type: VatType{Code: "5"}, BaseAmount: dec("100.00"), Amount: dec("21.00")},
			{Type: VatType{Code: "4"}, BaseAmount: dec("50.00"), Amount: dec("5.25")},
		},
	}
	assert.True(t, r.TotalVat().Equal(dec("26.25")))
}

func TestReceiptTotalTax(t *testing.T) {
	r := Receipt{
		Taxes: []Tax{
			{Type: TaxType{Code: "2"}, Amount: dec("10.50")},
			{Type: TaxType{Code: "3"}, Amount: dec("1.00")},
		},
	}
	assert.True(t, r.TotalTax().Equal(dec("11.50")))
}

func TestReceiptTotalsAreIsolated(t *testing.T) {
	// Sums cover only the receipt's own entries; a sibling receipt with its
	// own VAT must not bleed in.
	a := Receipt{
		ID:  uuid.New(),
		Vat: []Vat{{Amount: dec("21.00")}},
	}
	b := Receipt{
		ID:  uuid.New(),
		Vat: []Vat{{Amount: dec("100.00")}},
	}
	assert.True(t, a.TotalVat().Equal(dec("21.00")))
	assert.True(t, b.TotalVat().Equal(dec("100.00")))
}

func TestReceiptTotalsEmpty(t *testing.T) {
	var r Receipt
	assert.True(t, r.TotalVat().IsZero())
	assert.True(t, r.TotalTax().IsZero())
}

func TestIsValidated(t *testing.T) {
	num := int64(42)

	t.Run("number and approved validation", func(t *testing.T) {
		r := Receipt{Number: &num, Validation: &Validation{Result: ResultApproved}}
		assert.True(t, r.IsValidated())
	})

	t.Run("no number", func(t *testing.T) {
		r := Receipt{Validation: &Validation{Result: ResultApproved}}
		assert.False(t, r.IsValidated())
	})

	t.Run("rejected validation", func(t *testing.T) {
		r := Receipt{Validation: &Validation{Result: ResultRejected}}
		assert.False(t, r.IsValidated())
	})

	t.Run("number without validation", func(t *testing.T) {
		r := Receipt{Number: &num}
		assert.False(t, r.IsValidated())
	})
}

func TestIsCreditOrDebitNote(t *testing.T) {
	for _, code := range []string{"2", "3", "7", "8", "12", "13", "52", "53"} {
		r := Receipt{ReceiptType: ReceiptType{Code: code}}
		assert.True(t, r.IsCreditOrDebitNote(), "code %s", code)
	}
	for _, code := range []string{"1", "6", "11"} {
		r := Receipt{ReceiptType: ReceiptType{Code: code}}
		assert.False(t, r.IsCreditOrDebitNote(), "code %s", code)
	}
}

func TestIsService(t *testing.T) {
	assert.False(t, Receipt{Concept: ConceptType{Code: ConceptProducts}}.IsService())
	assert.True(t, Receipt{Concept: ConceptType{Code: ConceptServices}}.IsService())
	assert.True(t, Receipt{Concept: ConceptType{Code: ConceptProductsAndServices}}.IsService())
}

func TestTicketValidAt(t *testing.T) {
	now := time.Now()
	ticket := Ticket{
		Service:   "wsfe",
		OwnerCUIT: 20111111112,
		ExpiresAt: now.Add(time.Hour),
	}

	assert.True(t, ticket.ValidAt(now, "wsfe", 20111111112))
	assert.False(t, ticket.ValidAt(now, "ws_sr_padron", 20111111112), "wrong service")
	assert.False(t, ticket.ValidAt(now, "wsfe", 99), "wrong owner")
	assert.False(t, ticket.ValidAt(now.Add(2*time.Hour), "wsfe", 20111111112), "expired")
	assert.False(t, ticket.ValidAt(ticket.ExpiresAt, "wsfe", 20111111112), "boundary counts as expired")
}

func TestTicketExpired(t *testing.T) {
	now := time.Now()
	ticket := Ticket{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, ticket.Expired(now))
	assert.True(t, ticket.Expired(now.Add(time.Minute)))
}
