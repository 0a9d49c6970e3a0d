package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Concept codes the authority distinguishes. Service concepts require the
// service period and payment due date to be present on the receipt.
const (
	ConceptProducts            = "1"
	ConceptServices            = "2"
	ConceptProductsAndServices = "3"
)

// Receipt is a fiscal document (invoice, credit or debit note) pending or past
// validation with the authority. Number stays nil until the authority approves
// the receipt; once set it is immutable and unique per (point of sale,
// receipt type).
type Receipt struct {
	ID             uuid.UUID
	PointOfSales   PointOfSales
	ReceiptType    ReceiptType
	Concept        ConceptType
	DocumentType   DocumentType
	DocumentNumber int64
	Number         *int64
	IssuedDate     time.Time

	TotalAmount     decimal.Decimal
	NetUntaxed      decimal.Decimal
	NetTaxed        decimal.Decimal
	ExemptAmount    decimal.Decimal
	Currency        CurrencyType
	CurrencyQuote   decimal.Decimal
	ServiceStart    time.Time
	ServiceEnd      time.Time
	ExpirationDate  time.Time
	Vat             []Vat
	Taxes           []Tax
	RelatedReceipts []RelatedReceipt

	Validation *Validation
}

// Vat is a VAT line owned by a single receipt.
type Vat struct {
	Type       VatType
	BaseAmount decimal.Decimal
	Amount     decimal.Decimal
}

// Tax is a non-VAT tribute line owned by a single receipt.
type Tax struct {
	Type        TaxType
	Description string
	BaseAmount  decimal.Decimal
	Aliquot     decimal.Decimal
	Amount      decimal.Decimal
}

// RelatedReceipt links a credit/debit note to the receipt it amends.
type RelatedReceipt struct {
	ReceiptType  ReceiptType
	PointOfSales int
	Number       int64
}

// TotalVat is the sum of the receipt's own VAT lines. It is always derived,
// never stored.
func (r Receipt) TotalVat() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.Vat {
		total = total.Add(v.Amount)
	}
	return total
}

// TotalTax is the sum of the receipt's own tribute lines.
func (r Receipt) TotalTax() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Taxes {
		total = total.Add(t.Amount)
	}
	return total
}

// IsValidated reports whether the receipt has been approved by the authority.
// A receipt with a rejected validation, or a number but no approval, does not
// count as validated.
func (r Receipt) IsValidated() bool {
	return r.Number != nil && r.Validation != nil && r.Validation.Result == ResultApproved
}

// IsCreditOrDebitNote reports whether the receipt type is a note that must
// reference the receipts it amends.
func (r Receipt) IsCreditOrDebitNote() bool {
	switch r.ReceiptType.Code {
	case "2", "3", "7", "8", "12", "13", "52", "53": // notas de débito y crédito A/B/C/M
		return true
	}
	return false
}

// IsService reports whether the receipt's concept requires service dates.
func (r Receipt) IsService() bool {
	return r.Concept.Code == ConceptServices || r.Concept.Code == ConceptProductsAndServices
}
