package domain

import (
	"fmt"
	"time"
)

// Reference metadata fetched from the authority's parameter tables. These are
// read-mostly lookup rows, refreshed on demand and cached locally.

// ReceiptType is an authority-defined invoice/note category, e.g. code 6 is
// "Factura B" and code 8 is "Nota de Crédito B".
type ReceiptType struct {
	Code        string
	Description string
	ValidFrom   time.Time
	ValidUntil  time.Time
}

func (t ReceiptType) String() string {
	return fmt.Sprintf("%s (%s)", t.Description, t.Code)
}

// ConceptType describes what a receipt covers: products, services or both.
// Codes 2 and 3 require service dates and a payment due date on the receipt.
type ConceptType struct {
	Code        string
	Description string
}

// DocumentType identifies the kind of customer document (CUIT, DNI, ...).
type DocumentType struct {
	Code        string
	Description string
}

// VatType is an authority VAT rate entry, e.g. code 5 is 21%.
type VatType struct {
	Code        string
	Description string
}

// TaxType is an authority tax kind for non-VAT tributes.
type TaxType struct {
	Code        string
	Description string
}

// CurrencyType is an authority currency entry, e.g. "PES".
type CurrencyType struct {
	Code        string
	Description string
}

func (c CurrencyType) String() string {
	return fmt.Sprintf("%s (%s)", c.Description, c.Code)
}

// PointOfSales is a numbered sales channel registered with the authority.
// Receipt numbering is scoped per point of sale and receipt type.
type PointOfSales struct {
	Number       int
	IssuanceType string
	Blocked      bool
	DropDate     time.Time
}
