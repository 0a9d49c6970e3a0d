package httptransport

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fiscal/internal/domain"
	dErrors "fiscal/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

type validateRequest struct {
	Receipts     []receiptPayload `json:"receipts"`
	RaiseOnError bool             `json:"raise_on_error"`
}

// receiptPayload is the wire shape of a receipt awaiting validation. Codes
// are the authority's string identifiers; amounts are decimal strings.
type receiptPayload struct {
	PointOfSales   int    `json:"point_of_sales"`
	ReceiptType    string `json:"receipt_type"`
	Concept        string `json:"concept"`
	DocumentType   string `json:"document_type"`
	DocumentNumber int64  `json:"document_number"`
	IssuedDate     string `json:"issued_date"`

	TotalAmount    decimal.Decimal `json:"total_amount"`
	NetUntaxed     decimal.Decimal `json:"net_untaxed"`
	NetTaxed       decimal.Decimal `json:"net_taxed"`
	ExemptAmount   decimal.Decimal `json:"exempt_amount"`
	Currency       string          `json:"currency"`
	CurrencyQuote  decimal.Decimal `json:"currency_quote"`
	ServiceStart   string          `json:"service_start,omitempty"`
	ServiceEnd     string          `json:"service_end,omitempty"`
	ExpirationDate string          `json:"expiration_date,omitempty"`

	Vat             []vatPayload     `json:"vat,omitempty"`
	Taxes           []taxPayload     `json:"taxes,omitempty"`
	RelatedReceipts []relatedPayload `json:"related_receipts,omitempty"`
}

type vatPayload struct {
	Type       string          `json:"type"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Amount     decimal.Decimal `json:"amount"`
}

type taxPayload struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	Aliquot     decimal.Decimal `json:"aliquot"`
	Amount      decimal.Decimal `json:"amount"`
}

type relatedPayload struct {
	ReceiptType  string `json:"receipt_type"`
	PointOfSales int    `json:"point_of_sales"`
	Number       int64  `json:"number"`
}

func (p receiptPayload) toDomain() (domain.Receipt, error) {
	issued, err := parseDate(p.IssuedDate, true)
	if err != nil {
		return domain.Receipt{}, dErrors.New(dErrors.CodeBadRequest, "invalid issued_date")
	}
	serviceStart, err := parseDate(p.ServiceStart, false)
	if err != nil {
		return domain.Receipt{}, dErrors.New(dErrors.CodeBadRequest, "invalid service_start")
	}
	serviceEnd, err := parseDate(p.ServiceEnd, false)
	if err != nil {
		return domain.Receipt{}, dErrors.New(dErrors.CodeBadRequest, "invalid service_end")
	}
	expiration, err := parseDate(p.ExpirationDate, false)
	if err != nil {
		return domain.Receipt{}, dErrors.New(dErrors.CodeBadRequest, "invalid expiration_date")
	}

	r := domain.Receipt{
		ID:             uuid.New(),
		PointOfSales:   domain.PointOfSales{Number: p.PointOfSales},
		ReceiptType:    domain.ReceiptType{Code: p.ReceiptType},
		Concept:        domain.ConceptType{Code: p.Concept},
		DocumentType:   domain.DocumentType{Code: p.DocumentType},
		DocumentNumber: p.DocumentNumber,
		IssuedDate:     issued,
		TotalAmount:    p.TotalAmount,
		NetUntaxed:     p.NetUntaxed,
		NetTaxed:       p.NetTaxed,
		ExemptAmount:   p.ExemptAmount,
		Currency:       domain.CurrencyType{Code: p.Currency},
		CurrencyQuote:  p.CurrencyQuote,
		ServiceStart:   serviceStart,
		ServiceEnd:     serviceEnd,
		ExpirationDate: expiration,
	}
	for _, v := range p.Vat {
		r.Vat = append(r.Vat, domain.Vat{
			Type:       domain.VatType{Code: v.Type},
			BaseAmount: v.BaseAmount,
			Amount:     v.Amount,
		})
	}
	for _, t := range p.Taxes {
		r.Taxes = append(r.Taxes, domain.Tax{
			Type:        domain.TaxType{Code: t.Type},
			Description: t.Description,
			BaseAmount:  t.BaseAmount,
			Aliquot:     t.Aliquot,
			Amount:      t.Amount,
		})
	}
	for _, rel := range p.RelatedReceipts {
		r.RelatedReceipts = append(r.RelatedReceipts, domain.RelatedReceipt{
			ReceiptType:  domain.ReceiptType{Code: rel.ReceiptType},
			PointOfSales: rel.PointOfSales,
			Number:       rel.Number,
		})
	}
	return r, nil
}

func parseDate(s string, required bool) (time.Time, error) {
	if s == "" {
		if required {
			return time.Time{}, errors.New("missing date")
		}
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
