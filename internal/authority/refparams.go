package authority

import (
	"context"
	"encoding/xml"
	"strconv"
	"time"

	"fiscal/internal/domain"
)

// Parameter-table queries. The authority publishes its reference data
// (receipt types, document types, currencies, VAT rates, tributes, concepts,
// points of sale) through FEParamGet* operations; refdata caches the rows
// locally.

type paramRequest struct {
	XMLName xml.Name
	Auth    auth `xml:"ar:Auth"`
}

type codeDescRow struct {
	Id       string `xml:"Id"`
	Desc     string `xml:"Desc"`
	FchDesde string `xml:"FchDesde"`
	FchHasta string `xml:"FchHasta"`
}

func (c *Client) fetchParamTable(ctx context.Context, ticket domain.Ticket, op string) ([]codeDescRow, error) {
	req := paramRequest{
		XMLName: xml.Name{Local: "ar:" + op},
		Auth:    c.auth(ticket),
	}
	var parsed paramResponse
	if err := c.call(ctx, c.wsfeURL, wsfeNS, op, req, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.errors) > 0 {
		return nil, parsed.errors[0]
	}
	return parsed.rows, nil
}

// paramResponse decodes any FEParamGet* response by walking to ResultGet and
// collecting its child rows, since each operation names its row element
// differently.
type paramResponse struct {
	rows   []codeDescRow
	errors []APIError
}

func (p *paramResponse) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type resultGet struct {
		Rows []codeDescRow `xml:",any"`
	}
	type result struct {
		ResultGet resultGet  `xml:"ResultGet"`
		Errors    []APIError `xml:"Errors>Err"`
	}
	var raw struct {
		Result result `xml:",any"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	p.rows = raw.Result.ResultGet.Rows
	p.errors = raw.Result.Errors
	return nil
}

// ReceiptTypes fetches the authority's receipt type table.
func (c *Client) ReceiptTypes(ctx context.Context, ticket domain.Ticket) ([]domain.ReceiptType, error) {
	rows, err := c.fetchParamTable(ctx, ticket, "FEParamGetTiposCbte")
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReceiptType, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ReceiptType{
			Code:        r.Id,
			Description: r.Desc,
			ValidFrom:   parseParamDate(r.FchDesde),
			ValidUntil:  parseParamDate(r.FchHasta),
		})
	}
	return out, nil
}

// ConceptTypes fetches the concept table.
func (c *Client) ConceptTypes(ctx context.Context, ticket domain.Ticket) ([]domain.ConceptType, error) {
	rows, err := c.fetchParamTable(ctx, ticket, "FEParamGetTiposConcepto")
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConceptType, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ConceptType{Code: r.Id, Description: r.Desc})
	}
	return out, nil
}

// DocumentTypes fetches the customer document type table.
func (c *Client) DocumentTypes(ctx context.Context, ticket domain.Ticket) ([]domain.DocumentType, error) {
	rows, err := c.fetchParamTable(ctx, ticket, "FEParamGetTiposDoc")
	if err != nil {
		return nil, err
	}
	out := make([]domain.DocumentType, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.DocumentType{Code: r.Id, Description: r.Desc})
	}
	return out, nil
}

// VatTypes fetches the VAT rate table.
func (c *Client) VatTypes(ctx context.Context, ticket domain.Ticket) ([]domain.VatType, error) {
	rows, err := c.fetchParamTable(ctx, ticket, "FEParamGetTiposIva")
	if err != nil {
		return nil, err
	}
	out := make([]domain.VatType, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.VatType{Code: r.Id, Description: r.Desc})
	}
	return out, nil
}

// TaxTypes fetches the tribute kind table.
func (c *Client) TaxTypes(ctx context.Context, ticket domain.Ticket) ([]domain.TaxType, error) {
	rows, err := c.fetchParamTable(ctx, ticket, "FEParamGetTiposTributos")
	if err != nil {
		return nil, err
	}
	out := make([]domain.TaxType, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.TaxType{Code: r.Id, Description: r.Desc})
	}
	return out, nil
}

// CurrencyTypes fetches the currency table.
func (c *Client) CurrencyTypes(ctx context.Context, ticket domain.Ticket) ([]domain.CurrencyType, error) {
	rows, err := c.fetchParamTable(ctx, ticket, "FEParamGetTiposMonedas")
	if err != nil {
		return nil, err
	}
	out := make([]domain.CurrencyType, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CurrencyType{Code: r.Id, Description: r.Desc})
	}
	return out, nil
}

type ptoVentaRow struct {
	Nro         int    `xml:"Nro"`
	EmisionTipo string `xml:"EmisionTipo"`
	Bloqueado   string `xml:"Bloqueado"`
	FchBaja     string `xml:"FchBaja"`
}

type feParamGetPtosVenta struct {
	XMLName xml.Name `xml:"ar:FEParamGetPtosVenta"`
	Auth    auth     `xml:"ar:Auth"`
}

type feParamGetPtosVentaResponse struct {
	XMLName xml.Name `xml:"FEParamGetPtosVentaResponse"`
	Result  struct {
		Rows   []ptoVentaRow `xml:"ResultGet>PtoVenta"`
		Errors []APIError    `xml:"Errors>Err"`
	} `xml:"FEParamGetPtosVentaResult"`
}

// PointsOfSales fetches the sales channels registered for the taxpayer.
func (c *Client) PointsOfSales(ctx context.Context, ticket domain.Ticket) ([]domain.PointOfSales, error) {
	var resp feParamGetPtosVentaResponse
	if err := c.call(ctx, c.wsfeURL, wsfeNS, "FEParamGetPtosVenta", feParamGetPtosVenta{Auth: c.auth(ticket)}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.Errors) > 0 {
		return nil, resp.Result.Errors[0]
	}
	out := make([]domain.PointOfSales, 0, len(resp.Result.Rows))
	for _, r := range resp.Result.Rows {
		out = append(out, domain.PointOfSales{
			Number:       r.Nro,
			IssuanceType: r.EmisionTipo,
			Blocked:      r.Bloqueado == "S",
			DropDate:     parseParamDate(r.FchBaja),
		})
	}
	return out, nil
}

func parseParamDate(s string) time.Time {
	if s == "" || s == "NULL" {
		return time.Time{}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

// ReceiptTypeCode converts a reference code to its wire integer form.
func ReceiptTypeCode(code string) (int, error) {
	return strconv.Atoi(code)
}
