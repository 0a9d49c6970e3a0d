package authority

import (
	"context"
	"encoding/xml"
	"fmt"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

const wsfeNS = "http://ar.gov.afip.dif.FEV1/"

// Authority error code for "receipt does not exist" on lookups.
const codeReceiptNotFound = 602

// DateLayout is the yyyymmdd format the invoicing service uses for all dates.
const DateLayout = "20060102"

type auth struct {
	Token string `xml:"ar:Token"`
	Sign  string `xml:"ar:Sign"`
	Cuit  int64  `xml:"ar:Cuit"`
}

func (c *Client) auth(ticket domain.Ticket) auth {
	return auth{Token: ticket.Token, Sign: ticket.Sign, Cuit: c.cuit}
}

// APIError is an application-level error item in an authority response
// envelope, distinct from a SOAP fault.
type APIError struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

func (e APIError) Error() string { return fmt.Sprintf("authority error %d: %s", e.Code, e.Msg) }

// --- last authorized number ---

type feCompUltimoAutorizado struct {
	XMLName  xml.Name `xml:"ar:FECompUltimoAutorizado"`
	Auth     auth     `xml:"ar:Auth"`
	PtoVta   int      `xml:"ar:PtoVta"`
	CbteTipo int      `xml:"ar:CbteTipo"`
}

type feCompUltimoAutorizadoResponse struct {
	XMLName xml.Name `xml:"FECompUltimoAutorizadoResponse"`
	Result  struct {
		PtoVta   int        `xml:"PtoVta"`
		CbteTipo int        `xml:"CbteTipo"`
		CbteNro  int64      `xml:"CbteNro"`
		Errors   []APIError `xml:"Errors>Err"`
	} `xml:"FECompUltimoAutorizadoResult"`
}

// LastAuthorized returns the last receipt number the authority has on record
// for the given point of sale and receipt type. The authority is the sole
// source of truth for numbering; results are never cached.
func (c *Client) LastAuthorized(ctx context.Context, ticket domain.Ticket, pointOfSales, receiptType int) (int64, error) {
	req := feCompUltimoAutorizado{
		Auth:     c.auth(ticket),
		PtoVta:   pointOfSales,
		CbteTipo: receiptType,
	}
	var resp feCompUltimoAutorizadoResponse
	if err := c.call(ctx, c.wsfeURL, wsfeNS, "FECompUltimoAutorizado", req, &resp); err != nil {
		return 0, err
	}
	if len(resp.Result.Errors) > 0 {
		return 0, resp.Result.Errors[0]
	}
	return resp.Result.CbteNro, nil
}

// --- batch authorization ---

// BatchRequest is one homogeneous batch: every detail shares the point of
// sale and receipt type, and numbers are contiguous in detail order.
type BatchRequest struct {
	PointOfSales int
	ReceiptType  int
	Details      []ReceiptDetail
}

// ReceiptDetail is the wire-level descriptor of a single receipt within a
// batch. Amounts are pre-rendered strings so the decimal formatting decision
// stays with the caller.
type ReceiptDetail struct {
	Concept        int
	DocumentType   int
	DocumentNumber int64
	NumberFrom     int64
	NumberTo       int64
	Date           string
	TotalAmount    string
	NetUntaxed     string
	NetTaxed       string
	ExemptAmount   string
	TaxAmount      string
	VatAmount      string
	ServiceStart   string
	ServiceEnd     string
	PaymentDue     string
	CurrencyID     string
	CurrencyQuote  string
	Related        []RelatedDetail
	Taxes          []TaxDetail
	Vat            []VatDetail
}

type RelatedDetail struct {
	ReceiptType  int
	PointOfSales int
	Number       int64
}

type TaxDetail struct {
	ID          int
	Description string
	BaseAmount  string
	Aliquot     string
	Amount      string
}

type VatDetail struct {
	ID         int
	BaseAmount string
	Amount     string
}

type feCAESolicitar struct {
	XMLName xml.Name `xml:"ar:FECAESolicitar"`
	Auth    auth     `xml:"ar:Auth"`
	Req     feCAEReq `xml:"ar:FeCAEReq"`
}

type feCAEReq struct {
	Header  feCabReq          `xml:"ar:FeCabReq"`
	Details []feCAEDetRequest `xml:"ar:FeDetReq>ar:FECAEDetRequest"`
}

type feCabReq struct {
	CantReg  int `xml:"ar:CantReg"`
	PtoVta   int `xml:"ar:PtoVta"`
	CbteTipo int `xml:"ar:CbteTipo"`
}

// Element order follows the service schema; the authority rejects reordered
// payloads.
type feCAEDetRequest struct {
	Concepto     int        `xml:"ar:Concepto"`
	DocTipo      int        `xml:"ar:DocTipo"`
	DocNro       int64      `xml:"ar:DocNro"`
	CbteDesde    int64      `xml:"ar:CbteDesde"`
	CbteHasta    int64      `xml:"ar:CbteHasta"`
	CbteFch      string     `xml:"ar:CbteFch"`
	ImpTotal     string     `xml:"ar:ImpTotal"`
	ImpTotConc   string     `xml:"ar:ImpTotConc"`
	ImpNeto      string     `xml:"ar:ImpNeto"`
	ImpOpEx      string     `xml:"ar:ImpOpEx"`
	ImpTrib      string     `xml:"ar:ImpTrib"`
	ImpIVA       string     `xml:"ar:ImpIVA"`
	FchServDesde string     `xml:"ar:FchServDesde,omitempty"`
	FchServHasta string     `xml:"ar:FchServHasta,omitempty"`
	FchVtoPago   string     `xml:"ar:FchVtoPago,omitempty"`
	MonId        string     `xml:"ar:MonId"`
	MonCotiz     string     `xml:"ar:MonCotiz"`
	CbtesAsoc    []cbteAsoc `xml:"ar:CbtesAsoc>ar:CbteAsoc,omitempty"`
	Tributos     []tributo  `xml:"ar:Tributos>ar:Tributo,omitempty"`
	Iva          []alicIva  `xml:"ar:Iva>ar:AlicIva,omitempty"`
}

type cbteAsoc struct {
	Tipo   int   `xml:"ar:Tipo"`
	PtoVta int   `xml:"ar:PtoVta"`
	Nro    int64 `xml:"ar:Nro"`
}

type tributo struct {
	Id      int    `xml:"ar:Id"`
	Desc    string `xml:"ar:Desc"`
	BaseImp string `xml:"ar:BaseImp"`
	Alic    string `xml:"ar:Alic"`
	Importe string `xml:"ar:Importe"`
}

type alicIva struct {
	Id      int    `xml:"ar:Id"`
	BaseImp string `xml:"ar:BaseImp"`
	Importe string `xml:"ar:Importe"`
}

// BatchResponse carries the authority's verdict for each receipt of a batch
// plus any envelope-level errors.
type BatchResponse struct {
	Result  string
	Details []DetailResponse
	Errors  []APIError
}

// DetailResponse is the per-receipt outcome. Observations carry the
// authority's verdict text verbatim.
type DetailResponse struct {
	NumberFrom   int64
	NumberTo     int64
	Result       string
	CAE          string
	CAEExpiry    string
	Observations []domain.Observation
}

type feCAESolicitarResponse struct {
	XMLName xml.Name `xml:"FECAESolicitarResponse"`
	Result  struct {
		Header struct {
			Resultado string `xml:"Resultado"`
		} `xml:"FeCabResp"`
		Details []struct {
			CbteDesde     int64  `xml:"CbteDesde"`
			CbteHasta     int64  `xml:"CbteHasta"`
			Resultado     string `xml:"Resultado"`
			CAE           string `xml:"CAE"`
			CAEFchVto     string `xml:"CAEFchVto"`
			Observaciones []struct {
				Code int    `xml:"Code"`
				Msg  string `xml:"Msg"`
			} `xml:"Observaciones>Obs"`
		} `xml:"FeDetResp>FECAEDetResponse"`
		Errors []APIError `xml:"Errors>Err"`
	} `xml:"FECAESolicitarResult"`
}

// AuthorizeBatch submits one batch for CAE authorization. It performs exactly
// one attempt; on transport failure no numbers are considered consumed.
func (c *Client) AuthorizeBatch(ctx context.Context, ticket domain.Ticket, batch BatchRequest) (BatchResponse, error) {
	req := feCAESolicitar{
		Auth: c.auth(ticket),
		Req: feCAEReq{
			Header: feCabReq{
				CantReg:  len(batch.Details),
				PtoVta:   batch.PointOfSales,
				CbteTipo: batch.ReceiptType,
			},
		},
	}
	for _, d := range batch.Details {
		req.Req.Details = append(req.Req.Details, detailToWire(d))
	}

	var resp feCAESolicitarResponse
	if err := c.call(ctx, c.wsfeURL, wsfeNS, "FECAESolicitar", req, &resp); err != nil {
		return BatchResponse{}, err
	}

	out := BatchResponse{
		Result: resp.Result.Header.Resultado,
		Errors: resp.Result.Errors,
	}
	for _, det := range resp.Result.Details {
		dr := DetailResponse{
			NumberFrom: det.CbteDesde,
			NumberTo:   det.CbteHasta,
			Result:     det.Resultado,
			CAE:        det.CAE,
			CAEExpiry:  det.CAEFchVto,
		}
		for _, obs := range det.Observaciones {
			dr.Observations = append(dr.Observations, domain.Observation{Code: obs.Code, Msg: obs.Msg})
		}
		out.Details = append(out.Details, dr)
	}
	return out, nil
}

func detailToWire(d ReceiptDetail) feCAEDetRequest {
	wire := feCAEDetRequest{
		Concepto:     d.Concept,
		DocTipo:      d.DocumentType,
		DocNro:       d.DocumentNumber,
		CbteDesde:    d.NumberFrom,
		CbteHasta:    d.NumberTo,
		CbteFch:      d.Date,
		ImpTotal:     d.TotalAmount,
		ImpTotConc:   d.NetUntaxed,
		ImpNeto:      d.NetTaxed,
		ImpOpEx:      d.ExemptAmount,
		ImpTrib:      d.TaxAmount,
		ImpIVA:       d.VatAmount,
		FchServDesde: d.ServiceStart,
		FchServHasta: d.ServiceEnd,
		FchVtoPago:   d.PaymentDue,
		MonId:        d.CurrencyID,
		MonCotiz:     d.CurrencyQuote,
	}
	for _, rel := range d.Related {
		wire.CbtesAsoc = append(wire.CbtesAsoc, cbteAsoc{Tipo: rel.ReceiptType, PtoVta: rel.PointOfSales, Nro: rel.Number})
	}
	for _, t := range d.Taxes {
		wire.Tributos = append(wire.Tributos, tributo{Id: t.ID, Desc: t.Description, BaseImp: t.BaseAmount, Alic: t.Aliquot, Importe: t.Amount})
	}
	for _, v := range d.Vat {
		wire.Iva = append(wire.Iva, alicIva{Id: v.ID, BaseImp: v.BaseAmount, Importe: v.Amount})
	}
	return wire
}

// --- receipt lookup ---

type feCompConsultar struct {
	XMLName xml.Name `xml:"ar:FECompConsultar"`
	Auth    auth     `xml:"ar:Auth"`
	Req     struct {
		CbteTipo int   `xml:"ar:CbteTipo"`
		CbteNro  int64 `xml:"ar:CbteNro"`
		PtoVta   int   `xml:"ar:PtoVta"`
	} `xml:"ar:FeCompConsReq"`
}

// RemoteReceipt is the authority's own record of a validated receipt, used
// for read-only reconciliation against local state.
type RemoteReceipt struct {
	ReceiptType    int    `xml:"CbteTipo"`
	PointOfSales   int    `xml:"PtoVta"`
	NumberFrom     int64  `xml:"CbteDesde"`
	NumberTo       int64  `xml:"CbteHasta"`
	Concept        int    `xml:"Concepto"`
	DocumentType   int    `xml:"DocTipo"`
	DocumentNumber int64  `xml:"DocNro"`
	Date           string `xml:"CbteFch"`
	TotalAmount    string `xml:"ImpTotal"`
	CurrencyID     string `xml:"MonId"`
	CurrencyQuote  string `xml:"MonCotiz"`
	Result         string `xml:"Resultado"`
	CAE            string `xml:"CodAutorizacion"`
	CAEExpiry      string `xml:"FchVto"`
	ProcessedDate  string `xml:"FchProceso"`
}

type feCompConsultarResponse struct {
	XMLName xml.Name `xml:"FECompConsultarResponse"`
	Result  struct {
		Receipt *RemoteReceipt `xml:"ResultGet"`
		Errors  []APIError     `xml:"Errors>Err"`
	} `xml:"FECompConsultarResult"`
}

// FetchReceipt retrieves the authority's record for one receipt. A missing
// receipt surfaces as sentinel.ErrNotFound.
func (c *Client) FetchReceipt(ctx context.Context, ticket domain.Ticket, receiptType int, number int64, pointOfSales int) (RemoteReceipt, error) {
	req := feCompConsultar{Auth: c.auth(ticket)}
	req.Req.CbteTipo = receiptType
	req.Req.CbteNro = number
	req.Req.PtoVta = pointOfSales

	var resp feCompConsultarResponse
	if err := c.call(ctx, c.wsfeURL, wsfeNS, "FECompConsultar", req, &resp); err != nil {
		return RemoteReceipt{}, err
	}
	for _, apiErr := range resp.Result.Errors {
		if apiErr.Code == codeReceiptNotFound {
			return RemoteReceipt{}, fmt.Errorf("%s: %w", apiErr.Msg, sentinel.ErrNotFound)
		}
	}
	if len(resp.Result.Errors) > 0 {
		return RemoteReceipt{}, resp.Result.Errors[0]
	}
	if resp.Result.Receipt == nil {
		return RemoteReceipt{}, sentinel.ErrNotFound
	}
	return *resp.Result.Receipt, nil
}
