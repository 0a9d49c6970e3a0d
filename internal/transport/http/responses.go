package httptransport

import (
	"time"

	"fiscal/internal/authority"
	"fiscal/internal/domain"
	"fiscal/internal/receipt"
	"fiscal/internal/workflow"
)

type approvedResponse struct {
	ID           string `json:"id"`
	PointOfSales int    `json:"point_of_sales"`
	ReceiptType  string `json:"receipt_type"`
	Number       int64  `json:"number"`
	CAE          string `json:"cae"`
	CAEExpiry    string `json:"cae_expiry,omitempty"`
}

type rejectedResponse struct {
	ID           string `json:"id"`
	PointOfSales int    `json:"point_of_sales"`
	ReceiptType  string `json:"receipt_type"`
	Message      string `json:"message"`
}

type reportResponse struct {
	Approved []approvedResponse `json:"approved"`
	Rejected []rejectedResponse `json:"rejected"`
}

func fromReport(report workflow.Report) reportResponse {
	resp := reportResponse{
		Approved: make([]approvedResponse, 0, len(report.Approved)),
		Rejected: make([]rejectedResponse, 0, len(report.Rejected)),
	}
	for _, r := range report.Approved {
		resp.Approved = append(resp.Approved, fromApproved(r))
	}
	for _, rej := range report.Rejected {
		resp.Rejected = append(resp.Rejected, fromRejection(rej))
	}
	return resp
}

func fromApproved(r domain.Receipt) approvedResponse {
	out := approvedResponse{
		ID:           r.ID.String(),
		PointOfSales: r.PointOfSales.Number,
		ReceiptType:  r.ReceiptType.Code,
	}
	if r.Number != nil {
		out.Number = *r.Number
	}
	if r.Validation != nil {
		out.CAE = r.Validation.CAE
		if !r.Validation.CAEExpiry.IsZero() {
			out.CAEExpiry = r.Validation.CAEExpiry.Format(dateLayout)
		}
	}
	return out
}

func fromRejection(rej receipt.Rejection) rejectedResponse {
	return rejectedResponse{
		ID:           rej.Receipt.ID.String(),
		PointOfSales: rej.Receipt.PointOfSales.Number,
		ReceiptType:  rej.Receipt.ReceiptType.Code,
		Message:      rej.Message,
	}
}

type lastNumberResponse struct {
	PointOfSales int    `json:"point_of_sales"`
	ReceiptType  string `json:"receipt_type"`
	LastNumber   int64  `json:"last_number"`
}

type remoteReceiptResponse struct {
	ReceiptType    int    `json:"receipt_type"`
	PointOfSales   int    `json:"point_of_sales"`
	NumberFrom     int64  `json:"number_from"`
	NumberTo       int64  `json:"number_to"`
	Result         string `json:"result"`
	CAE            string `json:"cae,omitempty"`
	CAEExpiry      string `json:"cae_expiry,omitempty"`
	TotalAmount    string `json:"total_amount,omitempty"`
	IssuedDate     string `json:"issued_date,omitempty"`
	DocumentType   int    `json:"document_type,omitempty"`
	DocumentNumber int64  `json:"document_number,omitempty"`
}

type activeTicketResponse struct {
	Service     string    `json:"service"`
	OwnerCUIT   int64     `json:"owner_cuit"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func fromTicket(t domain.Ticket) activeTicketResponse {
	return activeTicketResponse{
		Service:     t.Service,
		OwnerCUIT:   t.OwnerCUIT,
		GeneratedAt: t.GeneratedAt,
		ExpiresAt:   t.ExpiresAt,
	}
}

func fromRemoteReceipt(r authority.RemoteReceipt) remoteReceiptResponse {
	return remoteReceiptResponse{
		ReceiptType:    r.ReceiptType,
		PointOfSales:   r.PointOfSales,
		NumberFrom:     r.NumberFrom,
		NumberTo:       r.NumberTo,
		Result:         r.Result,
		CAE:            r.CAE,
		CAEExpiry:      r.CAEExpiry,
		TotalAmount:    r.TotalAmount,
		IssuedDate:     r.Date,
		DocumentType:   r.DocumentType,
		DocumentNumber: r.DocumentNumber,
	}
}
