package authority

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

func testTicket() domain.Ticket {
	return domain.Ticket{
		Service:   "wsfe",
		OwnerCUIT: 20111111112,
		Token:     "tok",
		Sign:      "sig",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func wsfeServer(t *testing.T, respond func(t *testing.T, body string) string) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		fmt.Fprint(w, respond(t, string(raw)))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(Config{WSFEURL: srv.URL, CUIT: 20111111112})
	return srv, client
}

func TestLastAuthorized(t *testing.T) {
	_, client := wsfeServer(t, func(t *testing.T, body string) string {
		assert.Contains(t, body, "<ar:PtoVta>1</ar:PtoVta>")
		assert.Contains(t, body, "<ar:CbteTipo>11</ar:CbteTipo>")
		assert.Contains(t, body, "<ar:Token>tok</ar:Token>")
		return soapResponse(`<FECompUltimoAutorizadoResponse>
<FECompUltimoAutorizadoResult>
<PtoVta>1</PtoVta><CbteTipo>11</CbteTipo><CbteNro>41</CbteNro>
</FECompUltimoAutorizadoResult>
</FECompUltimoAutorizadoResponse>`)
	})

	last, err := client.LastAuthorized(context.Background(), testTicket(), 1, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(41), last)
}

func TestLastAuthorizedError(t *testing.T) {
	_, client := wsfeServer(t, func(t *testing.T, body string) string {
		return soapResponse(`<FECompUltimoAutorizadoResponse>
<FECompUltimoAutorizadoResult>
<Errors><Err><Code>600</Code><Msg>token invalido</Msg></Err></Errors>
</FECompUltimoAutorizadoResult>
</FECompUltimoAutorizadoResponse>`)
	})

	_, err := client.LastAuthorized(context.Background(), testTicket(), 1, 11)
	var apiErr APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 600, apiErr.Code)
	assert.Equal(t, "token invalido", apiErr.Msg)
}

func TestAuthorizeBatchApproved(t *testing.T) {
	_, client := wsfeServer(t, func(t *testing.T, body string) string {
		assert.Contains(t, body, "<ar:CantReg>1</ar:CantReg>")
		assert.Contains(t, body, "<ar:CbteDesde>42</ar:CbteDesde>")
		assert.Contains(t, body, "<ar:ImpTotal>121.00</ar:ImpTotal>")
		return soapResponse(`<FECAESolicitarResponse>
<FECAESolicitarResult>
<FeCabResp><Resultado>A</Resultado></FeCabResp>
<FeDetResp><FECAEDetResponse>
<CbteDesde>42</CbteDesde><CbteHasta>42</CbteHasta>
<Resultado>A</Resultado><CAE>71234567890123</CAE><CAEFchVto>20260910</CAEFchVto>
</FECAEDetResponse></FeDetResp>
</FECAESolicitarResult>
</FECAESolicitarResponse>`)
	})

	batch := BatchRequest{
		PointOfSales: 1,
		ReceiptType:  11,
		Details: []ReceiptDetail{{
			Concept:        1,
			DocumentType:   96,
			DocumentNumber: 20111111112,
			NumberFrom:     42,
			NumberTo:       42,
			Date:           "20260828",
			TotalAmount:    "121.00",
			NetUntaxed:     "0.00",
			NetTaxed:       "100.00",
			ExemptAmount:   "0.00",
			TaxAmount:      "0.00",
			VatAmount:      "21.00",
			CurrencyID:     "PES",
			CurrencyQuote:  "1",
		}},
	}

	resp, err := client.AuthorizeBatch(context.Background(), testTicket(), batch)
	require.NoError(t, err)
	assert.Equal(t, "A", resp.Result)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, int64(42), resp.Details[0].NumberFrom)
	assert.Equal(t, "A", resp.Details[0].Result)
	assert.Equal(t, "71234567890123", resp.Details[0].CAE)
	assert.Equal(t, "20260910", resp.Details[0].CAEExpiry)
}

func TestAuthorizeBatchRejectedWithObservations(t *testing.T) {
	_, client := wsfeServer(t, func(t *testing.T, body string) string {
		return soapResponse(`<FECAESolicitarResponse>
<FECAESolicitarResult>
<FeCabResp><Resultado>R</Resultado></FeCabResp>
<FeDetResp><FECAEDetResponse>
<CbteDesde>42</CbteDesde><CbteHasta>42</CbteHasta>
<Resultado>R</Resultado>
<Observaciones><Obs><Code>10048</Code><Msg>El importe total no coincide</Msg></Obs></Observaciones>
</FECAEDetResponse></FeDetResp>
</FECAESolicitarResult>
</FECAESolicitarResponse>`)
	})

	resp, err := client.AuthorizeBatch(context.Background(), testTicket(), BatchRequest{
		PointOfSales: 1,
		ReceiptType:  11,
		Details:      []ReceiptDetail{{NumberFrom: 42, NumberTo: 42}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "R", resp.Details[0].Result)
	require.Len(t, resp.Details[0].Observations, 1)
	assert.Equal(t, 10048, resp.Details[0].Observations[0].Code)
	assert.Equal(t, "El importe total no coincide", resp.Details[0].Observations[0].Msg)
}

func TestFetchReceipt(t *testing.T) {
	_, client := wsfeServer(t, func(t *testing.T, body string) string {
		assert.Contains(t, body, "<ar:CbteNro>42</ar:CbteNro>")
		return soapResponse(`<FECompConsultarResponse>
<FECompConsultarResult>
<ResultGet>
<CbteTipo>11</CbteTipo><PtoVta>1</PtoVta>
<CbteDesde>42</CbteDesde><CbteHasta>42</CbteHasta>
<Resultado>A</Resultado><CodAutorizacion>71234567890123</CodAutorizacion>
<ImpTotal>121.00</ImpTotal>
</ResultGet>
</FECompConsultarResult>
</FECompConsultarResponse>`)
	})

	remote, err := client.FetchReceipt(context.Background(), testTicket(), 11, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), remote.NumberFrom)
	assert.Equal(t, "A", remote.Result)
	assert.Equal(t, "71234567890123", remote.CAE)
	assert.Equal(t, "121.00", remote.TotalAmount)
}

func TestFetchReceiptNotFound(t *testing.T) {
	_, client := wsfeServer(t, func(t *testing.T, body string) string {
		return soapResponse(`<FECompConsultarResponse>
<FECompConsultarResult>
<Errors><Err><Code>602</Code><Msg>No existen datos en nuestros registros</Msg></Err></Errors>
</FECompConsultarResult>
</FECompConsultarResponse>`)
	})

	_, err := client.FetchReceipt(context.Background(), testTicket(), 11, 9999, 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
