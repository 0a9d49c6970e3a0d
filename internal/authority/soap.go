package authority

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var callDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "fiscal_authority_call_duration_ms",
	Help:    "Latency of authority web-service calls in milliseconds",
	Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
}, []string{"op"})

// Client talks to the authority's SOAP web services. It is safe for
// concurrent use; each call honors the caller's context deadline.
type Client struct {
	http     *http.Client
	loginURL string
	wsfeURL  string
	cuit     int64
}

// Config carries the endpoints and taxpayer identity for a Client.
type Config struct {
	LoginURL string
	WSFEURL  string
	CUIT     int64
	Timeout  time.Duration
}

// NewClient builds an authority client with the given endpoints. Timeout is a
// default per-call ceiling; callers can tighten it further via context.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		loginURL: cfg.LoginURL,
		wsfeURL:  cfg.WSFEURL,
		cuit:     cfg.CUIT,
	}
}

type requestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	ArNS    string   `xml:"xmlns:ar,attr"`
	Body    requestBody
}

type requestBody struct {
	XMLName xml.Name `xml:"soapenv:Body"`
	Payload any
}

type responseEnvelope struct {
	Body struct {
		Fault *Fault `xml:"Fault"`
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// call performs one SOAP request/response round trip. Network failures and
// undecodable payloads surface as *TransportError; SOAP faults as *Fault.
func (c *Client) call(ctx context.Context, url, ns, op string, payload, out any) error {
	start := time.Now()
	defer func() {
		callDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	env := requestEnvelope{
		SoapNS: "http://schemas.xmlsoap.org/soap/envelope/",
		ArNS:   ns,
		Body:   requestBody{Payload: payload},
	}
	raw, err := xml.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}
	body := append([]byte(xml.Header), raw...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", ns+op))

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Kind: classifyNetErr(err), Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Kind: TransportConnectionFailed, Op: op, Err: err}
	}

	var respEnv responseEnvelope
	if err := xml.Unmarshal(data, &respEnv); err != nil {
		return &TransportError{Kind: TransportMalformedResponse, Op: op, Err: err}
	}
	if respEnv.Body.Fault != nil {
		return respEnv.Body.Fault
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{
			Kind: TransportConnectionFailed,
			Op:   op,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	if err := xml.Unmarshal(respEnv.Body.Inner, out); err != nil {
		return &TransportError{Kind: TransportMalformedResponse, Op: op, Err: err}
	}
	return nil
}

func classifyNetErr(err error) TransportKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return TransportTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimeout
	}
	return TransportConnectionFailed
}
