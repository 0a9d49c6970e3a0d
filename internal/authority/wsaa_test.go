package authority

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCredential builds a self-signed certificate valid for the given window.
func testCredential(t *testing.T, notBefore, notAfter time.Time) Credential {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test taxpayer"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return Credential{Certificate: cert, Key: key}
}

func soapResponse(inner string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
<soapenv:Body>` + inner + `</soapenv:Body>
</soapenv:Envelope>`
}

func soapFault(code, msg string) string {
	return soapResponse(fmt.Sprintf(
		`<soapenv:Fault><faultcode>%s</faultcode><faultstring>%s</faultstring></soapenv:Fault>`,
		code, msg))
}

func TestLoginReturnsTicket(t *testing.T) {
	expiration := time.Now().Add(12 * time.Hour).UTC().Truncate(time.Second)
	generation := time.Now().UTC().Truncate(time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("SOAPAction"), "loginCms")

		// The ticket travels as escaped XML inside loginCmsReturn.
		ticket := fmt.Sprintf(
			`&lt;loginTicketResponse&gt;&lt;header&gt;&lt;generationTime&gt;%s&lt;/generationTime&gt;&lt;expirationTime&gt;%s&lt;/expirationTime&gt;&lt;/header&gt;&lt;credentials&gt;&lt;token&gt;TOKEN&lt;/token&gt;&lt;sign&gt;SIGN&lt;/sign&gt;&lt;/credentials&gt;&lt;/loginTicketResponse&gt;`,
			generation.Format(time.RFC3339), expiration.Format(time.RFC3339))
		fmt.Fprint(w, soapResponse(
			`<loginCmsResponse><loginCmsReturn>`+ticket+`</loginCmsReturn></loginCmsResponse>`))
	}))
	defer srv.Close()

	client := NewClient(Config{LoginURL: srv.URL, CUIT: 20111111112})
	cred := testCredential(t, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	ticket, err := client.Login(context.Background(), "wsfe", cred)
	require.NoError(t, err)
	assert.Equal(t, "wsfe", ticket.Service)
	assert.Equal(t, int64(20111111112), ticket.OwnerCUIT)
	assert.Equal(t, "TOKEN", ticket.Token)
	assert.Equal(t, "SIGN", ticket.Sign)
	assert.Equal(t, expiration, ticket.ExpiresAt.UTC())
	assert.NotZero(t, ticket.UniqueID)
}

func TestLoginExpiredCredentialFailsBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(Config{LoginURL: srv.URL})
	cred := testCredential(t, time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))

	_, err := client.Login(context.Background(), "wsfe", cred)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, AuthExpiredCredential, authErr.Reason)
	assert.False(t, called, "expired credential must not hit the wire")
}

func TestLoginFaultClassification(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		msg    string
		reason AuthReason
	}{
		{"already authenticated", "coe.alreadyAuthenticated", "El CEE ya posee un TA valido", AuthRateLimited},
		{"expired cms", "cms.expired", "Firma expirada", AuthExpiredCredential},
		{"generic rejection", "cms.bad", "Firma invalida", AuthRemoteRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, soapFault(tt.code, tt.msg))
			}))
			defer srv.Close()

			client := NewClient(Config{LoginURL: srv.URL})
			cred := testCredential(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

			_, err := client.Login(context.Background(), "wsfe", cred)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.reason, authErr.Reason)
			assert.Equal(t, tt.msg, authErr.Msg, "fault text passes through verbatim")
		})
	}
}

func TestLoginConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(Config{LoginURL: srv.URL})
	cred := testCredential(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	_, err := client.Login(context.Background(), "wsfe", cred)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, TransportConnectionFailed, transportErr.Kind)
}

func TestParseCredentialPEMRejectsGarbage(t *testing.T) {
	_, err := ParseCredentialPEM([]byte("not pem"), []byte("not pem"))
	assert.Error(t, err)
}
