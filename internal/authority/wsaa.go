package authority

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/smallstep/pkcs7"
	"golang.org/x/crypto/pkcs12"

	"fiscal/internal/domain"
)

const loginNS = "http://wsaa.view.sua.dvadac.desein.afip.gov"

// Tickets issued by the login service are valid for twelve hours; the signed
// request declares the same window.
const ticketLifetime = 12 * time.Hour

// Credential is the certificate/key pair a taxpayer registered with the
// authority, used to sign login requests.
type Credential struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
}

// Expired reports whether the certificate is outside its validity window.
func (c Credential) Expired(now time.Time) bool {
	return now.After(c.Certificate.NotAfter) || now.Before(c.Certificate.NotBefore)
}

// LoadCredentialPEM reads a PEM certificate and PEM private key from disk.
func LoadCredentialPEM(certPath, keyPath string) (Credential, error) {
	certRaw, err := os.ReadFile(certPath)
	if err != nil {
		return Credential{}, fmt.Errorf("read certificate: %w", err)
	}
	keyRaw, err := os.ReadFile(keyPath)
	if err != nil {
		return Credential{}, fmt.Errorf("read key: %w", err)
	}
	return ParseCredentialPEM(certRaw, keyRaw)
}

// ParseCredentialPEM decodes an in-memory PEM certificate and key pair.
func ParseCredentialPEM(certPEM, keyPEM []byte) (Credential, error) {
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return Credential{}, errors.New("no PEM block in certificate")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return Credential{}, fmt.Errorf("parse certificate: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return Credential{}, errors.New("no PEM block in key")
	}
	key, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Certificate: cert, Key: key}, nil
}

// LoadCredentialPKCS12 decodes a PKCS#12 bundle as distributed by some
// certificate authorities.
func LoadCredentialPKCS12(path, password string) (Credential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("read bundle: %w", err)
	}
	key, cert, err := pkcs12.Decode(raw, password)
	if err != nil {
		return Credential{}, fmt.Errorf("decode bundle: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return Credential{}, errors.New("bundle key is not RSA")
	}
	return Credential{Certificate: cert, Key: rsaKey}, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rsaKey, nil
}

// loginTicketRequest is the TRA document the authority expects, CMS-signed.
type loginTicketRequest struct {
	XMLName xml.Name  `xml:"loginTicketRequest"`
	Version string    `xml:"version,attr"`
	Header  traHeader `xml:"header"`
	Service string    `xml:"service"`
}

type traHeader struct {
	UniqueID       uint32 `xml:"uniqueId"`
	GenerationTime string `xml:"generationTime"`
	ExpirationTime string `xml:"expirationTime"`
}

type loginCmsRequest struct {
	XMLName xml.Name `xml:"ar:loginCms"`
	In0     string   `xml:"ar:in0"`
}

type loginCmsResponse struct {
	XMLName xml.Name `xml:"loginCmsResponse"`
	Return  string   `xml:"loginCmsReturn"`
}

type loginTicketResponse struct {
	XMLName xml.Name `xml:"loginTicketResponse"`
	Header  struct {
		GenerationTime time.Time `xml:"generationTime"`
		ExpirationTime time.Time `xml:"expirationTime"`
	} `xml:"header"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

// Login performs the signed login exchange for the given service scope and
// returns a fresh ticket. The credential's validity is checked before any
// network traffic so an expired certificate fails fast.
func (c *Client) Login(ctx context.Context, service string, cred Credential) (domain.Ticket, error) {
	now := time.Now()
	if cred.Expired(now) {
		return domain.Ticket{}, &AuthError{
			Reason: AuthExpiredCredential,
			Msg:    fmt.Sprintf("certificate not valid after %s", cred.Certificate.NotAfter.Format(time.RFC3339)),
		}
	}

	uniqueID := uint32(now.Unix())
	tra := loginTicketRequest{
		Version: "1.0",
		Header: traHeader{
			UniqueID:       uniqueID,
			GenerationTime: now.Add(-10 * time.Minute).Format(time.RFC3339),
			ExpirationTime: now.Add(ticketLifetime).Format(time.RFC3339),
		},
		Service: service,
	}
	traXML, err := xml.Marshal(tra)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("marshal ticket request: %w", err)
	}

	cms, err := signCMS(append([]byte(xml.Header), traXML...), cred)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("sign ticket request: %w", err)
	}

	var resp loginCmsResponse
	err = c.call(ctx, c.loginURL, loginNS, "loginCms", loginCmsRequest{In0: cms}, &resp)
	if err != nil {
		var fault *Fault
		if errors.As(err, &fault) {
			return domain.Ticket{}, classifyLoginFault(fault)
		}
		return domain.Ticket{}, err
	}

	// The login response wraps the actual ticket as escaped XML.
	var ticket loginTicketResponse
	if err := xml.Unmarshal([]byte(resp.Return), &ticket); err != nil {
		return domain.Ticket{}, &TransportError{Kind: TransportMalformedResponse, Op: "loginCms", Err: err}
	}

	return domain.Ticket{
		Service:     service,
		OwnerCUIT:   c.cuit,
		UniqueID:    uniqueID,
		GeneratedAt: ticket.Header.GenerationTime,
		ExpiresAt:   ticket.Header.ExpirationTime,
		Token:       ticket.Credentials.Token,
		Sign:        ticket.Credentials.Sign,
	}, nil
}

func signCMS(data []byte, cred Credential) (string, error) {
	signed, err := pkcs7.NewSignedData(data)
	if err != nil {
		return "", err
	}
	if err := signed.AddSigner(cred.Certificate, cred.Key, pkcs7.SignerInfoConfig{}); err != nil {
		return "", err
	}
	der, err := signed.Finish()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
