package authority

import (
	"fmt"
	"strings"
)

// TransportKind classifies how a remote call failed before a usable response
// was obtained. Transport failures never consume receipt numbers.
type TransportKind string

const (
	TransportTimeout           TransportKind = "timeout"
	TransportConnectionFailed  TransportKind = "connection_failed"
	TransportMalformedResponse TransportKind = "malformed_response"
)

// TransportError wraps a network or decoding failure talking to the authority.
// It propagates unchanged to the orchestrator's caller; retry policy belongs
// to the caller.
type TransportError struct {
	Kind TransportKind
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("authority %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthReason classifies login failures.
type AuthReason string

const (
	AuthExpiredCredential AuthReason = "expired_credential"
	AuthRemoteRejected    AuthReason = "remote_rejected"
	AuthRateLimited       AuthReason = "rate_limited"
)

// AuthError reports a failed login exchange with the authority. No retries
// happen at this layer.
type AuthError struct {
	Reason AuthReason
	Msg    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authority login: %s: %s", e.Reason, e.Msg)
}

// Fault is a SOAP fault returned by the authority.
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("authority fault %s: %s", f.Code, f.String)
}

// classifyLoginFault maps WSAA fault codes onto the auth error taxonomy. The
// authority signals an already-issued ticket (its rate limit on issuance) with
// coe.alreadyAuthenticated.
func classifyLoginFault(f *Fault) *AuthError {
	code := strings.ToLower(f.Code)
	msg := strings.ToLower(f.String)
	switch {
	case strings.Contains(code, "alreadyauthenticated"):
		return &AuthError{Reason: AuthRateLimited, Msg: f.String}
	case strings.Contains(code, "cms.expired"),
		strings.Contains(code, "cert.expired"),
		strings.Contains(msg, "expirado"),
		strings.Contains(msg, "expired"):
		return &AuthError{Reason: AuthExpiredCredential, Msg: f.String}
	default:
		return &AuthError{Reason: AuthRemoteRejected, Msg: f.String}
	}
}
