package httptransport

import (
	"errors"

	"fiscal/internal/authority"
	"fiscal/internal/receipt"
	dErrors "fiscal/pkg/domain-errors"
	"fiscal/pkg/platform/sentinel"
)

// translate maps domain and authority errors onto coded API errors. Messages
// from the authority pass through untouched.
func translate(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de
	}

	var authErr *authority.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case authority.AuthRateLimited:
			return dErrors.Wrap(err, dErrors.CodeRateLimited, authErr.Msg)
		case authority.AuthExpiredCredential:
			return dErrors.Wrap(err, dErrors.CodeInternal, "authority credential expired")
		default:
			return dErrors.Wrap(err, dErrors.CodeUnavailable, authErr.Msg)
		}
	}

	var transportErr *authority.TransportError
	if errors.As(err, &transportErr) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "authority unreachable")
	}

	var validationErr *receipt.ValidationError
	if errors.As(err, &validationErr) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, validationErr.Message)
	}

	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}
