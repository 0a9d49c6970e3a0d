package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and remote clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store or at the authority
// - ErrExpired: ticket or credential has expired
// - ErrRateLimited: the authority refused a request as too frequent
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: service or resource temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrRateLimited  = errors.New("rate limited")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
