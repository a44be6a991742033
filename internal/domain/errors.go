package domain

import "errors"

// Sentinel errors for domain-level error discrimination. Services wrap these
// with context so HTTP handlers can map them to status codes without leaking
// infrastructure details into responses.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)
