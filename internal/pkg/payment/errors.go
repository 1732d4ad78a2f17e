package payment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPackage        = errors.New("invalid package")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrProviderNotConfigured = errors.New("payment provider not configured")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrMissingSessionID      = errors.New("session id required")
	ErrInvalidOrigin         = errors.New("invalid origin url")
	ErrDuplicateSession      = errors.New("session already recorded")
)

// UpstreamError wraps a failure reported by the payment provider.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment provider %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func errDuplicateSession(sessionID string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateSession, sessionID)
}
