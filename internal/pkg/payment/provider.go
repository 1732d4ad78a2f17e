package payment

import "context"

// SessionRequest describes a one-item hosted checkout.
type SessionRequest struct {
	AmountMinor int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Session is the provider view of a checkout session with statuses already
// normalized to the local vocabulary.
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

// WebhookEvent is a verified and normalized provider notification.
// PaymentStatus is empty for events that do not move a payment.
type WebhookEvent struct {
	ID            string
	Type          string
	SessionID     string
	PaymentStatus string
	Payload       []byte
}

// Provider is the external payment service.
type Provider interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	// ParseWebhook verifies the signature before decoding and returns
	// ErrInvalidSignature when it does not match.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
