package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/getyoursite/getyoursite/app/models"
)

const ProviderStripe = "stripe"

// StripeProvider talks to Stripe Checkout.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider fails with ErrProviderNotConfigured when apiKey is empty.
func NewStripeProvider(apiKey, webhookSecret string) (*StripeProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrProviderNotConfigured
	}
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeProvider{api: api, webhookSecret: strings.TrimSpace(webhookSecret)}, nil
}

func (p *StripeProvider) Name() string {
	return ProviderStripe
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: req.Metadata,
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return toSession(s), nil
}

func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, err
	}
	return toSession(s), nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if strings.TrimSpace(signature) == "" || p.webhookSecret == "" {
		return nil, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type), Payload: payload}
	if !strings.HasPrefix(out.Type, "checkout.session.") || event.Data == nil {
		return out, nil
	}

	var s stripe.CheckoutSession
	if err := sonic.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = s.ID

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		out.PaymentStatus = normalizePaymentStatus(s.Status, s.PaymentStatus)
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.PaymentStatus = models.PaymentStatusPaid
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		out.PaymentStatus = models.PaymentStatusFailed
	case stripe.EventTypeCheckoutSessionExpired:
		out.PaymentStatus = models.PaymentStatusExpired
	}
	return out, nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: normalizePaymentStatus(s.Status, s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      strings.ToUpper(string(s.Currency)),
		Metadata:      s.Metadata,
	}
}

// normalizePaymentStatus maps Stripe's session state onto the local enum.
func normalizePaymentStatus(status stripe.CheckoutSessionStatus, ps stripe.CheckoutSessionPaymentStatus) string {
	switch ps {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return models.PaymentStatusPaid
	}
	if status == stripe.CheckoutSessionStatusExpired {
		return models.PaymentStatusExpired
	}
	return models.PaymentStatusPending
}
