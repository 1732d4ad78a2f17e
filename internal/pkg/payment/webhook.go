package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/getyoursite/getyoursite/app/models"
)

// HandleWebhook verifies and applies a provider notification. Only a failed
// signature check returns ErrInvalidSignature; once verified, internal
// failures are logged and the event is still acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.provider == nil {
		return nil, ErrProviderNotConfigured
	}

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			s.metrics.WebhookEvent("unknown", "invalid_signature")
			return nil, err
		}
		// Signature matched but the body could not be decoded. Acknowledge
		// so the provider does not retry a payload we will never read.
		log.Errorw("[Webhook] verified payload could not be decoded", "error", err)
		s.metrics.WebhookEvent("unknown", "decode_error")
		return &WebhookResult{Received: true}, nil
	}

	res := &WebhookResult{Received: true, EventType: event.Type, SessionID: event.SessionID}
	provider := s.providerName()

	if event.ID != "" {
		created, err := s.repo.CreateWebhookEventIfNotExists(ctx, &models.PaymentWebhookEvent{
			Provider:        provider,
			ProviderEventID: event.ID,
			EventType:       event.Type,
			SessionID:       event.SessionID,
			PayloadJSON:     string(event.Payload),
			SignatureValid:  true,
		})
		switch {
		case err != nil:
			log.Warnw("[Webhook] failed to record event, processing anyway",
				"event_id", event.ID, "error", err)
		case !created:
			log.Infow("[Webhook] duplicate event ignored", "event_id", event.ID, "event_type", event.Type)
			s.metrics.WebhookEvent(event.Type, "duplicate")
			res.Duplicate = true
			return res, nil
		}
	}

	applied, procErr := s.applyWebhook(ctx, event)
	res.Applied = applied

	outcome := "ignored"
	switch {
	case procErr != nil:
		outcome = "error"
		log.Errorw("[Webhook] processing failed, acknowledging anyway",
			"event_id", event.ID, "session_id", event.SessionID, "error", procErr)
	case applied:
		outcome = "applied"
	}
	s.metrics.WebhookEvent(event.Type, outcome)

	if event.ID != "" {
		msg := ""
		if procErr != nil {
			msg = procErr.Error()
		}
		if err := s.repo.MarkWebhookProcessed(ctx, provider, event.ID, msg); err != nil {
			log.Warnw("[Webhook] failed to mark event processed", "event_id", event.ID, "error", err)
		}
	}
	return res, nil
}

func (s *Service) applyWebhook(ctx context.Context, event *WebhookEvent) (bool, error) {
	if event.SessionID == "" || event.PaymentStatus == "" {
		log.Infow("[Webhook] event carries no payment change", "event_id", event.ID, "event_type", event.Type)
		return false, nil
	}

	now := s.now()
	u := Update{
		PaymentStatus: event.PaymentStatus,
		EventType:     event.Type,
		EventID:       event.ID,
		UpdatedAt:     now,
	}
	if event.PaymentStatus == models.PaymentStatusPaid {
		u.CompletedAt = &now
	}
	if event.PaymentStatus == models.PaymentStatusExpired {
		u.Status = models.SessionStatusExpired
	}

	applied, err := s.repo.ApplyUpdate(ctx, event.SessionID, u, GuardFor(u.PaymentStatus))
	if err != nil {
		return false, fmt.Errorf("apply %s to %s: %w", event.Type, event.SessionID, err)
	}
	if applied {
		log.Infow("[Webhook] transaction updated",
			"session_id", event.SessionID, "event_type", event.Type, "payment_status", event.PaymentStatus)
		s.metrics.PaymentUpdate("webhook", event.PaymentStatus)
	} else {
		log.Infow("[Webhook] no transaction changed (unknown session or already settled)",
			"session_id", event.SessionID, "payment_status", event.PaymentStatus)
	}
	return applied, nil
}
