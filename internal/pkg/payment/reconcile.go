package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/getyoursite/getyoursite/app/models"
)

// GetStatus returns the live provider status of a session and folds it into
// the stored transaction. Test orders are answered from the store alone.
func (s *Service) GetStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	tx, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrTransactionNotFound) {
			log.Warnw("[Payment] transaction lookup failed, asking provider", "session_id", sessionID, "error", err)
		}
		tx = nil
	}

	if tx != nil && tx.TestMode {
		return &StatusResult{
			SessionID:     tx.SessionID,
			Status:        tx.Status,
			PaymentStatus: tx.PaymentStatus,
			AmountTotal:   tx.Amount.Shift(2).IntPart(),
			Currency:      tx.Currency,
			Metadata:      tx.Metadata,
			PizzaName:     tx.PizzaName,
			IsTest:        true,
			Message:       TestStatusMessage,
		}, nil
	}

	if s.provider == nil {
		return nil, ErrProviderNotConfigured
	}

	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, upstream("get session", err)
	}

	if tx != nil {
		s.reconcile(ctx, tx, session)
	}

	return &StatusResult{
		SessionID:     sessionID,
		Status:        session.Status,
		PaymentStatus: session.PaymentStatus,
		AmountTotal:   session.AmountTotal,
		Currency:      strings.ToUpper(session.Currency),
		Metadata:      session.Metadata,
	}, nil
}

// reconcile applies paid and terminal non-paid provider states. Anything else
// leaves the record alone. Store errors are logged, the caller still gets the
// live status.
func (s *Service) reconcile(ctx context.Context, tx *models.PaymentTransaction, session *Session) {
	now := s.now()
	u := Update{PaymentStatus: session.PaymentStatus, Status: session.Status, UpdatedAt: now}

	switch session.PaymentStatus {
	case models.PaymentStatusPaid:
		if tx.IsPaid() {
			return
		}
		u.CompletedAt = &now
	case models.PaymentStatusExpired, models.PaymentStatusCanceled:
		if IsTerminal(tx.PaymentStatus) {
			return
		}
	default:
		return
	}

	applied, err := s.repo.ApplyUpdate(ctx, tx.SessionID, u, GuardFor(u.PaymentStatus))
	if err != nil {
		log.Errorw("[Payment] status update failed", "session_id", tx.SessionID, "error", err)
		return
	}
	if applied {
		log.Infow("[Payment] transaction updated from status poll",
			"session_id", tx.SessionID, "payment_status", u.PaymentStatus, "status", u.Status)
		s.metrics.PaymentUpdate("poll", u.PaymentStatus)
	}
}
