package payment

import (
	"context"
	"sync"
	"time"

	"github.com/getyoursite/getyoursite/app/models"
)

// Repository persists transactions and webhook deliveries.
type Repository interface {
	Create(ctx context.Context, tx *models.PaymentTransaction) error
	// FindBySessionID returns ErrTransactionNotFound for unknown sessions.
	FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentTransaction, error)
	// ApplyUpdate writes u only when the stored payment status passes g, in a
	// single conditional write. It reports whether a record changed; an
	// unknown session is not an error.
	ApplyUpdate(ctx context.Context, sessionID string, u Update, g Guard) (bool, error)
	// CreateWebhookEventIfNotExists reports false for an already recorded
	// provider event id.
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, error)
	MarkWebhookProcessed(ctx context.Context, provider, providerEventID, processingError string) error
}

// MemoryRepository keeps everything in process. Used in development and tests.
type MemoryRepository struct {
	mu     sync.Mutex
	txs    map[string]models.PaymentTransaction
	events map[string]models.PaymentWebhookEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		txs:    make(map[string]models.PaymentTransaction),
		events: make(map[string]models.PaymentWebhookEvent),
	}
}

func (r *MemoryRepository) Create(_ context.Context, tx *models.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.txs[tx.SessionID]; ok {
		return errDuplicateSession(tx.SessionID)
	}
	now := time.Now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = now
	}
	r.txs[tx.SessionID] = cloneTransaction(*tx)
	return nil
}

func (r *MemoryRepository) FindBySessionID(_ context.Context, sessionID string) (*models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[sessionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	out := cloneTransaction(tx)
	return &out, nil
}

func (r *MemoryRepository) ApplyUpdate(_ context.Context, sessionID string, u Update, g Guard) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[sessionID]
	if !ok || !g.Allows(tx.PaymentStatus) {
		return false, nil
	}
	applyUpdate(&tx, u)
	r.txs[sessionID] = tx
	return true, nil
}

func (r *MemoryRepository) CreateWebhookEventIfNotExists(_ context.Context, event *models.PaymentWebhookEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := event.Provider + ":" + event.ProviderEventID
	if _, ok := r.events[key]; ok {
		return false, nil
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.ID = uint(len(r.events) + 1)
	r.events[key] = *event
	return true, nil
}

func (r *MemoryRepository) MarkWebhookProcessed(_ context.Context, provider, providerEventID, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := provider + ":" + providerEventID
	ev, ok := r.events[key]
	if !ok {
		return nil
	}
	now := time.Now()
	ev.ProcessedAt = &now
	ev.ProcessingError = processingError
	r.events[key] = ev
	return nil
}

// WebhookEvent returns a recorded delivery, for inspection.
func (r *MemoryRepository) WebhookEvent(provider, providerEventID string) (models.PaymentWebhookEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[provider+":"+providerEventID]
	return ev, ok
}

// Len returns the number of stored transactions.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

func applyUpdate(tx *models.PaymentTransaction, u Update) {
	if u.PaymentStatus != "" {
		tx.PaymentStatus = u.PaymentStatus
	}
	if u.Status != "" {
		tx.Status = u.Status
	}
	if u.EventType != "" {
		tx.EventType = u.EventType
	}
	if u.EventID != "" {
		tx.EventID = u.EventID
	}
	if !u.UpdatedAt.IsZero() {
		tx.UpdatedAt = u.UpdatedAt
	}
	if u.CompletedAt != nil {
		at := *u.CompletedAt
		tx.CompletedAt = &at
	}
}

func cloneTransaction(tx models.PaymentTransaction) models.PaymentTransaction {
	if tx.Metadata != nil {
		md := make(models.Metadata, len(tx.Metadata))
		for k, v := range tx.Metadata {
			md[k] = v
		}
		tx.Metadata = md
	}
	if tx.CompletedAt != nil {
		at := *tx.CompletedAt
		tx.CompletedAt = &at
	}
	return tx
}

// updateColumns maps u onto column names shared by the SQL and document stores.
func updateColumns(u Update) map[string]interface{} {
	cols := make(map[string]interface{}, 6)
	if u.PaymentStatus != "" {
		cols["payment_status"] = u.PaymentStatus
	}
	if u.Status != "" {
		cols["status"] = u.Status
	}
	if u.EventType != "" {
		cols["event_type"] = u.EventType
	}
	if u.EventID != "" {
		cols["event_id"] = u.EventID
	}
	updatedAt := u.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	cols["updated_at"] = updatedAt
	if u.CompletedAt != nil {
		cols["completed_at"] = *u.CompletedAt
	}
	return cols
}
