package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/getyoursite/getyoursite/app/models"
)

const (
	TransactionsCollection  = "payment_transactions"
	WebhookEventsCollection = "payment_webhook_events"
)

// transactionDoc is the stored document shape. Amounts are kept as numbers so
// other consumers of the collection can read them.
type transactionDoc struct {
	SessionID     string            `bson:"session_id"`
	PackageID     string            `bson:"package_id"`
	PizzaName     string            `bson:"pizza_name"`
	Amount        float64           `bson:"amount"`
	Currency      string            `bson:"currency"`
	PaymentStatus string            `bson:"payment_status"`
	Status        string            `bson:"status"`
	Metadata      map[string]string `bson:"metadata"`
	EventType     string            `bson:"event_type,omitempty"`
	EventID       string            `bson:"event_id,omitempty"`
	TestMode      bool              `bson:"test_mode,omitempty"`
	Notes         string            `bson:"notes,omitempty"`
	CompletedAt   *time.Time        `bson:"completed_at,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
}

func toDoc(tx *models.PaymentTransaction) transactionDoc {
	return transactionDoc{
		SessionID:     tx.SessionID,
		PackageID:     tx.PackageID,
		PizzaName:     tx.PizzaName,
		Amount:        tx.Amount.InexactFloat64(),
		Currency:      tx.Currency,
		PaymentStatus: tx.PaymentStatus,
		Status:        tx.Status,
		Metadata:      tx.Metadata,
		EventType:     tx.EventType,
		EventID:       tx.EventID,
		TestMode:      tx.TestMode,
		Notes:         tx.Notes,
		CompletedAt:   tx.CompletedAt,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

func (d transactionDoc) model() *models.PaymentTransaction {
	return &models.PaymentTransaction{
		SessionID:     d.SessionID,
		PackageID:     d.PackageID,
		PizzaName:     d.PizzaName,
		Amount:        decimal.NewFromFloat(d.Amount).Round(2),
		Currency:      d.Currency,
		PaymentStatus: d.PaymentStatus,
		Status:        d.Status,
		Metadata:      d.Metadata,
		EventType:     d.EventType,
		EventID:       d.EventID,
		TestMode:      d.TestMode,
		Notes:         d.Notes,
		CompletedAt:   d.CompletedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type MongoRepository struct {
	txs    *mongo.Collection
	events *mongo.Collection
}

// NewMongoRepository uses the payment collections of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		txs:    db.Collection(TransactionsCollection),
		events: db.Collection(WebhookEventsCollection),
	}
}

// EnsureIndexes creates the unique keys the conditional writes rely on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.txs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_event_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	now := time.Now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = now
	}
	_, err := r.txs.InsertOne(ctx, toDoc(tx))
	if mongo.IsDuplicateKeyError(err) {
		return errDuplicateSession(tx.SessionID)
	}
	return err
}

func (r *MongoRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	var doc transactionDoc
	err := r.txs.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

func (r *MongoRepository) ApplyUpdate(ctx context.Context, sessionID string, u Update, g Guard) (bool, error) {
	filter := bson.M{"session_id": sessionID}
	if len(g.BlockedStatuses) > 0 {
		filter["payment_status"] = bson.M{"$nin": g.BlockedStatuses}
	}
	set := bson.M{}
	for k, v := range updateColumns(u) {
		set[k] = v
	}

	res, err := r.txs.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, error) {
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	_, err := r.events.InsertOne(ctx, event)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *MongoRepository) MarkWebhookProcessed(ctx context.Context, provider, providerEventID, processingError string) error {
	now := time.Now()
	_, err := r.events.UpdateOne(ctx,
		bson.M{"provider": provider, "provider_event_id": providerEventID},
		bson.M{"$set": bson.M{"processed_at": now, "processing_error": processingError, "updated_at": now}},
	)
	return err
}
