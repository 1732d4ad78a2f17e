package models

import "time"

// PaymentWebhookEvent stores verified provider webhook deliveries with
// deduplication metadata for idempotent processing.
type PaymentWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id" bson:"-"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_payment_webhook_events_provider_event,unique,priority:1" json:"provider" bson:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_payment_webhook_events_provider_event,unique,priority:2" json:"provider_event_id" bson:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type" bson:"event_type"`
	SessionID       string     `gorm:"type:varchar(191);index" json:"session_id" bson:"session_id"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json" bson:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid" bson:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty" bson:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error" bson:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at" bson:"updated_at"`
}

func (PaymentWebhookEvent) TableName() string {
	return "payment_webhook_events"
}
