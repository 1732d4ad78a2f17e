package models

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending       = "pending"
	PaymentStatusPaid          = "paid"
	PaymentStatusFailed        = "failed"
	PaymentStatusExpired       = "expired"
	PaymentStatusCanceled      = "canceled"
	PaymentStatusCompletedTest = "completed_test"
)

// Provider lifecycle stages stored in PaymentTransaction.Status.
const (
	SessionStatusInitiated   = "initiated"
	SessionStatusOpen        = "open"
	SessionStatusComplete    = "complete"
	SessionStatusExpired     = "expired"
	SessionStatusTestSuccess = "test_success"
)

// Metadata is a flat string map persisted as a JSON column.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := sonic.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("metadata: unsupported column type")
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := sonic.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// PaymentTransaction is the local record of one checkout session, keyed by the
// provider session id.
type PaymentTransaction struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	SessionID     string          `gorm:"type:varchar(191);not null;uniqueIndex" json:"session_id"`
	PackageID     string          `gorm:"type:varchar(64);not null;index" json:"package_id"`
	PizzaName     string          `gorm:"type:varchar(191);not null" json:"pizza_name"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	PaymentStatus string          `gorm:"type:varchar(32);not null;default:'pending';index" json:"payment_status"`
	Status        string          `gorm:"type:varchar(32);not null;default:'initiated'" json:"status"`
	Metadata      Metadata        `gorm:"type:json" json:"metadata"`
	EventType     string          `gorm:"type:varchar(100)" json:"event_type,omitempty"`
	EventID       string          `gorm:"type:varchar(191)" json:"event_id,omitempty"`
	TestMode      bool            `gorm:"default:false" json:"test_mode,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	CompletedAt   *time.Time      `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// IsPaid reports whether the provider confirmed the payment.
func (t *PaymentTransaction) IsPaid() bool {
	return t.PaymentStatus == PaymentStatusPaid
}
