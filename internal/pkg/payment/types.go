package payment

import (
	"time"

	"github.com/getyoursite/getyoursite/app/models"
)

// CheckoutRequest is the caller input for a new checkout session. Metadata
// values are coerced to strings.
type CheckoutRequest struct {
	PackageID string
	OriginURL string
	Metadata  map[string]interface{}
}

type CheckoutResult struct {
	URL       string
	SessionID string
	Package   Package
	Currency  string
	// Set for the free test package only.
	Status  string
	Message string
	IsTest  bool
}

type StatusResult struct {
	SessionID     string
	Status        string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
	PizzaName     string
	IsTest        bool
	Message       string
}

type WebhookResult struct {
	Received  bool
	EventType string
	SessionID string
	Duplicate bool
	Applied   bool
}

// Update is a partial change to a stored transaction. Empty strings leave the
// matching column untouched.
type Update struct {
	PaymentStatus string
	Status        string
	EventType     string
	EventID       string
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// Guard lists the stored payment statuses an update must not overwrite.
// Repositories apply it in the same write as the update.
type Guard struct {
	BlockedStatuses []string
}

func (g Guard) Allows(current string) bool {
	for _, s := range g.BlockedStatuses {
		if s == current {
			return false
		}
	}
	return true
}

var terminalStatuses = []string{
	models.PaymentStatusPaid,
	models.PaymentStatusExpired,
	models.PaymentStatusCanceled,
}

// GuardFor returns the conflict rule shared by polling and webhooks:
// test records are never touched, paid is never downgraded, an update equal
// to the stored status is a no-op, and expired/canceled only apply to
// records that are not terminal yet.
func GuardFor(target string) Guard {
	blocked := []string{models.PaymentStatusCompletedTest, models.PaymentStatusPaid}
	switch target {
	case models.PaymentStatusExpired, models.PaymentStatusCanceled:
		blocked = append(blocked, terminalStatuses[1:]...)
	case models.PaymentStatusPaid:
	default:
		if target != "" {
			blocked = append(blocked, target)
		}
	}
	return Guard{BlockedStatuses: blocked}
}

// IsTerminal reports whether status ends the payment lifecycle.
func IsTerminal(status string) bool {
	for _, s := range terminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}
