package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/getyoursite/getyoursite/app/models"
	"github.com/getyoursite/getyoursite/internal/pkg/constants"
	"github.com/getyoursite/getyoursite/internal/pkg/metrics"
)

const (
	MetadataSource = "lucky_pizza_lannilis"

	testSessionPrefix = "cs_test_free_"
	testCheckoutNote  = "Pizza gratuite de test - aucun paiement requis"
	TestOrderMessage  = "Pizza gratuite - commande confirmée automatiquement!"
	TestStatusMessage = "Pizza gratuite de test - commande confirmée!"
)

// reservedMetadata are keys callers can never set.
var reservedMetadata = []string{"amount", "package_id", "pizza_name", "source", "created_at", "is_test_free"}

// Service orchestrates checkout sessions and reconciles their status.
type Service struct {
	repo     Repository
	provider Provider
	metrics  *metrics.Metrics

	now       func() time.Time
	newTestID func() string
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a payment service. provider may be nil, in which case
// every operation that needs it fails with ErrProviderNotConfigured.
func NewService(repo Repository, provider Provider, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		provider: provider,
		now:      time.Now,
		newTestID: func() string {
			return testSessionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) providerName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// CreateCheckout resolves the package against the price table, opens a
// provider session and records a pending transaction. The amount always comes
// from the price table.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	pkg, ok := Lookup(strings.TrimSpace(req.PackageID))
	if !ok {
		s.metrics.CheckoutSession("unknown", "invalid_package")
		return nil, fmt.Errorf("%w: %q", ErrInvalidPackage, req.PackageID)
	}

	origin, err := normalizeOrigin(req.OriginURL)
	if err != nil {
		return nil, err
	}
	successURL := origin + constants.PizzaSuccessRoute + "?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := origin + constants.PizzaRoute

	now := s.now()
	md := mergeMetadata(req.Metadata, pkg, now)

	if pkg.IsFreeTest() {
		return s.createTestCheckout(ctx, pkg, md, successURL, now)
	}

	if s.provider == nil {
		s.metrics.CheckoutSession(pkg.ID, "not_configured")
		return nil, ErrProviderNotConfigured
	}

	session, err := s.provider.CreateSession(ctx, SessionRequest{
		AmountMinor: pkg.MinorUnits(),
		Currency:    DefaultCurrency,
		ProductName: pkg.Name,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata:    md,
	})
	if err != nil {
		s.metrics.CheckoutSession(pkg.ID, "provider_error")
		return nil, upstream("create session", err)
	}

	tx := &models.PaymentTransaction{
		SessionID:     session.ID,
		PackageID:     pkg.ID,
		PizzaName:     pkg.Name,
		Amount:        pkg.Amount,
		Currency:      DefaultCurrency,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.SessionStatusInitiated,
		Metadata:      md,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		log.Errorw("[Payment] session created but transaction not stored",
			"session_id", session.ID, "package_id", pkg.ID, "error", err)
		s.metrics.CheckoutSession(pkg.ID, "store_error")
		return nil, fmt.Errorf("store transaction %s: %w", session.ID, err)
	}

	log.Infow("[Payment] checkout session created",
		"session_id", session.ID, "package_id", pkg.ID, "amount", pkg.Amount.StringFixed(2))
	s.metrics.CheckoutSession(pkg.ID, "created")

	return &CheckoutResult{
		URL:       session.URL,
		SessionID: session.ID,
		Package:   pkg,
		Currency:  DefaultCurrency,
	}, nil
}

func (s *Service) createTestCheckout(ctx context.Context, pkg Package, md map[string]string, successURL string, now time.Time) (*CheckoutResult, error) {
	sessionID := s.newTestID()
	tx := &models.PaymentTransaction{
		SessionID:     sessionID,
		PackageID:     pkg.ID,
		PizzaName:     pkg.Name,
		Amount:        pkg.Amount,
		Currency:      DefaultCurrency,
		PaymentStatus: models.PaymentStatusCompletedTest,
		Status:        models.SessionStatusTestSuccess,
		Metadata:      md,
		TestMode:      true,
		Notes:         testCheckoutNote,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		s.metrics.CheckoutSession(pkg.ID, "store_error")
		return nil, fmt.Errorf("store test transaction %s: %w", sessionID, err)
	}

	log.Infow("[Payment] free test order recorded", "session_id", sessionID)
	s.metrics.CheckoutSession(pkg.ID, "test")

	return &CheckoutResult{
		URL:       strings.ReplaceAll(successURL, "{CHECKOUT_SESSION_ID}", sessionID),
		SessionID: sessionID,
		Package:   pkg,
		Currency:  DefaultCurrency,
		Status:    models.SessionStatusTestSuccess,
		Message:   TestOrderMessage,
		IsTest:    true,
	}, nil
}

func normalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// mergeMetadata copies caller values first, then lets derived fields win.
func mergeMetadata(caller map[string]interface{}, pkg Package, now time.Time) map[string]string {
	md := make(map[string]string, len(caller)+5)
	for k, v := range caller {
		key := strings.TrimSpace(k)
		if key == "" || isReserved(key) {
			continue
		}
		str, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		md[key] = str
	}
	md["package_id"] = pkg.ID
	md["pizza_name"] = pkg.Name
	md["source"] = MetadataSource
	md["created_at"] = now.UTC().Format(time.RFC3339)
	md["is_test_free"] = cast.ToString(pkg.IsFreeTest())
	return md
}

func isReserved(key string) bool {
	for _, r := range reservedMetadata {
		if strings.EqualFold(r, key) {
			return true
		}
	}
	return false
}
