package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeProvider scripts provider answers. GetSession walks through statuses
// and then keeps returning the last one.
type fakeProvider struct {
	mu        sync.Mutex
	created   []SessionRequest
	createErr error
	getErr    error
	statuses  []Session
	gets      int
	events    map[string]*WebhookEvent
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(map[string]*WebhookEvent)}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	id := fmt.Sprintf("cs_fake_%d", len(f.created))
	return &Session{
		ID:            id,
		URL:           "https://checkout.example/" + id,
		Status:        "open",
		PaymentStatus: "pending",
		AmountTotal:   req.AmountMinor,
		Currency:      req.Currency,
		Metadata:      req.Metadata,
	}, nil
}

func (f *fakeProvider) GetSession(_ context.Context, sessionID string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if len(f.statuses) == 0 {
		return nil, errors.New("no scripted status")
	}
	i := f.gets
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.gets++
	s := f.statuses[i]
	s.ID = sessionID
	return &s, nil
}

func (f *fakeProvider) ParseWebhook(_ []byte, signature string) (*WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[signature]
	if !ok {
		return nil, ErrInvalidSignature
	}
	return ev, nil
}

func (f *fakeProvider) script(statuses ...Session) {
	f.mu.Lock()
	f.statuses = statuses
	f.gets = 0
	f.mu.Unlock()
}

func (f *fakeProvider) lastRequest() SessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}
