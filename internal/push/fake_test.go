package push

import (
	"fmt"
	"sync"
	"time"

	"github.com/dukerupert/pairwish/internal/model"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    map[string][]Payload
	expired map[string]bool
	broken  map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent:    make(map[string][]Payload),
		expired: make(map[string]bool),
		broken:  make(map[string]bool),
	}
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired[sub.Endpoint] {
		return ErrExpired
	}
	if f.broken[sub.Endpoint] {
		return fmt.Errorf("push service returned 500")
	}
	f.sent[sub.Endpoint] = append(f.sent[sub.Endpoint], payload)
	return nil
}

func (f *fakeSender) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[endpoint])
}

type sentKey struct {
	userID   int64
	typ, ref string
	lead     int
}

type fakeStore struct {
	mu        sync.Mutex
	subs      map[int64][]model.PushSubscription
	disabled  map[string]bool
	sent      map[sentKey]bool
	occasions []model.Occasion
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subs:     make(map[int64][]model.PushSubscription),
		disabled: make(map[string]bool),
		sent:     make(map[sentKey]bool),
	}
}

func (f *fakeStore) addSub(userID int64, endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[userID] = append(f.subs[userID], model.PushSubscription{UserID: userID, Endpoint: endpoint})
}

func (f *fakeStore) ListByUser(userID int64) ([]model.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PushSubscription(nil), f.subs[userID]...), nil
}

func (f *fakeStore) DeleteByEndpoint(endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uid, subs := range f.subs {
		kept := subs[:0]
		for _, s := range subs {
			if s.Endpoint != endpoint {
				kept = append(kept, s)
			}
		}
		f.subs[uid] = kept
	}
	return nil
}

func (f *fakeStore) IsPreferenceEnabled(userID int64, notifType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disabled[fmt.Sprintf("%d/%s", userID, notifType)], nil
}

func (f *fakeStore) disable(userID int64, notifType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled[fmt.Sprintf("%d/%s", userID, notifType)] = true
}

func (f *fakeStore) WasSent(userID int64, notifType, refID string, leadDays int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[sentKey{userID, notifType, refID, leadDays}], nil
}

func (f *fakeStore) RecordSent(userID int64, notifType, refID string, leadDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[sentKey{userID, notifType, refID, leadDays}] = true
	return nil
}

func (f *fakeStore) CleanupSent(before time.Time) error { return nil }

func (f *fakeStore) ListBetween(from, to time.Time) ([]model.Occasion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Occasion
	for _, o := range f.occasions {
		if !o.Date.Before(from) && o.Date.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}
