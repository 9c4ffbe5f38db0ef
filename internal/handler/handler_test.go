package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/pairwish/internal/auth"
	"github.com/dukerupert/pairwish/internal/database"
	"github.com/dukerupert/pairwish/internal/metrics"
	"github.com/dukerupert/pairwish/internal/model"
	"github.com/dukerupert/pairwish/internal/push"
	"github.com/dukerupert/pairwish/internal/store"
	"github.com/dukerupert/pairwish/internal/websocket"
)

// recordingSender captures push deliveries instead of sending them.
type recordingSender struct {
	mu   sync.Mutex
	sent []push.Payload
}

func (s *recordingSender) Send(_ *model.PushSubscription, payload push.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, payload)
	return nil
}

func (s *recordingSender) payloads() []push.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]push.Payload(nil), s.sent...)
}

type testEnv struct {
	db        *sql.DB
	users     *store.UserStore
	sessions  *store.SessionStore
	partners  *store.PartnerStore
	invites   *store.InviteStore
	items     *store.ItemStore
	occasions *store.OccasionStore
	pushes    *store.PushStore
	hub       *websocket.Hub
	metrics   *metrics.Metrics
	sender    *recordingSender
	notifier  *push.Notifier

	auth     *AuthHandler
	partner  *PartnerHandler
	wishlist *WishlistHandler
	occasion *OccasionHandler
	notify   *NotifyHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &testEnv{
		db:        db,
		users:     store.NewUserStore(db),
		sessions:  store.NewSessionStore(db),
		partners:  store.NewPartnerStore(db),
		invites:   store.NewInviteStore(db),
		items:     store.NewItemStore(db),
		occasions: store.NewOccasionStore(db),
		pushes:    store.NewPushStore(db),
		hub:       websocket.NewHub(logger),
		metrics:   metrics.New(),
		sender:    &recordingSender{},
	}
	e.notifier = push.NewNotifier(e.sender, e.pushes, logger, e.metrics.PushResults)
	t.Cleanup(e.notifier.Wait)

	e.auth = NewAuthHandler(e.users, e.sessions, e.partners, false, logger)
	e.auth.cost = bcrypt.MinCost
	e.partner = NewPartnerHandler(e.users, e.partners, e.invites, e.items, nil, e.hub, logger)
	e.wishlist = NewWishlistHandler(e.items, e.partners, e.occasions, e.hub, e.notifier, nil, e.metrics, logger)
	e.occasion = NewOccasionHandler(e.occasions, e.partners, e.hub, e.notifier, logger)
	e.notify = NewNotifyHandler(e.partners, e.notifier, logger)
	return e
}

func (e *testEnv) user(t *testing.T, email, name string) *model.User {
	t.Helper()
	u, err := e.users.Create(email, name, "hash")
	require.NoError(t, err)
	return u
}

// couple returns two linked users.
func (e *testEnv) couple(t *testing.T) (*model.User, *model.User) {
	t.Helper()
	alice := e.user(t, "alice@example.com", "Alice")
	bob := e.user(t, "bob@example.com", "Bob")
	require.NoError(t, e.partners.Link(alice.ID, bob.ID))
	return alice, bob
}

func (e *testEnv) item(t *testing.T, author *model.User, name string, price int64) *model.WishlistItem {
	t.Helper()
	it, err := e.items.Create(model.WishlistItem{
		AuthorID: author.ID,
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Priority: model.PriorityP2,
	})
	require.NoError(t, err)
	return it
}

// call runs h as user with an optional JSON body. pathValues are name,
// value pairs set on the request.
func call(h http.HandlerFunc, user *model.User, method, target, body string, pathValues ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if user != nil {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{
			UserID:   user.ID,
			UserName: user.Name,
		}))
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

// receive waits for one hub message on ch.
func receive(t *testing.T, ch <-chan []byte) websocket.Message {
	t.Helper()
	select {
	case data := <-ch:
		var msg websocket.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub message")
		return websocket.Message{}
	}
}

func newAuthedRequest(method, target string, ac auth.AuthContext) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.WithAuth(req.Context(), ac))
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}
