package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"go.uber.org/goleak"

	"github.com/dukerupert/pairwish/internal/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return NewClient(hub, nil, userID)
}

func receive(t *testing.T, ch <-chan []byte) Message {
	t.Helper()
	select {
	case data := <-ch:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	c3 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount(); got != 3 {
		t.Fatalf("expected 3 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients after unregister, got %d", got)
	}

	hub.Unregister(c2)
	hub.Unregister(c3)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestNotifyTargetsUsers(t *testing.T) {
	hub := NewHub(slog.Default())

	alice, cancelAlice := hub.Subscribe(1)
	defer cancelAlice()
	bob, cancelBob := hub.Subscribe(2)
	defer cancelBob()
	carol, cancelCarol := hub.Subscribe(3)
	defer cancelCarol()

	hub.Notify(Changed("item", "abc"), 1, 2)

	for _, ch := range []<-chan []byte{alice, bob} {
		got := receive(t, ch)
		if got.Type != "item_changed" {
			t.Errorf("type = %q, want item_changed", got.Type)
		}
		if got.ID != "abc" {
			t.Errorf("id = %q, want abc", got.ID)
		}
	}

	select {
	case <-carol:
		t.Error("unrelated user received a notification")
	default:
	}
}

func TestNotifyDeduplicatesUsers(t *testing.T) {
	hub := NewHub(slog.Default())
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Notify(Changed("occasion", "x"), 1, 1, 0)

	receive(t, ch)
	select {
	case <-ch:
		t.Error("duplicate user id delivered twice")
	default:
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	hub := NewHub(slog.Default())
	ch, cancel := hub.Subscribe(7)

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}
	if hub.ClientCount() != 0 {
		t.Error("expected no clients after cancel")
	}
}

func TestNotifyEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Notify(Changed("item", "1"), 1, 2)
}

func TestNotifyFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Notify(Changed("item", "fill"), 1)
	}

	// This should drop the message, not panic or block
	hub.Notify(Changed("item", "dropped"), 1)

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestChanged(t *testing.T) {
	msg := Changed("occasion", "o-1")
	if msg.Type != "occasion_changed" {
		t.Errorf("expected type occasion_changed, got %s", msg.Type)
	}
	if msg.Entity != "occasion" {
		t.Errorf("expected entity occasion, got %s", msg.Entity)
	}
	if msg.ID != "o-1" {
		t.Errorf("expected id o-1, got %s", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			ch, cancel := hub.Subscribe(uid)
			hub.Notify(Changed("item", "concurrent"), uid, uid+1)
			for {
				select {
				case <-ch:
				default:
					cancel()
					return
				}
			}
		}(int64(i % 4))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func withUser(userID int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != 0 {
			r = r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID}))
		}
		next.ServeHTTP(w, r)
	})
}

func TestHandleWebSocketDelivers(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(withUser(5, HandleWebSocket(hub, slog.Default(), nil)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.Notify(Changed("item", "it-1"), 5)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "item_changed" || got.ID != "it-1" {
		t.Errorf("got %+v", got)
	}

	conn.Close(ws.StatusNormalClosure, "")

	deadline = time.Now().Add(time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Error("client not unregistered after close")
	}
}

func TestHandleWebSocketRequiresAuth(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleWebSocket(hub, slog.Default(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
