package handler

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/pairwish/internal/model"
	"github.com/dukerupert/pairwish/internal/push"
)

func newPushHandler(t *testing.T, e *testEnv) *PushHandler {
	t.Helper()
	pub, priv, err := push.GenerateVAPIDKeys()
	require.NoError(t, err)
	return NewPushHandler(e.pushes, push.NewService(pub, priv, "mailto:ops@example.com"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// browserKeys returns real client keys so payloads can be encrypted.
func browserKeys(t *testing.T) model.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return model.PushSubscription{
		P256dhKey: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		AuthKey:   base64.RawURLEncoding.EncodeToString(secret),
	}
}

func TestPushSubscribeListUnsubscribe(t *testing.T) {
	e := newTestEnv(t)
	h := newPushHandler(t, e)
	alice, bob := e.couple(t)

	rec := call(h.Subscribe, alice, "POST", "/api/push/subscribe",
		`{"endpoint":"https://push.example.com/a","p256dh":"key","auth":"secret","device_name":"phone"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decodeBody[model.PushSubscription](t, rec)
	assert.Equal(t, alice.ID, sub.UserID)

	rec = call(h.Subscribe, alice, "POST", "/api/push/subscribe", `{"endpoint":"https://push.example.com/b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.ListSubscriptions, bob, "GET", "/api/push/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = call(h.ListSubscriptions, alice, "GET", "/api/push/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]model.PushSubscription](t, rec), 1)

	id := strconv.FormatInt(sub.ID, 10)
	rec = call(h.Unsubscribe, bob, "DELETE", "/", "", "id", id)
	assert.Equal(t, http.StatusNotFound, rec.Code, "other users cannot remove it")

	rec = call(h.Unsubscribe, alice, "DELETE", "/", "", "id", "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.Unsubscribe, alice, "DELETE", "/", "", "id", id)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPushPreferences(t *testing.T) {
	e := newTestEnv(t)
	h := newPushHandler(t, e)
	carol := e.user(t, "carol@example.com", "Carol")

	rec := call(h.GetPreferences, carol, "GET", "/api/push/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	prefs := decodeBody[[]model.NotificationPreference](t, rec)
	require.Len(t, prefs, len(model.NotificationTypes))
	for _, p := range prefs {
		assert.True(t, p.Enabled, p.NotificationType)
	}

	rec = call(h.UpdatePreferences, carol, "PUT", "/api/push/preferences",
		`{"preferences":[{"type":"item_added","enabled":false}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	enabled, err := e.pushes.IsPreferenceEnabled(carol.ID, model.NotifTypeItemAdded)
	require.NoError(t, err)
	assert.False(t, enabled)

	rec = call(h.UpdatePreferences, carol, "PUT", "/api/push/preferences",
		`{"preferences":[{"type":"chore_due","enabled":false}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushVAPIDKey(t *testing.T) {
	e := newTestEnv(t)
	h := newPushHandler(t, e)

	rec := call(h.GetVAPIDKey, nil, "GET", "/api/push/vapid-key", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, h.service.VAPIDPublicKey(), decodeBody[map[string]string](t, rec)["public_key"])
}

func TestPushTestPrunesGoneSubscriptions(t *testing.T) {
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	e := newTestEnv(t)
	h := newPushHandler(t, e)
	h.service.WithHTTPClient(gone.Client())
	carol := e.user(t, "carol@example.com", "Carol")

	sub := browserKeys(t)
	_, err := e.pushes.CreateSubscription(carol.ID, gone.URL+"/sub", sub.P256dhKey, sub.AuthKey, "")
	require.NoError(t, err)

	rec := call(h.TestNotification, carol, "POST", "/api/push/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sent":0}`, rec.Body.String())

	subs, err := e.pushes.ListByUser(carol.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
