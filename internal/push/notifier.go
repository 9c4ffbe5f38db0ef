package push

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/pairwish/internal/model"
)

// ErrNoSubscriptions is returned when the target user has no registered device.
var ErrNoSubscriptions = errors.New("no push subscriptions")

// SubscriptionStore is the part of the push store the notifier needs.
type SubscriptionStore interface {
	ListByUser(userID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
	IsPreferenceEnabled(userID int64, notifType string) (bool, error)
}

// Notifier fans a payload out to every device of a user, honoring their
// notification preferences and pruning expired subscriptions.
type Notifier struct {
	sender  Sender
	subs    SubscriptionStore
	logger  *slog.Logger
	results *prometheus.CounterVec
	wg      sync.WaitGroup
}

// NewNotifier creates a Notifier. results may be nil; when set it is
// incremented with a "result" label of sent, expired or failed.
func NewNotifier(sender Sender, subs SubscriptionStore, logger *slog.Logger, results *prometheus.CounterVec) *Notifier {
	return &Notifier{
		sender:  sender,
		subs:    subs,
		logger:  logger,
		results: results,
	}
}

func (n *Notifier) count(result string) {
	if n.results != nil {
		n.results.WithLabelValues(result).Inc()
	}
}

// NotifyUser sends payload to all of userID's subscriptions and returns how
// many deliveries succeeded. A disabled preference sends nothing. When no
// delivery succeeds and at least one failed, the error is ErrDeliveryFailed.
func (n *Notifier) NotifyUser(userID int64, notifType string, payload Payload) (int, error) {
	enabled, err := n.subs.IsPreferenceEnabled(userID, notifType)
	if err != nil {
		return 0, fmt.Errorf("check preference: %w", err)
	}

	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, ErrNoSubscriptions
	}
	if !enabled {
		return 0, nil
	}

	sent, failed := 0, 0
	for i := range subs {
		sub := &subs[i]
		err := n.sender.Send(sub, payload)
		switch {
		case err == nil:
			sent++
			n.count("sent")
		case errors.Is(err, ErrExpired):
			n.count("expired")
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "error", err, "subscription_id", sub.ID)
			}
		default:
			failed++
			n.count("failed")
			n.logger.Warn("push send failed", "error", err, "user_id", userID, "subscription_id", sub.ID)
		}
	}
	if sent == 0 && failed > 0 {
		return 0, fmt.Errorf("%w: %d of %d subscriptions", ErrDeliveryFailed, failed, len(subs))
	}
	return sent, nil
}

// NotifyAsync runs NotifyUser in the background. A user without devices
// is not an error here.
func (n *Notifier) NotifyAsync(userID int64, notifType string, payload Payload) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if _, err := n.NotifyUser(userID, notifType, payload); err != nil && !errors.Is(err, ErrNoSubscriptions) {
			n.logger.Error("background notification", "error", err, "user_id", userID, "type", notifType)
		}
	}()
}

// Wait blocks until every NotifyAsync call has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
