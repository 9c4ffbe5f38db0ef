package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pairwish/internal/auth"
	"github.com/dukerupert/pairwish/internal/model"
	"github.com/dukerupert/pairwish/internal/push"
	"github.com/dukerupert/pairwish/internal/store"
)

// NotifyHandler relays a short message to the caller's partner devices.
type NotifyHandler struct {
	partnerStore *store.PartnerStore
	notifier     *push.Notifier
	logger       *slog.Logger
}

func NewNotifyHandler(ps *store.PartnerStore, notifier *push.Notifier, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{partnerStore: ps, notifier: notifier, logger: logger}
}

type notifyRequest struct {
	Title   string `json:"title" validate:"required,max=100"`
	Message string `json:"message" validate:"required,max=500"`
}

func (r *notifyRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Message = strings.TrimSpace(r.Message)
}

// Send handles POST /api/notify
func (h *NotifyHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req notifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	partnerID, err := h.partnerStore.PartnerID(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if partnerID == 0 {
		writeMessage(w, http.StatusNotFound, "no linked partner")
		return
	}

	sent, err := h.notifier.NotifyUser(partnerID, model.NotifTypePartnerMessage, push.Payload{
		Title: req.Title,
		Body:  req.Message,
		Tag:   "partner-message",
	})
	if errors.Is(err, push.ErrNoSubscriptions) {
		writeMessage(w, http.StatusNotFound, "partner has no push subscription")
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
