package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/pairwish/internal/auth"
	"github.com/dukerupert/pairwish/internal/model"
	"github.com/dukerupert/pairwish/internal/push"
	"github.com/dukerupert/pairwish/internal/store"
	"github.com/dukerupert/pairwish/internal/websocket"
	"github.com/dukerupert/pairwish/internal/wishlist"
)

const dateLayout = "2006-01-02"

type OccasionHandler struct {
	occasionStore *store.OccasionStore
	partnerStore  *store.PartnerStore
	hub           *websocket.Hub
	notifier      *push.Notifier
	logger        *slog.Logger
}

func NewOccasionHandler(occ *store.OccasionStore, ps *store.PartnerStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *OccasionHandler {
	return &OccasionHandler{occasionStore: occ, partnerStore: ps, hub: hub, notifier: notifier, logger: logger}
}

func (h *OccasionHandler) changed(id string, userIDs ...int64) {
	if h.hub != nil {
		h.hub.Notify(websocket.Changed("occasion", id), userIDs...)
	}
}

// List handles GET /api/occasions
func (h *OccasionHandler) List(w http.ResponseWriter, r *http.Request) {
	occasions, err := h.occasionStore.ListByParticipant(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, wishlist.Unavailable(err))
		return
	}
	if occasions == nil {
		occasions = []model.Occasion{}
	}
	writeJSON(w, http.StatusOK, occasions)
}

type occasionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (r *occasionRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Date = strings.TrimSpace(r.Date)
}

// Create handles POST /api/occasions. Both partners become participants.
func (h *OccasionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req occasionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be a date formatted "+dateLayout)
		return
	}

	partnerID, err := h.partnerStore.PartnerID(ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := wishlist.CheckCreateOccasion(partnerID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	occ, err := h.occasionStore.Create(req.Name, date, ac.UserID, []int64{ac.UserID, partnerID})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.changed(occ.ID, ac.UserID, partnerID)
	if h.notifier != nil {
		h.notifier.NotifyAsync(partnerID, model.NotifTypeOccasionCreated, push.Payload{
			Title: ac.UserName + " added an occasion",
			Body:  occ.Name + " on " + occ.Date.Format("Jan 2, 2006"),
			URL:   "/occasions",
			Tag:   "occasion-" + occ.ID,
		})
	}

	writeJSON(w, http.StatusCreated, occ)
}

// Delete handles DELETE /api/occasions/{id}. Items pointing at the
// occasion keep existing with the reference cleared.
func (h *OccasionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	occ, err := h.occasionStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := wishlist.CheckDeleteOccasion(occ, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.occasionStore.Delete(id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.changed(id, occ.ParticipantIDs...)
	w.WriteHeader(http.StatusNoContent)
}
