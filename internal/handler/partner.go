package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/pairwish/internal/auth"
	"github.com/dukerupert/pairwish/internal/email"
	"github.com/dukerupert/pairwish/internal/store"
	"github.com/dukerupert/pairwish/internal/websocket"
	"github.com/dukerupert/pairwish/internal/wishlist"
)

type PartnerHandler struct {
	userStore    *store.UserStore
	partnerStore *store.PartnerStore
	inviteStore  *store.InviteStore
	itemStore    *store.ItemStore
	emailClient  *email.Client
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewPartnerHandler(
	us *store.UserStore,
	ps *store.PartnerStore,
	is *store.InviteStore,
	items *store.ItemStore,
	ec *email.Client,
	hub *websocket.Hub,
	logger *slog.Logger,
) *PartnerHandler {
	return &PartnerHandler{
		userStore:    us,
		partnerStore: ps,
		inviteStore:  is,
		itemStore:    items,
		emailClient:  ec,
		hub:          hub,
		logger:       logger,
	}
}

func (h *PartnerHandler) notify(userIDs ...int64) {
	if h.hub != nil {
		h.hub.Notify(websocket.Changed("partner", ""), userIDs...)
	}
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *inviteRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type inviteResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Emailed   bool      `json:"emailed"`
	// Code is only returned when it could not be mailed.
	Code string `json:"code,omitempty"`
}

// Invite handles POST /api/partner/invite
func (h *PartnerHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req inviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	partnerID, err := h.partnerStore.PartnerID(ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if partnerID != 0 {
		writeError(w, h.logger, wishlist.ErrAlreadyLinked)
		return
	}

	me, err := h.userStore.GetByID(ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if me != nil && strings.EqualFold(me.Email, req.Email) {
		writeMessage(w, http.StatusBadRequest, "cannot invite yourself")
		return
	}

	inv, err := h.inviteStore.Create(ac.UserID, req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := inviteResponse{Email: inv.Email, ExpiresAt: inv.ExpiresAt}
	if h.emailClient != nil && h.emailClient.Configured() {
		if err := h.emailClient.SendPartnerInvite(r.Context(), inv.Email, ac.UserName, inv.Code); err != nil {
			writeError(w, h.logger, wishlist.Unavailable(err))
			return
		}
		resp.Emailed = true
	} else {
		resp.Code = inv.Code
	}

	writeJSON(w, http.StatusCreated, resp)
}

type acceptRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (r *acceptRequest) normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

// Accept handles POST /api/partner/accept
func (h *PartnerHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req acceptRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	me, err := h.userStore.GetByID(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	inv, err := h.inviteStore.GetValid(req.Code, me.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if inv == nil || inv.InviterID == userID {
		writeMessage(w, http.StatusNotFound, "invalid or expired code")
		return
	}

	if err := h.partnerStore.Link(inv.InviterID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.inviteStore.MarkUsed(inv.ID); err != nil {
		h.logger.Error("mark invite used", "error", err, "invite_id", inv.ID)
	}

	partner, err := h.partnerStore.Get(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notify(inv.InviterID, userID)
	h.logger.Info("partners linked", "user_id", userID, "partner_id", inv.InviterID)
	writeJSON(w, http.StatusOK, partner)
}

// Unlink handles DELETE /api/partner. Reservations either partner held on
// the other's open items are released.
func (h *PartnerHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	former, err := h.partnerStore.Unlink(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if former == 0 {
		writeError(w, h.logger, wishlist.ErrNoPartner)
		return
	}

	if err := h.itemStore.ClearReservationsBetween(userID, former); err != nil {
		h.logger.Error("clear reservations", "error", err, "user_id", userID, "partner_id", former)
	}

	h.notify(userID, former)
	w.WriteHeader(http.StatusNoContent)
}
