package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/pairwish/internal/auth"
	"github.com/dukerupert/pairwish/internal/metrics"
	"github.com/dukerupert/pairwish/internal/model"
	"github.com/dukerupert/pairwish/internal/push"
	"github.com/dukerupert/pairwish/internal/store"
	"github.com/dukerupert/pairwish/internal/websocket"
	"github.com/dukerupert/pairwish/internal/wishlist"
)

// ImageRemover deletes a hosted image by its public URL.
type ImageRemover interface {
	Delete(ctx context.Context, url string) error
}

type WishlistHandler struct {
	itemStore     *store.ItemStore
	partnerStore  *store.PartnerStore
	occasionStore *store.OccasionStore
	hub           *websocket.Hub
	notifier      *push.Notifier
	images        ImageRemover
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewWishlistHandler(
	is *store.ItemStore,
	ps *store.PartnerStore,
	occ *store.OccasionStore,
	hub *websocket.Hub,
	notifier *push.Notifier,
	images ImageRemover,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WishlistHandler {
	return &WishlistHandler{
		itemStore:     is,
		partnerStore:  ps,
		occasionStore: occ,
		hub:           hub,
		notifier:      notifier,
		images:        images,
		metrics:       m,
		logger:        logger,
	}
}

// changed tells both partners that an item moved. The message never says
// how, so the author learns nothing about reservations.
func (h *WishlistHandler) changed(id string, userIDs ...int64) {
	if h.hub != nil {
		h.hub.Notify(websocket.Changed("item", id), userIDs...)
	}
}

func (h *WishlistHandler) record(op string, err error) {
	if h.metrics != nil {
		h.metrics.RecordMutation(op, outcome(err))
	}
}

// fail records a failed mutation and writes the error.
func (h *WishlistHandler) fail(w http.ResponseWriter, op string, err error) {
	h.record(op, err)
	writeError(w, h.logger, err)
}

func concealAll(items []model.WishlistItem, viewerID int64) []model.WishlistItem {
	out := make([]model.WishlistItem, len(items))
	for i, item := range items {
		out[i] = wishlist.Conceal(item, viewerID)
	}
	return out
}

// View handles GET /api/wishlist
func (h *WishlistHandler) View(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	req, err := wishlist.ParseRequest(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	mine, err := h.itemStore.ListByAuthor(userID)
	if err != nil {
		writeError(w, h.logger, wishlist.Unavailable(err))
		return
	}

	partnerID, err := h.partnerStore.PartnerID(userID)
	if err != nil {
		writeError(w, h.logger, wishlist.Unavailable(err))
		return
	}

	var theirs []model.WishlistItem
	if partnerID != 0 {
		theirs, err = h.itemStore.ListByAuthor(partnerID)
		if err != nil {
			writeError(w, h.logger, wishlist.Unavailable(err))
			return
		}
	}

	res := wishlist.Derive(userID, mine, theirs, req)
	res.Items = concealAll(res.Items, userID)
	for i := range res.Sections {
		res.Sections[i].Items = concealAll(res.Sections[i].Items, userID)
	}

	writeJSON(w, http.StatusOK, res)
}

type itemRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Price      decimal.Decimal `json:"price"`
	Link       string          `json:"link" validate:"omitempty,http_url,max=2048"`
	Notes      string          `json:"notes" validate:"max=2000"`
	Priority   model.Priority  `json:"priority" validate:"omitempty,oneof=P1 P2 P3"`
	ImageURL   string          `json:"image_url" validate:"omitempty,http_url,max=2048"`
	OccasionID string          `json:"occasion_id"`
}

func (r *itemRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Link = strings.TrimSpace(r.Link)
	r.Notes = strings.TrimSpace(r.Notes)
	r.Priority = model.Priority(strings.ToUpper(strings.TrimSpace(string(r.Priority))))
	r.OccasionID = strings.TrimSpace(r.OccasionID)
}

func (r *itemRequest) fields() model.ItemFields {
	return model.ItemFields{
		Name:       r.Name,
		Price:      r.Price,
		Link:       r.Link,
		Notes:      r.Notes,
		Priority:   r.Priority,
		ImageURL:   r.ImageURL,
		OccasionID: r.OccasionID,
	}
}

// decodeItem reads and checks an item body, including the occasion
// reference for authorID.
func (h *WishlistHandler) decodeItem(r *http.Request, authorID int64) (model.ItemFields, error) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		return model.ItemFields{}, err
	}
	if req.Price.IsNegative() {
		return model.ItemFields{}, badRequest("price must not be negative")
	}

	if req.OccasionID != "" {
		occ, err := h.occasionStore.GetByID(req.OccasionID)
		if err != nil {
			return model.ItemFields{}, err
		}
		if err := wishlist.CheckOccasionRef(req.OccasionID, occ, authorID); err != nil {
			return model.ItemFields{}, err
		}
	}
	return req.fields(), nil
}

// itemPatch is an update body. Omitted fields keep their stored value and
// an empty string clears an optional one.
type itemPatch struct {
	Name       *string          `json:"name" validate:"omitempty,max=200"`
	Price      *decimal.Decimal `json:"price"`
	Link       *string          `json:"link" validate:"omitempty,http_url,max=2048"`
	Notes      *string          `json:"notes" validate:"omitempty,max=2000"`
	Priority   *model.Priority  `json:"priority" validate:"omitempty,oneof=P1 P2 P3"`
	ImageURL   *string          `json:"image_url" validate:"omitempty,http_url,max=2048"`
	OccasionID *string          `json:"occasion_id"`
}

func trimmed(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func (p *itemPatch) normalize() {
	trimmed(p.Name)
	trimmed(p.Link)
	trimmed(p.Notes)
	trimmed(p.ImageURL)
	trimmed(p.OccasionID)
	if p.Priority != nil {
		*p.Priority = model.Priority(strings.ToUpper(strings.TrimSpace(string(*p.Priority))))
	}
}

func (p *itemPatch) apply(f model.ItemFields) model.ItemFields {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Price != nil {
		f.Price = *p.Price
	}
	if p.Link != nil {
		f.Link = *p.Link
	}
	if p.Notes != nil {
		f.Notes = *p.Notes
	}
	if p.Priority != nil {
		f.Priority = *p.Priority
	}
	if p.ImageURL != nil {
		f.ImageURL = *p.ImageURL
	}
	if p.OccasionID != nil {
		f.OccasionID = *p.OccasionID
	}
	return f
}

// decodePatch reads an update body and merges it over existing.
func (h *WishlistHandler) decodePatch(r *http.Request, existing *model.WishlistItem) (model.ItemFields, error) {
	var patch itemPatch
	if err := decode(r, &patch); err != nil {
		return model.ItemFields{}, err
	}
	if patch.Name != nil && *patch.Name == "" {
		return model.ItemFields{}, badRequest("name must not be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return model.ItemFields{}, badRequest("price must not be negative")
	}

	if patch.OccasionID != nil && *patch.OccasionID != "" {
		occ, err := h.occasionStore.GetByID(*patch.OccasionID)
		if err != nil {
			return model.ItemFields{}, err
		}
		if err := wishlist.CheckOccasionRef(*patch.OccasionID, occ, existing.AuthorID); err != nil {
			return model.ItemFields{}, err
		}
	}
	return patch.apply(existing.Fields()), nil
}

// CreateItem handles POST /api/items
func (h *WishlistHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	fields, err := h.decodeItem(r, ac.UserID)
	if err != nil {
		h.fail(w, "create", err)
		return
	}

	partnerID, err := h.partnerStore.PartnerID(ac.UserID)
	if err != nil {
		h.fail(w, "create", err)
		return
	}

	item, err := h.itemStore.Create(wishlist.NewItem(ac.UserID, fields))
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	h.record("create", nil)
	h.changed(item.ID, ac.UserID, partnerID)

	if h.notifier != nil && partnerID != 0 {
		h.notifier.NotifyAsync(partnerID, model.NotifTypeItemAdded, push.Payload{
			Title: ac.UserName + " added a wish",
			Body:  item.Name,
			URL:   "/?view=theirs",
			Tag:   "item-" + item.ID,
		})
	}

	writeJSON(w, http.StatusCreated, wishlist.Conceal(*item, ac.UserID))
}

// UpdateItem handles PUT /api/items/{id}. The body is merged over the
// stored fields.
func (h *WishlistHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	existing, err := h.itemStore.GetByID(id)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	if err := wishlist.CheckAuthor(existing, userID); err != nil {
		h.fail(w, "update", err)
		return
	}

	fields, err := h.decodePatch(r, existing)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	if fields.Priority == "" {
		fields.Priority = model.PriorityP2
	}

	item, err := h.itemStore.Update(id, fields)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	if item == nil {
		h.fail(w, "update", wishlist.ErrNotFound)
		return
	}
	h.record("update", nil)

	if existing.ImageURL != "" && existing.ImageURL != item.ImageURL {
		h.removeImage(r.Context(), existing.ImageURL)
	}

	h.changed(item.ID, h.audience(userID)...)
	writeJSON(w, http.StatusOK, wishlist.Conceal(*item, userID))
}

// DeleteItem handles DELETE /api/items/{id}
func (h *WishlistHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	item, err := h.itemStore.GetByID(id)
	if err != nil {
		h.fail(w, "delete", err)
		return
	}
	if err := wishlist.CheckAuthor(item, userID); err != nil {
		h.fail(w, "delete", err)
		return
	}

	if err := h.itemStore.Delete(id); err != nil {
		h.fail(w, "delete", err)
		return
	}
	h.record("delete", nil)

	if item.ImageURL != "" {
		h.removeImage(r.Context(), item.ImageURL)
	}

	h.changed(id, h.audience(userID)...)
	w.WriteHeader(http.StatusNoContent)
}

func (h *WishlistHandler) removeImage(ctx context.Context, url string) {
	if h.images == nil {
		return
	}
	if err := h.images.Delete(ctx, url); err != nil {
		h.logger.Warn("delete item image", "error", err, "url", url)
	}
}

// audience is the user plus their partner. A failed partner lookup only
// narrows who hears about the change.
func (h *WishlistHandler) audience(userID int64) []int64 {
	partnerID, err := h.partnerStore.PartnerID(userID)
	if err != nil {
		h.logger.Warn("partner lookup for notify", "error", err, "user_id", userID)
	}
	return []int64{userID, partnerID}
}

// Reserve handles POST /api/items/{id}/reservation
func (h *WishlistHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	item, err := h.itemStore.GetByID(id)
	if err != nil {
		h.fail(w, "reserve", err)
		return
	}
	partnerID, err := h.partnerStore.PartnerID(ac.UserID)
	if err != nil {
		h.fail(w, "reserve", err)
		return
	}
	if err := wishlist.CheckReserve(item, ac.UserID, partnerID); err != nil {
		h.fail(w, "reserve", err)
		return
	}

	// The store write is conditional, so a concurrent reservation that
	// slipped past the check above still fails here.
	item, err = h.itemStore.Reserve(id, ac.UserID, ac.UserName)
	if err != nil {
		h.fail(w, "reserve", err)
		return
	}
	if item == nil {
		h.fail(w, "reserve", wishlist.ErrNotFound)
		return
	}
	h.record("reserve", nil)

	h.changed(id, ac.UserID, partnerID)
	writeJSON(w, http.StatusOK, item)
}

// Unreserve handles DELETE /api/items/{id}/reservation
func (h *WishlistHandler) Unreserve(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	item, err := h.itemStore.GetByID(id)
	if err != nil {
		h.fail(w, "unreserve", err)
		return
	}
	if err := wishlist.CheckUnreserve(item, userID); err != nil {
		h.fail(w, "unreserve", err)
		return
	}

	item, err = h.itemStore.Unreserve(id, userID)
	if err != nil {
		h.fail(w, "unreserve", err)
		return
	}
	if item == nil {
		h.fail(w, "unreserve", wishlist.ErrNotFound)
		return
	}
	h.record("unreserve", nil)

	h.changed(id, userID, item.AuthorID)
	writeJSON(w, http.StatusOK, item)
}

// Purchase handles POST /api/items/{id}/purchase
func (h *WishlistHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	h.setPurchased(w, r, true)
}

// Unpurchase handles DELETE /api/items/{id}/purchase
func (h *WishlistHandler) Unpurchase(w http.ResponseWriter, r *http.Request) {
	h.setPurchased(w, r, false)
}

func (h *WishlistHandler) setPurchased(w http.ResponseWriter, r *http.Request, purchased bool) {
	op := "purchase"
	if !purchased {
		op = "unpurchase"
	}
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	item, err := h.itemStore.GetByID(id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	if err := wishlist.CheckPurchase(item, userID); err != nil {
		h.fail(w, op, err)
		return
	}

	item, err = h.itemStore.SetPurchased(id, purchased)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	if item == nil {
		h.fail(w, op, wishlist.ErrNotFound)
		return
	}
	h.record(op, nil)

	h.changed(id, h.audience(userID)...)
	writeJSON(w, http.StatusOK, wishlist.Conceal(*item, userID))
}
