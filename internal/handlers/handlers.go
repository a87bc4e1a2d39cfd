package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/daruratku/lostfound/internal/models"
	"github.com/daruratku/lostfound/internal/policy"
	"github.com/daruratku/lostfound/internal/session"
	"github.com/daruratku/lostfound/internal/storage"
	"github.com/daruratku/lostfound/internal/view"
)

// ItemStore is the report persistence surface the handlers use.
type ItemStore interface {
	Create(ctx context.Context, item *models.LostItem) error
	Get(ctx context.Context, id string) (*models.LostItem, error)
	List(ctx context.Context, filter models.ItemFilter) ([]*models.LostItem, error)
	ListByOwner(ctx context.Context, ownerID, status string) ([]*models.LostItem, error)
	UpdateStatus(ctx context.Context, id, ownerID, newStatus string) error
	Delete(ctx context.Context, id, ownerID string) (string, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// ImageStore stores report photos.
type ImageStore interface {
	Upload(ctx context.Context, reader io.Reader, filename, contentType string, size int64) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

// EventPublisher publishes lifecycle events. Publish failures are logged,
// never surfaced: the mutation already happened.
type EventPublisher interface {
	PublishItemReported(ctx context.Context, event models.ItemReportedEvent) error
	PublishItemStatusChanged(ctx context.Context, event models.ItemStatusChangedEvent) error
	PublishItemDeleted(ctx context.Context, event models.ItemDeletedEvent) error
}

// Handler contains all HTTP handlers.
type Handler struct {
	items  ItemStore
	images ImageStore
	events EventPublisher
}

// NewHandler creates a new handler instance.
func NewHandler(items ItemStore, images ImageStore, events EventPublisher) *Handler {
	return &Handler{
		items:  items,
		images: images,
		events: events,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps storage sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, storage.ErrNotOwner):
		writeError(w, http.StatusForbidden, "Item belongs to another user")
	case errors.Is(err, storage.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Status transition not permitted")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// itemPayload is a report decorated with view-derived fields: the permitted
// actions for the caller, contact deep links and the formatted reward line.
type itemPayload struct {
	*models.LostItem
	Actions       []policy.Action   `json:"actions"`
	Links         map[string]string `json:"links"`
	RewardDisplay string            `json:"reward_display,omitempty"`
	StatusLabel   string            `json:"status_label"`
}

func decorate(item *models.LostItem, sess *session.Session) itemPayload {
	isOwner := sess != nil && sess.UserID == item.UserID
	d := view.Detail{Item: *item, IsOwner: isOwner}

	payload := itemPayload{
		LostItem: item,
		Actions:  d.Actions(),
		Links: map[string]string{
			"call":     d.CallLink(),
			"whatsapp": d.MessageLink(),
		},
		StatusLabel: d.StatusLabel(),
	}
	if line, ok := d.RewardLine(); ok {
		payload.RewardDisplay = line
	}
	return payload
}

// ListCategoriesHandler returns all report categories.
func (h *Handler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.items.ListCategories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list categories")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// BrowseHandler lists reports for the public search page.
func (h *Handler) BrowseHandler(w http.ResponseWriter, r *http.Request) {
	filter := models.ItemFilter{
		Status:     strings.ToLower(r.URL.Query().Get("status")),
		CategoryID: r.URL.Query().Get("category"),
		Query:      r.URL.Query().Get("q"),
	}
	if filter.Status != "" && !policy.ValidStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "Unknown status filter")
		return
	}

	items, err := h.items.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list items")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	sess, _ := session.FromContext(r.Context())
	payloads := make([]itemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, decorate(item, sess))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": payloads})
}

// CreateHandler handles reporting a new lost item.
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10 MB max
		log.Error().Err(err).Msg("Failed to parse form")
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	req := models.CreateItemRequest{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Location:     r.FormValue("location"),
		DateLost:     r.FormValue("date_lost"),
		ContactPhone: r.FormValue("contact_phone"),
		RewardAmount: r.FormValue("reward_amount"),
		CategoryID:   r.FormValue("category_id"),
	}

	if req.Title == "" || req.Description == "" || req.Location == "" ||
		req.DateLost == "" || req.ContactPhone == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	dateLost, err := time.Parse("2006-01-02", req.DateLost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_lost format")
		return
	}

	// A malformed or negative reward is treated as no reward rather than
	// rejecting the report.
	var reward int64
	if req.RewardAmount != "" {
		if v, err := strconv.ParseInt(req.RewardAmount, 10, 64); err == nil && v > 0 {
			reward = v
		}
	}

	var imageURL string
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			writeError(w, http.StatusBadRequest, "Only image files are allowed")
			return
		}

		imageURL, err = h.images.Upload(r.Context(), file, header.Filename, contentType, header.Size)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upload image")
			writeError(w, http.StatusInternalServerError, "Failed to upload image")
			return
		}
	}

	now := time.Now()
	item := &models.LostItem{
		ID:           uuid.New().String(),
		UserID:       sess.UserID,
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		DateLost:     dateLost,
		ImageURL:     imageURL,
		ContactPhone: req.ContactPhone,
		RewardAmount: reward,
		Status:       models.StatusLost,
		Category:     models.Category{ID: req.CategoryID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.items.Create(r.Context(), item); err != nil {
		log.Error().Err(err).Msg("Failed to save item")
		writeError(w, http.StatusInternalServerError, "Failed to save item")
		return
	}

	event := models.ItemReportedEvent{
		ID:           item.ID,
		UserID:       item.UserID,
		Title:        item.Title,
		Location:     item.Location,
		CategoryName: item.Category.Name,
		Timestamp:    now,
	}
	if err := h.events.PublishItemReported(r.Context(), event); err != nil {
		log.Error().Err(err).Msg("Failed to publish item.reported")
	}

	log.Info().
		Str("item_id", item.ID).
		Str("title", item.Title).
		Msg("Lost item reported")

	writeJSON(w, http.StatusCreated, decorate(item, sess))
}

// ItemDetailHandler returns one report with the caller's permitted actions.
func (h *Handler) ItemDetailHandler(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]

	item, err := h.items.Get(r.Context(), itemID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sess, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, decorate(item, sess))
}

// UpdateStatusHandler changes a report's status for its owner.
func (h *Handler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	itemID := mux.Vars(r)["id"]

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !policy.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	item, err := h.items.Get(r.Context(), itemID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if item.UserID != sess.UserID {
		writeError(w, http.StatusForbidden, "Item belongs to another user")
		return
	}
	if !policy.CanTransition(item.Status, req.Status) {
		writeError(w, http.StatusConflict, "Status transition not permitted")
		return
	}

	if err := h.items.UpdateStatus(r.Context(), itemID, sess.UserID, req.Status); err != nil {
		writeStoreError(w, err)
		return
	}

	event := models.ItemStatusChangedEvent{
		ID:        item.ID,
		UserID:    item.UserID,
		Title:     item.Title,
		OldStatus: item.Status,
		NewStatus: req.Status,
		Timestamp: time.Now(),
	}
	if err := h.events.PublishItemStatusChanged(r.Context(), event); err != nil {
		log.Error().Err(err).Msg("Failed to publish item.status_changed")
	}

	log.Info().
		Str("item_id", itemID).
		Str("old_status", item.Status).
		Str("new_status", req.Status).
		Msg("Item status changed")

	item.Status = req.Status
	writeJSON(w, http.StatusOK, decorate(item, sess))
}

// DeleteHandler removes a report for its owner.
func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	itemID := mux.Vars(r)["id"]

	item, err := h.items.Get(r.Context(), itemID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	imageURL, err := h.items.Delete(r.Context(), itemID, sess.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if imageURL != "" {
		if err := h.images.Delete(r.Context(), imageURL); err != nil {
			log.Error().Err(err).Str("item_id", itemID).Msg("Failed to delete report image")
		}
	}

	event := models.ItemDeletedEvent{
		ID:        item.ID,
		UserID:    item.UserID,
		Title:     item.Title,
		Timestamp: time.Now(),
	}
	if err := h.events.PublishItemDeleted(r.Context(), event); err != nil {
		log.Error().Err(err).Msg("Failed to publish item.deleted")
	}

	log.Info().Str("item_id", itemID).Msg("Item deleted")

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ProfileHandler returns the current session's identity for the profile
// header.
func (h *Handler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   sess.UserID,
		"email":     sess.Email,
		"joined_at": sess.JoinedAt,
	})
}

// ProfileItemsHandler lists the current user's reports for one status tab,
// newest first.
func (h *Handler) ProfileItemsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	status := strings.ToLower(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusLost
	}
	if !policy.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "Unknown status filter")
		return
	}

	items, err := h.items.ListByOwner(r.Context(), sess.UserID, status)
	if err != nil {
		log.Error().Err(err).Str("status", status).Msg("Failed to list profile items")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	payloads := make([]itemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, decorate(item, sess))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": payloads, "status": status})
}

// HealthCheckHandler returns health status.
func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
