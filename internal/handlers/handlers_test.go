package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/daruratku/lostfound/internal/models"
	"github.com/daruratku/lostfound/internal/policy"
	"github.com/daruratku/lostfound/internal/session"
	"github.com/daruratku/lostfound/internal/storage"
)

const testSecret = "test-secret"

// fakeStore is an in-memory ItemStore with the same guard semantics as the
// Postgres implementation.
type fakeStore struct {
	items map[string]*models.LostItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]*models.LostItem{}}
}

func (s *fakeStore) Create(_ context.Context, item *models.LostItem) error {
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*models.LostItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, filter models.ItemFilter) ([]*models.LostItem, error) {
	var out []*models.LostItem
	for _, item := range s.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID, status string) ([]*models.LostItem, error) {
	var out []*models.LostItem
	for _, item := range s.items {
		if item.UserID == ownerID && item.Status == status {
			cp := *item
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(items []*models.LostItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func (s *fakeStore) UpdateStatus(_ context.Context, id, ownerID, newStatus string) error {
	item, ok := s.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	if item.UserID != ownerID {
		return storage.ErrNotOwner
	}
	if !policy.CanTransition(item.Status, newStatus) {
		return storage.ErrInvalidTransition
	}
	item.Status = newStatus
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id, ownerID string) (string, error) {
	item, ok := s.items[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	if item.UserID != ownerID {
		return "", storage.ErrNotOwner
	}
	delete(s.items, id)
	return item.ImageURL, nil
}

func (s *fakeStore) ListCategories(_ context.Context) ([]models.Category, error) {
	return []models.Category{{ID: "c1", Name: "Dompet", Icon: "wallet"}}, nil
}

type fakeImages struct {
	deleted []string
}

func (f *fakeImages) Upload(_ context.Context, _ io.Reader, filename, _ string, _ int64) (string, error) {
	return "https://img.test/bucket/reports/" + filename, nil
}

func (f *fakeImages) Delete(_ context.Context, imageURL string) error {
	f.deleted = append(f.deleted, imageURL)
	return nil
}

type fakePublisher struct {
	published []string
}

func (p *fakePublisher) PublishItemReported(_ context.Context, _ models.ItemReportedEvent) error {
	p.published = append(p.published, models.EventItemReported)
	return nil
}

func (p *fakePublisher) PublishItemStatusChanged(_ context.Context, _ models.ItemStatusChangedEvent) error {
	p.published = append(p.published, models.EventItemStatusChanged)
	return nil
}

func (p *fakePublisher) PublishItemDeleted(_ context.Context, _ models.ItemDeletedEvent) error {
	p.published = append(p.published, models.EventItemDeleted)
	return nil
}

type fixture struct {
	store  *fakeStore
	images *fakeImages
	events *fakePublisher
	router *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newFakeStore(),
		images: &fakeImages{},
		events: &fakePublisher{},
	}
	h := NewHandler(f.store, f.images, f.events)

	r := mux.NewRouter()
	r.Use(session.Middleware(testSecret))
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/categories", h.ListCategoriesHandler).Methods("GET")
	api.HandleFunc("/items", h.BrowseHandler).Methods("GET")
	api.HandleFunc("/items", h.CreateHandler).Methods("POST")
	api.HandleFunc("/items/{id}", h.ItemDetailHandler).Methods("GET")
	api.HandleFunc("/items/{id}/status", h.UpdateStatusHandler).Methods("PATCH")
	api.HandleFunc("/items/{id}", h.DeleteHandler).Methods("DELETE")
	api.HandleFunc("/profile", h.ProfileHandler).Methods("GET")
	api.HandleFunc("/profile/items", h.ProfileItemsHandler).Methods("GET")
	f.router = r
	return f
}

func (f *fixture) seed(t *testing.T, id, owner, status string, reward int64) {
	t.Helper()
	f.store.items[id] = &models.LostItem{
		ID:           id,
		UserID:       owner,
		Title:        "Dompet kulit",
		Description:  "Hilang di taman",
		Location:     "Taman Kota",
		DateLost:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ContactPhone: "081234567890",
		RewardAmount: reward,
		Status:       status,
		CreatedAt:    time.Now(),
	}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := session.Issue(testSecret, userID, userID+"@example.com", time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (f *fixture) request(t *testing.T, method, path, bearer string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreateRequiresAuth(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/items", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func createForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestCreateReport(t *testing.T) {
	f := newFixture(t)

	body, contentType := createForm(t, map[string]string{
		"title":         "Kunci motor",
		"description":   "Gantungan merah",
		"location":      "Halte Blok M",
		"date_lost":     "2025-06-01",
		"contact_phone": "081234567890",
		"reward_amount": "50000",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/items", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		ID            string   `json:"id"`
		Status        string   `json:"status"`
		RewardDisplay string   `json:"reward_display"`
		Actions       []string `json:"actions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	if created.Status != models.StatusLost {
		t.Errorf("new reports must start as lost, got %q", created.Status)
	}
	if created.RewardDisplay != "Rp 50.000" {
		t.Errorf("expected reward display 'Rp 50.000', got %q", created.RewardDisplay)
	}
	if len(created.Actions) != 2 || created.Actions[0] != "mark_found" {
		t.Errorf("expected owner actions on new report, got %v", created.Actions)
	}
	if len(f.events.published) != 1 || f.events.published[0] != models.EventItemReported {
		t.Errorf("expected item.reported event, got %v", f.events.published)
	}
}

func TestCreateTreatsBadRewardAsAbsent(t *testing.T) {
	f := newFixture(t)

	body, contentType := createForm(t, map[string]string{
		"title":         "Kunci motor",
		"description":   "Gantungan merah",
		"location":      "Halte Blok M",
		"date_lost":     "2025-06-01",
		"contact_phone": "081234567890",
		"reward_amount": "lima puluh ribu",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/items", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "reward_display") {
		t.Error("malformed reward must be treated as absent")
	}
}

func TestCreateMissingFields(t *testing.T) {
	f := newFixture(t)

	body, contentType := createForm(t, map[string]string{"title": "Kunci"})

	req := httptest.NewRequest(http.MethodPost, "/api/items", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDetailActionsDependOnCaller(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "i1", "user-1", models.StatusLost, 0)

	// Owner sees mark_found and delete.
	w := f.request(t, http.MethodGet, "/api/items/i1", token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var owner struct {
		Actions []string          `json:"actions"`
		Links   map[string]string `json:"links"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &owner); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(owner.Actions) != 2 || owner.Actions[0] != "mark_found" || owner.Actions[1] != "delete" {
		t.Errorf("owner actions = %v", owner.Actions)
	}

	// A different user sees contact actions and the deep links.
	w = f.request(t, http.MethodGet, "/api/items/i1", token(t, "user-2"), nil)
	var viewer struct {
		Actions []string          `json:"actions"`
		Links   map[string]string `json:"links"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &viewer); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(viewer.Actions) != 2 || viewer.Actions[0] != "call" || viewer.Actions[1] != "message" {
		t.Errorf("viewer actions = %v", viewer.Actions)
	}
	if viewer.Links["call"] != "tel:081234567890" {
		t.Errorf("call link = %q", viewer.Links["call"])
	}
	if !strings.Contains(viewer.Links["whatsapp"], "wa.me/6281234567890") {
		t.Errorf("whatsapp link = %q", viewer.Links["whatsapp"])
	}
}

func TestDetailUnknownItem(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/api/items/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "i1", "user-1", models.StatusLost, 0)

	w := f.request(t, http.MethodPatch, "/api/items/i1/status", token(t, "user-1"),
		strings.NewReader(`{"status":"found"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.store.items["i1"].Status != models.StatusFound {
		t.Errorf("store status = %q", f.store.items["i1"].Status)
	}
	if len(f.events.published) != 1 || f.events.published[0] != models.EventItemStatusChanged {
		t.Errorf("events = %v", f.events.published)
	}
}

func TestUpdateStatusRejectsReverseTransition(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "i1", "user-1", models.StatusFound, 0)

	w := f.request(t, http.MethodPatch, "/api/items/i1/status", token(t, "user-1"),
		strings.NewReader(`{"status":"lost"}`))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if f.store.items["i1"].Status != models.StatusFound {
		t.Error("rejected transition must not change the store")
	}
	if len(f.events.published) != 0 {
		t.Errorf("no event expected, got %v", f.events.published)
	}
}

func TestUpdateStatusGuardsOwnership(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "i1", "user-1", models.StatusLost, 0)

	w := f.request(t, http.MethodPatch, "/api/items/i1/status", token(t, "user-2"),
		strings.NewReader(`{"status":"found"}`))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if f.store.items["i1"].Status != models.StatusLost {
		t.Error("cross-user mutation must not change the store")
	}
}

func TestDeleteRemovesItemAndImage(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "i1", "user-1", models.StatusClosed, 0)
	f.store.items["i1"].ImageURL = "https://img.test/bucket/reports/a.jpg"

	w := f.request(t, http.MethodDelete, "/api/items/i1", token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := f.store.items["i1"]; ok {
		t.Error("item should be gone")
	}
	if len(f.images.deleted) != 1 {
		t.Errorf("expected image cleanup, got %v", f.images.deleted)
	}
	if len(f.events.published) != 1 || f.events.published[0] != models.EventItemDeleted {
		t.Errorf("events = %v", f.events.published)
	}
}

func TestDeleteGuardsOwnership(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "i1", "user-1", models.StatusLost, 0)

	w := f.request(t, http.MethodDelete, "/api/items/i1", token(t, "user-2"), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if _, ok := f.store.items["i1"]; !ok {
		t.Error("item must survive a cross-user delete attempt")
	}
}

func TestProfileItemsFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "i1", "user-1", models.StatusLost, 0)
	f.seed(t, "i2", "user-1", models.StatusFound, 0)
	f.seed(t, "i3", "user-2", models.StatusLost, 0)

	w := f.request(t, http.MethodGet, "/api/profile/items?status=lost", token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != models.StatusLost {
		t.Errorf("status = %q", resp.Status)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "i1" {
		t.Errorf("items = %v", resp.Items)
	}
}

func TestProfileItemsDefaultsToLostTab(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/api/profile/items", token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"lost"`) {
		t.Errorf("expected default lost tab, got %s", w.Body.String())
	}
}

func TestProfileItemsRequiresAuth(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/api/profile/items", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestProfileIdentity(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/api/profile", token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "user-1@example.com") {
		t.Errorf("expected account email in response, got %s", w.Body.String())
	}
}

func TestBrowseRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/api/items?status=archived", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
