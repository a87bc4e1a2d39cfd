package view

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/daruratku/lostfound/internal/models"
	"github.com/daruratku/lostfound/internal/policy"
)

// Gateway is the remote store surface the profile view needs. pkg/client
// implements it over the HTTP API; tests substitute a fake.
type Gateway interface {
	ListItems(ctx context.Context, ownerID, status string) ([]models.LostItem, error)
	UpdateStatus(ctx context.Context, itemID, ownerID, newStatus string) error
	DeleteItem(ctx context.Context, itemID, ownerID string) error
}

// Notifier receives one-shot user-facing outcome messages (toasts).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Confirmer gates destructive actions behind an explicit user confirmation.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ProfileState is a point-in-time snapshot of the tabbed list.
type ProfileState struct {
	Tab     string
	Loading bool
	Items   []models.LostItem
}

// Empty reports whether the settled view has nothing to show for the active
// tab. A loading view is never empty; it shows the placeholder instead.
func (s ProfileState) Empty() bool {
	return !s.Loading && len(s.Items) == 0
}

// ProfileController drives the current user's tabbed report list. Fetches
// run asynchronously and are tagged with a request generation; a result is
// committed only while its generation is still current, so a fetch
// superseded by a faster tab switch can never leak into the view.
type ProfileController struct {
	gw      Gateway
	notify  Notifier
	confirm Confirmer
	ownerID string

	mu      sync.Mutex
	tab     string
	gen     uint64
	loading bool
	items   []models.LostItem

	inflight sync.WaitGroup
}

// NewProfileController creates a controller for the given owner, starting on
// the "lost" tab with nothing loaded.
func NewProfileController(gw Gateway, ownerID string, notify Notifier, confirm Confirmer) *ProfileController {
	return &ProfileController{
		gw:      gw,
		notify:  notify,
		confirm: confirm,
		ownerID: ownerID,
		tab:     models.StatusLost,
	}
}

// State returns a snapshot of the view.
func (c *ProfileController) State() ProfileState {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.LostItem, len(c.items))
	copy(items, c.items)
	return ProfileState{Tab: c.tab, Loading: c.loading, Items: items}
}

// SelectTab activates a status tab and starts fetching its list. Any fetch
// still in flight for a previous selection is superseded.
func (c *ProfileController) SelectTab(ctx context.Context, tab string) {
	if !policy.ValidStatus(tab) {
		return
	}

	c.mu.Lock()
	c.tab = tab
	c.gen++
	gen := c.gen
	c.loading = true
	c.items = nil
	c.mu.Unlock()

	c.inflight.Add(1)
	go c.fetch(ctx, gen, tab)
}

// Refresh re-fetches the active tab.
func (c *ProfileController) Refresh(ctx context.Context) {
	c.mu.Lock()
	tab := c.tab
	c.gen++
	gen := c.gen
	c.loading = true
	c.mu.Unlock()

	c.inflight.Add(1)
	go c.fetch(ctx, gen, tab)
}

func (c *ProfileController) fetch(ctx context.Context, gen uint64, tab string) {
	defer c.inflight.Done()

	items, err := c.gw.ListItems(ctx, c.ownerID, tab)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Superseded by a newer selection; discard.
		return
	}
	c.loading = false
	if err != nil {
		log.Error().Err(err).Str("tab", tab).Msg("Failed to fetch profile items")
		c.items = nil
		c.notify.Error("Gagal memuat laporan")
		return
	}
	c.items = items
}

// MarkFound moves one of the user's reports to "found". The policy is
// consulted first; an ineligible report never reaches the gateway. On
// success the active tab is re-fetched; on failure the list is untouched.
func (c *ProfileController) MarkFound(ctx context.Context, item models.LostItem) {
	if !policy.Allowed(item.Status, true, policy.ActionMarkFound) {
		c.notify.Error("Laporan ini tidak dapat ditandai ditemukan")
		return
	}

	if err := c.gw.UpdateStatus(ctx, item.ID, c.ownerID, models.StatusFound); err != nil {
		log.Error().Err(err).Str("item_id", item.ID).Msg("Failed to update status")
		c.notify.Error("Gagal mengubah status")
		return
	}

	c.notify.Success("Status berhasil diubah!")
	c.Refresh(ctx)
}

// Delete removes one of the user's reports after explicit confirmation.
// Declining performs no gateway call and leaves all state untouched.
func (c *ProfileController) Delete(ctx context.Context, item models.LostItem) {
	if !c.confirm.Confirm("Apakah Anda yakin ingin menghapus laporan ini?") {
		return
	}

	if err := c.gw.DeleteItem(ctx, item.ID, c.ownerID); err != nil {
		log.Error().Err(err).Str("item_id", item.ID).Msg("Failed to delete item")
		c.notify.Error("Gagal menghapus laporan")
		return
	}

	c.notify.Success("Laporan berhasil dihapus!")
	c.Refresh(ctx)
}

// Wait blocks until every fetch started so far has settled or been
// discarded. Callers that need a settled snapshot (and tests) use this; the
// interactive path just re-renders on the next State call.
func (c *ProfileController) Wait() {
	c.inflight.Wait()
}
