// Package view holds the client-side presentation logic for lost-item
// reports: the detail view over a single report and the tabbed profile list.
// Both are decoupled from any rendering toolkit so their behavior can be
// tested directly; pkg/client provides the Gateway they talk through.
package view

import (
	"github.com/daruratku/lostfound/internal/contact"
	"github.com/daruratku/lostfound/internal/models"
	"github.com/daruratku/lostfound/internal/policy"
)

// ClickTarget identifies where inside the detail overlay a click landed.
type ClickTarget int

const (
	// ClickBackdrop is the dimmed area around the detail card.
	ClickBackdrop ClickTarget = iota
	// ClickContent is anywhere inside the detail card.
	ClickContent
	// ClickCloseButton is the explicit dismiss control.
	ClickCloseButton
)

// Human-readable status labels, matching the consumer app's locale.
var statusLabels = map[string]string{
	models.StatusLost:   "Hilang",
	models.StatusFound:  "Ditemukan",
	models.StatusClosed: "Ditutup",
}

// Detail is the view model for one report. It holds no state of its own and
// renders deterministically from the report it is given.
type Detail struct {
	Item    models.LostItem
	IsOwner bool
}

// Actions returns the affordances to expose, per the transition policy.
func (d Detail) Actions() []policy.Action {
	return policy.ActionsFor(d.Item.Status, d.IsOwner)
}

// CallLink is the direct-dial URI for the reporter's phone number.
func (d Detail) CallLink() string {
	return contact.TelLink(d.Item.ContactPhone)
}

// MessageLink is the WhatsApp URI carrying the templated inquiry.
func (d Detail) MessageLink() string {
	return contact.WhatsAppLink(d.Item.ContactPhone, d.Item.Title)
}

// RewardLine returns the formatted reward and whether to show it at all.
func (d Detail) RewardLine() (string, bool) {
	return contact.FormatReward(d.Item.RewardAmount)
}

// StatusLabel returns the display label for the report's status.
func (d Detail) StatusLabel() string {
	return statusLabels[d.Item.Status]
}

// HandleClick reports whether a click at the given target dismisses the
// view. Clicks on the card content are contained; only the backdrop and the
// explicit close control dismiss.
func (d Detail) HandleClick(target ClickTarget) bool {
	switch target {
	case ClickBackdrop, ClickCloseButton:
		return true
	}
	return false
}
