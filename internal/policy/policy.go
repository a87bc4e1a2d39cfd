// Package policy decides which actions are available on a lost-item report
// given its current status and the caller's relationship to it. It is pure:
// ownership has already been established upstream by comparing the session
// identity against the report's owner id.
package policy

import (
	"github.com/daruratku/lostfound/internal/models"
)

// Action is something a user can do from a report's detail or list view.
type Action string

const (
	ActionCall      Action = "call"
	ActionMessage   Action = "message"
	ActionMarkFound Action = "mark_found"
	ActionDelete    Action = "delete"
)

// ValidStatus reports whether s is one of the three known statuses.
func ValidStatus(s string) bool {
	switch s {
	case models.StatusLost, models.StatusFound, models.StatusClosed:
		return true
	}
	return false
}

// ActionsFor returns the ordered set of actions permitted for a report in
// the given status. Viewers only ever get the contact actions. Owners never
// get contact actions on their own report; they can mark it found while it
// is still lost, and delete it in any status.
func ActionsFor(status string, isOwner bool) []Action {
	if !ValidStatus(status) {
		return nil
	}
	if !isOwner {
		return []Action{ActionCall, ActionMessage}
	}
	if status == models.StatusLost {
		return []Action{ActionMarkFound, ActionDelete}
	}
	return []Action{ActionDelete}
}

// Allowed reports whether a single action is permitted.
func Allowed(status string, isOwner bool, action Action) bool {
	for _, a := range ActionsFor(status, isOwner) {
		if a == action {
			return true
		}
	}
	return false
}

// CanTransition reports whether a status change from one status to another
// is permitted. Transitions are forward-only: a report moves from lost to
// found or closed, and from found to closed. Nothing ever goes back to
// lost, and a closed report stays closed.
func CanTransition(from, to string) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	switch from {
	case models.StatusLost:
		return to == models.StatusFound || to == models.StatusClosed
	case models.StatusFound:
		return to == models.StatusClosed
	}
	return false
}

// SourcesFor returns the statuses from which a report may move to the given
// target. The storage layer uses this to guard the update predicate so that
// forward-only transitions hold even against stale or hostile callers.
func SourcesFor(to string) []string {
	var from []string
	for _, s := range []string{models.StatusLost, models.StatusFound, models.StatusClosed} {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}
