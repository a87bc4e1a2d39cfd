package models

import (
	"time"
)

// Routing keys for item lifecycle events.
const (
	EventItemReported      = "item.reported"
	EventItemStatusChanged = "item.status_changed"
	EventItemDeleted       = "item.deleted"
)

// ItemReportedEvent is published when a new report is created.
type ItemReportedEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	CategoryName string    `json:"category_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// ItemStatusChangedEvent is published when an owner changes a report's status.
type ItemStatusChangedEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}

// ItemDeletedEvent is published when an owner removes a report.
type ItemDeletedEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}
