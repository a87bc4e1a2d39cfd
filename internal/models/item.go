package models

import (
	"time"
)

// Item statuses. A report starts as "lost"; its owner can mark it "found"
// or "closed", never the other way around.
const (
	StatusLost   = "lost"
	StatusFound  = "found"
	StatusClosed = "closed"
)

// Category is a report category, resolved via join at read time.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// LostItem represents a single lost-item report.
type LostItem struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	DateLost     time.Time `json:"date_lost"`
	ImageURL     string    `json:"image_url,omitempty"`
	ContactPhone string    `json:"contact_phone"`
	RewardAmount int64     `json:"reward_amount,omitempty"`
	Status       string    `json:"status"`
	Category     Category  `json:"categories"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateItemRequest represents the form data for reporting a lost item.
// RewardAmount arrives as a string because the form field is optional
// free text; a non-numeric value is treated as no reward.
type CreateItemRequest struct {
	Title        string `json:"title" form:"title"`
	Description  string `json:"description" form:"description"`
	Location     string `json:"location" form:"location"`
	DateLost     string `json:"date_lost" form:"date_lost"`
	ContactPhone string `json:"contact_phone" form:"contact_phone"`
	RewardAmount string `json:"reward_amount" form:"reward_amount"`
	CategoryID   string `json:"category_id" form:"category_id"`
}

// UpdateStatusRequest is the body of a status change call.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ItemFilter narrows a public browse listing. Zero values mean "no filter".
type ItemFilter struct {
	Status     string
	CategoryID string
	Query      string
}

// Notification is a record written by the notifier worker for every
// lifecycle event it consumes.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
