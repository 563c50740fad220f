// Package notifications records events admins should look at (new orders,
// questions, reviews), serves them to the admin dashboard, streams new ones
// over a websocket and sweeps old read ones away.
package notifications

import "time"

// Status is the read state of a notification.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// Notification is one admin-facing event. UserID is the user whose action
// produced it.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is what connected admins receive for each new notification.
type Event struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

// EventCreated is the only event type pushed today.
const EventCreated = "notification.created"
