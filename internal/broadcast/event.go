package broadcast

import (
	"time"

	"github.com/tracked/backend/internal/models"
)

// Event types
const (
	EventTypeConnection   = "connection"
	EventTypeStatusUpdate = "status_update"
)

// Event is a message pushed to live-update subscribers.
// A "connection" event carries SubscriberID only; a "status_update" event
// carries the feedback id, its new status and the update time.
type Event struct {
	Type         string        `json:"type"`
	SubscriberID string        `json:"subscriberId,omitempty"`
	FeedbackID   int           `json:"feedbackId,omitempty"`
	Status       models.Status `json:"status,omitempty"`
	UpdatedAt    *time.Time    `json:"updatedAt,omitempty"`
}

// StatusUpdateEvent builds the event published after a status mutation
func StatusUpdateEvent(u *models.StatusUpdate) Event {
	updatedAt := u.UpdatedAt
	return Event{
		Type:       EventTypeStatusUpdate,
		FeedbackID: u.ID,
		Status:     u.Status,
		UpdatedAt:  &updatedAt,
	}
}

func connectionEvent(subscriberID string) Event {
	return Event{Type: EventTypeConnection, SubscriberID: subscriberID}
}
