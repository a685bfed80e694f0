package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is stored when an event is created or updated without one.
const DefaultCategory = "Other"

// Event is a scheduled event. Attendees always equals the number of
// registrations referencing the event once a transaction commits.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        time.Time  `json:"date"`
	Location    string     `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Capacity    int        `json:"capacity"`
	Attendees   int        `json:"attendees"`
	Category    string     `json:"category"`
	Image       *string    `json:"image"`
	CreatedBy   *uuid.UUID `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsFull reports whether no further registrations fit.
func (e *Event) IsFull() bool {
	return e.Attendees >= e.Capacity
}
