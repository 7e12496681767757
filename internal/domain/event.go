package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventVisibility string

const (
	EventPrivate EventVisibility = "private"
	EventPublic  EventVisibility = "public"
	EventBusy    EventVisibility = "busy"
)

func (v EventVisibility) Valid() bool {
	return v == EventPrivate || v == EventPublic || v == EventBusy
}

// BusyTitle replaces the real title of a busy event when it is shown to
// anyone but its owner.
const BusyTitle = "Busy"

type Event struct {
	ID          uuid.UUID
	CalendarID  uuid.UUID
	OwnerUserID uuid.UUID
	Title       string
	Description string
	Location    string
	StartAt     time.Time
	EndAt       time.Time
	Timezone    string
	AllDay      bool
	Visibility  EventVisibility
	RRule       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventShare grants view access to one event for one user, independent of
// the parent calendar's sharing state. One row per (event, user) pair.
type EventShare struct {
	EventID uuid.UUID
	UserID  uuid.UUID
}

// EventView is the projection of an event an actor is permitted to see.
// It is what every read path returns; raw Events never leave the service
// layer for non-owners.
type EventView struct {
	ID          uuid.UUID       `json:"id"`
	CalendarID  uuid.UUID       `json:"calendar_id"`
	OwnerUserID uuid.UUID       `json:"owner_user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	StartAt     time.Time       `json:"start_at"`
	EndAt       time.Time       `json:"end_at"`
	Timezone    string          `json:"timezone,omitempty"`
	AllDay      bool            `json:"all_day"`
	Visibility  EventVisibility `json:"visibility"`
	RRule       string          `json:"rrule,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
