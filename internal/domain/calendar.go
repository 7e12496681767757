package domain

import (
	"time"

	"github.com/google/uuid"
)

type CalendarVisibility string

const (
	CalendarPrivate CalendarVisibility = "private"
	CalendarPublic  CalendarVisibility = "public"
)

func (v CalendarVisibility) Valid() bool {
	return v == CalendarPrivate || v == CalendarPublic
}

type Calendar struct {
	ID          uuid.UUID
	OwnerUserID uuid.UUID
	Name        string
	Visibility  CalendarVisibility
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CalendarShare grants view access to one calendar for one user.
// At most one row exists per (calendar, user) pair; the store's UNIQUE
// constraint owns that invariant.
type CalendarShare struct {
	CalendarID uuid.UUID
	UserID     uuid.UUID
}

// CalendarSubscription makes a calendar appear in the subscriber's
// aggregated view. It grants no read access on its own; IsHidden only
// controls whether the calendar shows up in the aggregate.
type CalendarSubscription struct {
	SubscriberUserID uuid.UUID
	CalendarID       uuid.UUID
	IsHidden         bool
}
