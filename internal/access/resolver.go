// Package access is the one place where visibility and permission
// decisions are made. Every endpoint resolves an AccessLevel here and
// acts on it; no handler re-derives owner/public/shared checks inline.
package access

import (
	"github.com/google/uuid"

	"calshare/internal/domain"
)

// ShareRegistry supplies the membership facts the resolver consults.
// *storage.Storage satisfies it.
type ShareRegistry interface {
	CalendarShareExists(calendarID, userID uuid.UUID) (bool, error)
}

type Resolver struct {
	shares ShareRegistry
}

func NewResolver(shares ShareRegistry) *Resolver {
	return &Resolver{shares: shares}
}

// CalendarAccess computes the actor's access level against a calendar.
// Owner wins over Public wins over Shared; anything else is Denied.
// A nil actor or calendar denies.
func (r *Resolver) CalendarAccess(actor *domain.User, cal *domain.Calendar) (domain.AccessLevel, error) {
	if actor == nil || cal == nil {
		return domain.AccessDenied, nil
	}
	if cal.OwnerUserID == actor.ID {
		return domain.AccessOwner, nil
	}
	if cal.Visibility == domain.CalendarPublic {
		return domain.AccessPublic, nil
	}
	shared, err := r.shares.CalendarShareExists(cal.ID, actor.ID)
	if err != nil {
		return domain.AccessDenied, err
	}
	if shared {
		return domain.AccessShared, nil
	}
	return domain.AccessDenied, nil
}

// EventAccess computes the actor's access level against an event. The
// actor sees an event when they own it, or when they hold any non-denied
// access to its parent calendar. A nil parent calendar (the calendar was
// deleted out from under the event) denies.
//
// Event shares are deliberately not consulted: the relation is maintained
// by the share endpoints but has never granted read access, and turning it
// into a grant is a product decision, not a rewrite decision.
func (r *Resolver) EventAccess(actor *domain.User, event *domain.Event, cal *domain.Calendar) (domain.AccessLevel, error) {
	if actor == nil || event == nil {
		return domain.AccessDenied, nil
	}
	if event.OwnerUserID == actor.ID {
		return domain.AccessOwner, nil
	}
	if cal == nil || cal.ID != event.CalendarID {
		return domain.AccessDenied, nil
	}
	return r.CalendarAccess(actor, cal)
}
