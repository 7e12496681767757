package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"calshare/internal/access"
	"calshare/internal/domain"
	"calshare/internal/storage"
)

// EventService handles event CRUD, sharing, listing and copying. Reads
// return redacted EventViews; raw events stay inside the service layer.
type EventService struct {
	storage  *storage.Storage
	resolver *access.Resolver
	filter   *access.QueryFilter
}

func NewEventService(s *storage.Storage, resolver *access.Resolver) *EventService {
	return &EventService{
		storage:  s,
		resolver: resolver,
		filter:   access.NewQueryFilter(resolver, s),
	}
}

type EventCreate struct {
	Title       string
	Description string
	Location    string
	StartAt     time.Time
	EndAt       time.Time
	Timezone    string
	AllDay      bool
	Visibility  domain.EventVisibility
	RRule       string
}

// validateRRule accepts an empty rule or one that parses as a valid
// RRULE. Expansion into occurrences is not done anywhere in this service.
func validateRRule(rule string) error {
	if rule == "" {
		return nil
	}
	if _, err := rrule.StrToRRule(rule); err != nil {
		return fmt.Errorf("rrule %q: %w", rule, domain.ErrInvalid)
	}
	return nil
}

// Create adds an event to a calendar the actor owns. Public or Shared
// calendar access does not permit creating events on it.
func (s *EventService) Create(actor *domain.User, calendarID uuid.UUID, input EventCreate) (*domain.Event, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	cal, err := s.storage.GetCalendar(calendarID)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, fmt.Errorf("calendar %s: %w", calendarID, domain.ErrNotFound)
	}
	level, err := s.resolver.CalendarAccess(actor, cal)
	if err != nil {
		return nil, err
	}
	if !level.CanMutate() {
		return nil, domain.ErrForbidden
	}

	if input.Title == "" {
		return nil, fmt.Errorf("event title: %w", domain.ErrInvalid)
	}
	if input.Visibility == "" {
		input.Visibility = domain.EventPrivate
	}
	if !input.Visibility.Valid() {
		return nil, fmt.Errorf("visibility %q: %w", input.Visibility, domain.ErrInvalid)
	}
	if err := validateRRule(input.RRule); err != nil {
		return nil, err
	}

	event := &domain.Event{
		ID:          uuid.New(),
		CalendarID:  calendarID,
		OwnerUserID: actor.ID,
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		StartAt:     input.StartAt.UTC(),
		EndAt:       input.EndAt.UTC(),
		Timezone:    input.Timezone,
		AllDay:      input.AllDay,
		Visibility:  input.Visibility,
		RRule:       input.RRule,
	}
	if err := s.storage.CreateEvent(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns the actor's view of one event. Busy events owned by someone
// else come back redacted.
func (s *EventService) Get(actor *domain.User, id uuid.UUID) (domain.EventView, error) {
	if err := requireActor(actor); err != nil {
		return domain.EventView{}, err
	}
	event, err := s.storage.GetEvent(id)
	if err != nil {
		return domain.EventView{}, err
	}
	if event == nil {
		return domain.EventView{}, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	cal, err := s.storage.GetCalendar(event.CalendarID)
	if err != nil {
		return domain.EventView{}, err
	}
	level, err := s.resolver.EventAccess(actor, event, cal)
	if err != nil {
		return domain.EventView{}, err
	}
	if !level.CanView() {
		return domain.EventView{}, domain.ErrForbidden
	}
	return access.Project(event, event.OwnerUserID == actor.ID), nil
}

// requireOwnedEvent loads an event and verifies the actor owns it. Every
// event mutation goes through here.
func (s *EventService) requireOwnedEvent(actor *domain.User, id uuid.UUID) (*domain.Event, error) {
	event, err := s.storage.GetEvent(id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	if event.OwnerUserID != actor.ID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

type EventUpdate struct {
	Title       *string
	Description *string
	Location    *string
	StartAt     *time.Time
	EndAt       *time.Time
	Timezone    *string
	AllDay      *bool
	Visibility  *domain.EventVisibility
	RRule       *string
}

func (s *EventService) Update(actor *domain.User, id uuid.UUID, input EventUpdate) (*domain.Event, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	event, err := s.requireOwnedEvent(actor, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, fmt.Errorf("event title: %w", domain.ErrInvalid)
		}
		event.Title = *input.Title
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.StartAt != nil {
		event.StartAt = input.StartAt.UTC()
	}
	if input.EndAt != nil {
		event.EndAt = input.EndAt.UTC()
	}
	if input.Timezone != nil {
		event.Timezone = *input.Timezone
	}
	if input.AllDay != nil {
		event.AllDay = *input.AllDay
	}
	if input.Visibility != nil {
		if !input.Visibility.Valid() {
			return nil, fmt.Errorf("visibility %q: %w", *input.Visibility, domain.ErrInvalid)
		}
		event.Visibility = *input.Visibility
	}
	if input.RRule != nil {
		if err := validateRRule(*input.RRule); err != nil {
			return nil, err
		}
		event.RRule = *input.RRule
	}
	if err := s.storage.UpdateEvent(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete removes an event and, through the store's cascade, its event
// shares.
func (s *EventService) Delete(actor *domain.User, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.requireOwnedEvent(actor, id); err != nil {
		return err
	}
	return s.storage.DeleteEvent(id)
}

// Share records an event share. The relation is maintained for its
// uniqueness and cascade semantics but grants no read access (see
// access.Resolver.EventAccess). Sharing twice is a no-op.
func (s *EventService) Share(actor *domain.User, eventID, userID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.requireOwnedEvent(actor, eventID); err != nil {
		return err
	}
	target, err := s.storage.GetUser(userID)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return s.storage.AddEventShare(eventID, userID)
}

// Unshare revokes an event share. Absence is success.
func (s *EventService) Unshare(actor *domain.User, eventID, userID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.requireOwnedEvent(actor, eventID); err != nil {
		return err
	}
	return s.storage.RemoveEventShare(eventID, userID)
}

// List returns the actor's views of a calendar's events, filtered and
// ordered per access.QueryFilter.
func (s *EventService) List(actor *domain.User, calendarID uuid.UUID, query access.ListQuery) ([]domain.EventView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	cal, err := s.storage.GetCalendar(calendarID)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, fmt.Errorf("calendar %s: %w", calendarID, domain.ErrNotFound)
	}
	return s.filter.List(actor, cal, query)
}

// Copy duplicates an event the actor may view into a calendar the actor
// owns. With no explicit target the actor's oldest calendar is used; an
// actor who owns no calendar gets ErrInvalid. An explicit target that
// does not exist is also ErrInvalid (a bad destination, not a missing
// entity).
func (s *EventService) Copy(actor *domain.User, eventID uuid.UUID, targetCalendarID *uuid.UUID) (*domain.Event, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	src, err := s.storage.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("event %s: %w", eventID, domain.ErrNotFound)
	}
	srcCal, err := s.storage.GetCalendar(src.CalendarID)
	if err != nil {
		return nil, err
	}
	level, err := s.resolver.EventAccess(actor, src, srcCal)
	if err != nil {
		return nil, err
	}
	if !level.CanView() {
		return nil, domain.ErrForbidden
	}

	var dest *domain.Calendar
	if targetCalendarID != nil {
		dest, err = s.storage.GetCalendar(*targetCalendarID)
		if err != nil {
			return nil, err
		}
		if dest == nil {
			return nil, fmt.Errorf("destination calendar %s: %w", *targetCalendarID, domain.ErrInvalid)
		}
		if dest.OwnerUserID != actor.ID {
			return nil, domain.ErrForbidden
		}
	} else {
		dest, err = s.storage.FirstCalendarByOwner(actor.ID)
		if err != nil {
			return nil, err
		}
		if dest == nil {
			return nil, fmt.Errorf("no destination calendar: %w", domain.ErrInvalid)
		}
	}

	// The copy takes its content from the actor's view of the source, not
	// from the raw row. A non-owner copying a busy event gets "Busy" with
	// no description or location, same as any other read.
	view := access.Project(src, src.OwnerUserID == actor.ID)

	dup := &domain.Event{
		ID:          uuid.New(),
		CalendarID:  dest.ID,
		OwnerUserID: actor.ID,
		Title:       view.Title,
		Description: view.Description,
		Location:    view.Location,
		StartAt:     view.StartAt,
		EndAt:       view.EndAt,
		Timezone:    view.Timezone,
		AllDay:      view.AllDay,
		Visibility:  view.Visibility,
		RRule:       view.RRule,
	}
	if err := s.storage.CreateEvent(dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// AgendaForOwner returns the user's own events across all calendars they
// own for one calendar day. Used by the digest job; the user is the owner
// of everything returned, so nothing is redacted.
func (s *EventService) AgendaForOwner(user *domain.User, day time.Time) ([]domain.EventView, error) {
	if err := requireActor(user); err != nil {
		return nil, err
	}
	calendars, err := s.storage.ListCalendarsByOwner(user.ID)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	var agenda []domain.EventView
	for _, cal := range calendars {
		views, err := s.filter.List(user, cal, access.ListQuery{StartFrom: &dayStart, StartTo: &dayEnd})
		if err != nil {
			return nil, err
		}
		agenda = append(agenda, views...)
	}
	return agenda, nil
}
