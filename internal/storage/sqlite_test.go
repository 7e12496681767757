package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"calshare/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Storage, email string) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Email: email, IsActive: true, Role: domain.RoleUser}
	if err := s.CreateUser(u); err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func createTestCalendar(t *testing.T, s *Storage, owner *domain.User) *domain.Calendar {
	t.Helper()
	c := &domain.Calendar{ID: uuid.New(), OwnerUserID: owner.ID, Name: "test", Visibility: domain.CalendarPrivate}
	if err := s.CreateCalendar(c); err != nil {
		t.Fatalf("CreateCalendar: %v", err)
	}
	return c
}

func createTestEvent(t *testing.T, s *Storage, cal *domain.Calendar, title string, start time.Time) *domain.Event {
	t.Helper()
	e := &domain.Event{
		ID:          uuid.New(),
		CalendarID:  cal.ID,
		OwnerUserID: cal.OwnerUserID,
		Title:       title,
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		Visibility:  domain.EventPrivate,
	}
	if err := s.CreateEvent(e); err != nil {
		t.Fatalf("CreateEvent(%s): %v", title, err)
	}
	return e
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	createTestUser(t, s, "dup@example.com")
	err := s.CreateUser(&domain.User{ID: uuid.New(), Email: "dup@example.com", IsActive: true, Role: domain.RoleUser})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetUserMissing(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	u, err := s.GetUser(uuid.New())
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	created := createTestUser(t, s, "alice@example.com")
	got, err := s.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("GetUserByEmail = %+v, want id %s", got, created.ID)
	}
	if got.Role != domain.RoleUser || !got.IsActive {
		t.Errorf("role/active round-trip broken: %+v", got)
	}

	if err := s.SetUserActive(created.ID, false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	got, _ = s.GetUser(created.ID)
	if got.IsActive {
		t.Error("expected deactivated user")
	}

	if err := s.SetUserRole(created.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("SetUserRole: %v", err)
	}
	got, _ = s.GetUser(created.ID)
	if got.Role != domain.RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}
}

func TestCalendarShareIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	owner := createTestUser(t, s, "owner@example.com")
	member := createTestUser(t, s, "member@example.com")
	cal := createTestCalendar(t, s, owner)

	// Adding the same share twice must not error; the second insert hits
	// the primary key and is swallowed.
	if err := s.AddCalendarShare(cal.ID, member.ID); err != nil {
		t.Fatalf("first AddCalendarShare: %v", err)
	}
	if err := s.AddCalendarShare(cal.ID, member.ID); err != nil {
		t.Fatalf("second AddCalendarShare: %v", err)
	}

	exists, err := s.CalendarShareExists(cal.ID, member.ID)
	if err != nil {
		t.Fatalf("CalendarShareExists: %v", err)
	}
	if !exists {
		t.Error("expected share to exist")
	}

	// Removing twice is also fine.
	if err := s.RemoveCalendarShare(cal.ID, member.ID); err != nil {
		t.Fatalf("first RemoveCalendarShare: %v", err)
	}
	if err := s.RemoveCalendarShare(cal.ID, member.ID); err != nil {
		t.Fatalf("second RemoveCalendarShare: %v", err)
	}
	exists, _ = s.CalendarShareExists(cal.ID, member.ID)
	if exists {
		t.Error("expected share to be gone")
	}
}

func TestSubscriptionUpsert(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	owner := createTestUser(t, s, "owner@example.com")
	follower := createTestUser(t, s, "follower@example.com")
	cal := createTestCalendar(t, s, owner)

	// Setting the hidden flag with no prior subscription creates one.
	if err := s.SetSubscriptionHidden(follower.ID, cal.ID, true); err != nil {
		t.Fatalf("SetSubscriptionHidden (insert): %v", err)
	}
	sub, err := s.GetSubscription(follower.ID, cal.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub == nil || !sub.IsHidden {
		t.Fatalf("expected hidden subscription, got %+v", sub)
	}

	// A second call updates in place.
	if err := s.SetSubscriptionHidden(follower.ID, cal.ID, false); err != nil {
		t.Fatalf("SetSubscriptionHidden (update): %v", err)
	}
	sub, _ = s.GetSubscription(follower.ID, cal.ID)
	if sub == nil || sub.IsHidden {
		t.Fatalf("expected visible subscription, got %+v", sub)
	}
}

func TestRemoveSubscriptionIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	follower := createTestUser(t, s, "follower@example.com")

	// Never-subscribed, nonexistent calendar: both removals succeed.
	calID := uuid.New()
	if err := s.RemoveSubscription(follower.ID, calID); err != nil {
		t.Fatalf("first RemoveSubscription: %v", err)
	}
	if err := s.RemoveSubscription(follower.ID, calID); err != nil {
		t.Fatalf("second RemoveSubscription: %v", err)
	}
}

func TestListSubscribedCalendarsHiddenFlag(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	owner := createTestUser(t, s, "owner@example.com")
	follower := createTestUser(t, s, "follower@example.com")
	visible := createTestCalendar(t, s, owner)
	hidden := createTestCalendar(t, s, owner)

	if err := s.AddSubscription(follower.ID, visible.ID); err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}
	if err := s.SetSubscriptionHidden(follower.ID, hidden.ID, true); err != nil {
		t.Fatalf("SetSubscriptionHidden: %v", err)
	}

	calendars, err := s.ListSubscribedCalendars(follower.ID, false)
	if err != nil {
		t.Fatalf("ListSubscribedCalendars: %v", err)
	}
	if len(calendars) != 1 || calendars[0].ID != visible.ID {
		t.Fatalf("expected only the visible calendar, got %d", len(calendars))
	}

	calendars, err = s.ListSubscribedCalendars(follower.ID, true)
	if err != nil {
		t.Fatalf("ListSubscribedCalendars(includeHidden): %v", err)
	}
	if len(calendars) != 2 {
		t.Fatalf("expected both calendars with includeHidden, got %d", len(calendars))
	}
}

func TestDeleteCalendarCascades(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	owner := createTestUser(t, s, "owner@example.com")
	member := createTestUser(t, s, "member@example.com")
	cal := createTestCalendar(t, s, owner)
	event := createTestEvent(t, s, cal, "meeting", time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))

	if err := s.AddCalendarShare(cal.ID, member.ID); err != nil {
		t.Fatalf("AddCalendarShare: %v", err)
	}
	if err := s.AddSubscription(member.ID, cal.ID); err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}
	if err := s.AddEventShare(event.ID, member.ID); err != nil {
		t.Fatalf("AddEventShare: %v", err)
	}

	if err := s.DeleteCalendar(cal.ID); err != nil {
		t.Fatalf("DeleteCalendar: %v", err)
	}

	// Everything referencing the calendar, directly or through its
	// events, goes with it.
	if got, _ := s.GetEvent(event.ID); got != nil {
		t.Error("expected event to cascade")
	}
	if exists, _ := s.CalendarShareExists(cal.ID, member.ID); exists {
		t.Error("expected calendar share to cascade")
	}
	if sub, _ := s.GetSubscription(member.ID, cal.ID); sub != nil {
		t.Error("expected subscription to cascade")
	}
	if exists, _ := s.EventShareExists(event.ID, member.ID); exists {
		t.Error("expected event share to cascade")
	}
}

func TestListEventsByCalendarRangeAndOrder(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	owner := createTestUser(t, s, "owner@example.com")
	cal := createTestCalendar(t, s, owner)

	at := func(hour int) time.Time { return time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC) }
	createTestEvent(t, s, cal, "late", at(15))
	createTestEvent(t, s, cal, "early", at(9))
	createTestEvent(t, s, cal, "mid", at(12))

	events, err := s.ListEventsByCalendar(cal.ID, nil, nil)
	if err != nil {
		t.Fatalf("ListEventsByCalendar: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Title != "early" || events[1].Title != "mid" || events[2].Title != "late" {
		t.Errorf("wrong order: %s, %s, %s", events[0].Title, events[1].Title, events[2].Title)
	}

	// Bounds are inclusive on both ends.
	from, to := at(9), at(12)
	events, err = s.ListEventsByCalendar(cal.ID, &from, &to)
	if err != nil {
		t.Fatalf("ListEventsByCalendar(range): %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events in range, got %d", len(events))
	}
}

func TestFirstCalendarByOwner(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	owner := createTestUser(t, s, "owner@example.com")

	cal, err := s.FirstCalendarByOwner(owner.ID)
	if err != nil {
		t.Fatalf("FirstCalendarByOwner: %v", err)
	}
	if cal != nil {
		t.Fatalf("expected nil with no calendars, got %+v", cal)
	}

	first := createTestCalendar(t, s, owner)
	createTestCalendar(t, s, owner)

	cal, err = s.FirstCalendarByOwner(owner.ID)
	if err != nil {
		t.Fatalf("FirstCalendarByOwner: %v", err)
	}
	if cal == nil || cal.ID != first.ID {
		t.Fatalf("expected oldest calendar %s, got %+v", first.ID, cal)
	}
}

func TestImportedEventLookup(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)

	owner := createTestUser(t, s, "owner@example.com")
	cal := createTestCalendar(t, s, owner)

	e := &domain.Event{
		ID:          uuid.New(),
		CalendarID:  cal.ID,
		OwnerUserID: owner.ID,
		Title:       "imported",
		StartAt:     time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		EndAt:       time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		Visibility:  domain.EventPrivate,
	}
	if err := s.CreateImportedEvent(e, "uid-1@remote"); err != nil {
		t.Fatalf("CreateImportedEvent: %v", err)
	}

	got, err := s.GetEventByCalDAVUID(cal.ID, "uid-1@remote")
	if err != nil {
		t.Fatalf("GetEventByCalDAVUID: %v", err)
	}
	if got == nil || got.ID != e.ID {
		t.Fatalf("lookup by UID = %+v, want id %s", got, e.ID)
	}

	// Unknown UID and empty UID both come back empty, not as an error.
	if got, _ := s.GetEventByCalDAVUID(cal.ID, "unknown"); got != nil {
		t.Error("expected nil for unknown UID")
	}
	if got, _ := s.GetEventByCalDAVUID(cal.ID, ""); got != nil {
		t.Error("expected nil for empty UID")
	}
}
