package service

import (
	"fmt"

	"github.com/google/uuid"

	"calshare/internal/access"
	"calshare/internal/domain"
	"calshare/internal/storage"
)

// CalendarService handles calendar CRUD, sharing and subscriptions.
// Every read goes through the access resolver; every mutation except
// subscriptions is gated on ownership.
type CalendarService struct {
	storage  *storage.Storage
	resolver *access.Resolver
}

func NewCalendarService(s *storage.Storage, resolver *access.Resolver) *CalendarService {
	return &CalendarService{storage: s, resolver: resolver}
}

type CalendarCreate struct {
	Name       string
	Visibility domain.CalendarVisibility
}

func (s *CalendarService) Create(actor *domain.User, input CalendarCreate) (*domain.Calendar, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, fmt.Errorf("calendar name: %w", domain.ErrInvalid)
	}
	if input.Visibility == "" {
		input.Visibility = domain.CalendarPrivate
	}
	if !input.Visibility.Valid() {
		return nil, fmt.Errorf("visibility %q: %w", input.Visibility, domain.ErrInvalid)
	}

	cal := &domain.Calendar{
		ID:          uuid.New(),
		OwnerUserID: actor.ID,
		Name:        input.Name,
		Visibility:  input.Visibility,
	}
	if err := s.storage.CreateCalendar(cal); err != nil {
		return nil, err
	}
	return cal, nil
}

func (s *CalendarService) Get(actor *domain.User, id uuid.UUID) (*domain.Calendar, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	cal, err := s.storage.GetCalendar(id)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, fmt.Errorf("calendar %s: %w", id, domain.ErrNotFound)
	}
	level, err := s.resolver.CalendarAccess(actor, cal)
	if err != nil {
		return nil, err
	}
	if !level.CanView() {
		return nil, domain.ErrForbidden
	}
	return cal, nil
}

// requireOwned loads a calendar and verifies the actor holds Owner access.
// Public or Shared access is not enough for any calendar mutation.
func (s *CalendarService) requireOwned(actor *domain.User, id uuid.UUID) (*domain.Calendar, error) {
	cal, err := s.storage.GetCalendar(id)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, fmt.Errorf("calendar %s: %w", id, domain.ErrNotFound)
	}
	level, err := s.resolver.CalendarAccess(actor, cal)
	if err != nil {
		return nil, err
	}
	if !level.CanMutate() {
		return nil, domain.ErrForbidden
	}
	return cal, nil
}

type CalendarUpdate struct {
	Name       *string
	Visibility *domain.CalendarVisibility
}

func (s *CalendarService) Update(actor *domain.User, id uuid.UUID, input CalendarUpdate) (*domain.Calendar, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	cal, err := s.requireOwned(actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("calendar name: %w", domain.ErrInvalid)
		}
		cal.Name = *input.Name
	}
	if input.Visibility != nil {
		if !input.Visibility.Valid() {
			return nil, fmt.Errorf("visibility %q: %w", *input.Visibility, domain.ErrInvalid)
		}
		cal.Visibility = *input.Visibility
	}
	if err := s.storage.UpdateCalendar(cal); err != nil {
		return nil, err
	}
	return cal, nil
}

// Delete removes a calendar together with its events, shares and
// subscriptions (the store cascades).
func (s *CalendarService) Delete(actor *domain.User, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.requireOwned(actor, id); err != nil {
		return err
	}
	return s.storage.DeleteCalendar(id)
}

// Share grants view access to userID. Sharing twice is a no-op.
func (s *CalendarService) Share(actor *domain.User, calendarID, userID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.requireOwned(actor, calendarID); err != nil {
		return err
	}
	target, err := s.storage.GetUser(userID)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return s.storage.AddCalendarShare(calendarID, userID)
}

// Unshare revokes a share. Absence is success.
func (s *CalendarService) Unshare(actor *domain.User, calendarID, userID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.requireOwned(actor, calendarID); err != nil {
		return err
	}
	return s.storage.RemoveCalendarShare(calendarID, userID)
}

// Subscribe follows a calendar. Any authenticated actor may subscribe to
// any existing calendar; subscription grants no read access. Subscribing
// twice is a no-op.
func (s *CalendarService) Subscribe(actor *domain.User, calendarID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	cal, err := s.storage.GetCalendar(calendarID)
	if err != nil {
		return err
	}
	if cal == nil {
		return fmt.Errorf("calendar %s: %w", calendarID, domain.ErrNotFound)
	}
	return s.storage.AddSubscription(actor.ID, calendarID)
}

// Unsubscribe is idempotent: unsubscribing from a calendar the actor
// never followed, or from one that no longer exists, succeeds.
func (s *CalendarService) Unsubscribe(actor *domain.User, calendarID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.storage.RemoveSubscription(actor.ID, calendarID)
}

// SetSubscriptionHidden upserts the hidden flag: following with the flag
// when no subscription exists yet, updating in place otherwise.
func (s *CalendarService) SetSubscriptionHidden(actor *domain.User, calendarID uuid.UUID, hidden bool) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	cal, err := s.storage.GetCalendar(calendarID)
	if err != nil {
		return err
	}
	if cal == nil {
		return fmt.Errorf("calendar %s: %w", calendarID, domain.ErrNotFound)
	}
	return s.storage.SetSubscriptionHidden(actor.ID, calendarID, hidden)
}

// ListVisible returns the actor's aggregated view: calendars they own
// followed by calendars they subscribe to, minus hidden subscriptions.
func (s *CalendarService) ListVisible(actor *domain.User) ([]*domain.Calendar, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	owned, err := s.storage.ListCalendarsByOwner(actor.ID)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.storage.ListSubscribedCalendars(actor.ID, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(owned))
	out := make([]*domain.Calendar, 0, len(owned)+len(subscribed))
	for _, c := range owned {
		seen[c.ID] = true
		out = append(out, c)
	}
	for _, c := range subscribed {
		if !seen[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}
