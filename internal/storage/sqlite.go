package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"calshare/internal/domain"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			role TEXT NOT NULL DEFAULT 'user',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS calendars (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			visibility TEXT NOT NULL DEFAULT 'private',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS calendar_shares (
			calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (calendar_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS calendar_subscriptions (
			subscriber_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
			is_hidden INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (subscriber_user_id, calendar_id)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
			owner_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			start_at DATETIME NOT NULL,
			end_at DATETIME NOT NULL,
			timezone TEXT NOT NULL DEFAULT '',
			all_day INTEGER NOT NULL DEFAULT 0,
			visibility TEXT NOT NULL DEFAULT 'private',
			rrule TEXT NOT NULL DEFAULT '',
			caldav_uid TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_shares (
			event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (event_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calendars_owner ON calendars(owner_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_calendar ON events(calendar_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_caldav ON events(calendar_id, caldav_uid)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_calendar ON calendar_subscriptions(calendar_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is the store rejecting a row that
// would break a UNIQUE or primary-key constraint. Idempotent-add paths
// treat this as "already exists" rather than an error, which is what makes
// concurrent check-then-insert races safe across service instances.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// === Users ===

func (s *Storage) CreateUser(u *domain.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, full_name, avatar_url, is_active, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.AvatarURL, u.IsActive, string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
	}
	return err
}

func (s *Storage) GetUser(id uuid.UUID) (*domain.User, error) {
	u := &domain.User{}
	var role string
	err := s.db.QueryRow(
		`SELECT id, email, full_name, avatar_url, is_active, role, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.IsActive, &role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	u.Role = domain.UserRole(role)
	return u, err
}

func (s *Storage) GetUserByEmail(email string) (*domain.User, error) {
	u := &domain.User{}
	var role string
	err := s.db.QueryRow(
		`SELECT id, email, full_name, avatar_url, is_active, role, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.IsActive, &role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	u.Role = domain.UserRole(role)
	return u, err
}

func (s *Storage) UpdateUser(u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE users SET full_name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		u.FullName, u.AvatarURL, u.UpdatedAt, u.ID,
	)
	return err
}

func (s *Storage) SetUserActive(id uuid.UUID, active bool) error {
	_, err := s.db.Exec(
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	return err
}

func (s *Storage) SetUserRole(id uuid.UUID, role domain.UserRole) error {
	_, err := s.db.Exec(
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), id,
	)
	return err
}

// === Calendars ===

func (s *Storage) CreateCalendar(c *domain.Calendar) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO calendars (id, owner_user_id, name, visibility, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerUserID, c.Name, string(c.Visibility), c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *Storage) GetCalendar(id uuid.UUID) (*domain.Calendar, error) {
	c := &domain.Calendar{}
	var visibility string
	err := s.db.QueryRow(
		`SELECT id, owner_user_id, name, visibility, created_at, updated_at
		 FROM calendars WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.OwnerUserID, &c.Name, &visibility, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	c.Visibility = domain.CalendarVisibility(visibility)
	return c, err
}

func (s *Storage) UpdateCalendar(c *domain.Calendar) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE calendars SET name = ?, visibility = ?, updated_at = ? WHERE id = ?`,
		c.Name, string(c.Visibility), c.UpdatedAt, c.ID,
	)
	return err
}

// DeleteCalendar removes the calendar row. Its events, shares and
// subscriptions go with it through the ON DELETE CASCADE foreign keys.
func (s *Storage) DeleteCalendar(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM calendars WHERE id = ?`, id)
	return err
}

func (s *Storage) ListCalendarsByOwner(ownerID uuid.UUID) ([]*domain.Calendar, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_user_id, name, visibility, created_at, updated_at
		 FROM calendars WHERE owner_user_id = ? ORDER BY created_at, id`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calendars []*domain.Calendar
	for rows.Next() {
		c := &domain.Calendar{}
		var visibility string
		if err := rows.Scan(&c.ID, &c.OwnerUserID, &c.Name, &visibility, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Visibility = domain.CalendarVisibility(visibility)
		calendars = append(calendars, c)
	}
	return calendars, rows.Err()
}

// FirstCalendarByOwner returns the actor's oldest calendar, or nil when
// they own none. Used as the default destination for event copies.
func (s *Storage) FirstCalendarByOwner(ownerID uuid.UUID) (*domain.Calendar, error) {
	calendars, err := s.ListCalendarsByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if len(calendars) == 0 {
		return nil, nil
	}
	return calendars[0], nil
}

// ListSubscribedCalendars returns the calendars the user follows, oldest
// subscription target first. Hidden subscriptions are skipped unless
// includeHidden is set.
func (s *Storage) ListSubscribedCalendars(userID uuid.UUID, includeHidden bool) ([]*domain.Calendar, error) {
	query := `SELECT c.id, c.owner_user_id, c.name, c.visibility, c.created_at, c.updated_at
		FROM calendars c
		JOIN calendar_subscriptions sub ON sub.calendar_id = c.id
		WHERE sub.subscriber_user_id = ?`
	if !includeHidden {
		query += ` AND sub.is_hidden = 0`
	}
	query += ` ORDER BY c.created_at, c.id`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calendars []*domain.Calendar
	for rows.Next() {
		c := &domain.Calendar{}
		var visibility string
		if err := rows.Scan(&c.ID, &c.OwnerUserID, &c.Name, &visibility, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Visibility = domain.CalendarVisibility(visibility)
		calendars = append(calendars, c)
	}
	return calendars, rows.Err()
}

// === Calendar shares ===

func (s *Storage) AddCalendarShare(calendarID, userID uuid.UUID) error {
	_, err := s.db.Exec(
		`INSERT INTO calendar_shares (calendar_id, user_id) VALUES (?, ?)`,
		calendarID, userID,
	)
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (s *Storage) RemoveCalendarShare(calendarID, userID uuid.UUID) error {
	_, err := s.db.Exec(
		`DELETE FROM calendar_shares WHERE calendar_id = ? AND user_id = ?`,
		calendarID, userID,
	)
	return err
}

func (s *Storage) CalendarShareExists(calendarID, userID uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM calendar_shares WHERE calendar_id = ? AND user_id = ?`,
		calendarID, userID,
	).Scan(&count)
	return count > 0, err
}

// === Calendar subscriptions ===

func (s *Storage) AddSubscription(subscriberID, calendarID uuid.UUID) error {
	_, err := s.db.Exec(
		`INSERT INTO calendar_subscriptions (subscriber_user_id, calendar_id, is_hidden) VALUES (?, ?, 0)`,
		subscriberID, calendarID,
	)
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (s *Storage) RemoveSubscription(subscriberID, calendarID uuid.UUID) error {
	_, err := s.db.Exec(
		`DELETE FROM calendar_subscriptions WHERE subscriber_user_id = ? AND calendar_id = ?`,
		subscriberID, calendarID,
	)
	return err
}

func (s *Storage) GetSubscription(subscriberID, calendarID uuid.UUID) (*domain.CalendarSubscription, error) {
	sub := &domain.CalendarSubscription{}
	err := s.db.QueryRow(
		`SELECT subscriber_user_id, calendar_id, is_hidden
		 FROM calendar_subscriptions WHERE subscriber_user_id = ? AND calendar_id = ?`,
		subscriberID, calendarID,
	).Scan(&sub.SubscriberUserID, &sub.CalendarID, &sub.IsHidden)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

// SetSubscriptionHidden upserts: the subscription is created with the given
// flag when absent, updated in place otherwise.
func (s *Storage) SetSubscriptionHidden(subscriberID, calendarID uuid.UUID, hidden bool) error {
	_, err := s.db.Exec(
		`INSERT INTO calendar_subscriptions (subscriber_user_id, calendar_id, is_hidden) VALUES (?, ?, ?)
		 ON CONFLICT (subscriber_user_id, calendar_id) DO UPDATE SET is_hidden = excluded.is_hidden`,
		subscriberID, calendarID, hidden,
	)
	return err
}

// === Events ===

const eventColumns = `id, calendar_id, owner_user_id, title, description, location,
	start_at, end_at, timezone, all_day, visibility, rrule, caldav_uid, created_at, updated_at`

func (s *Storage) scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var visibility, caldavUID string
	err := row.Scan(
		&e.ID, &e.CalendarID, &e.OwnerUserID, &e.Title, &e.Description, &e.Location,
		&e.StartAt, &e.EndAt, &e.Timezone, &e.AllDay, &visibility, &e.RRule, &caldavUID,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Visibility = domain.EventVisibility(visibility)
	return e, nil
}

func (s *Storage) CreateEvent(e *domain.Event) error {
	return s.createEvent(e, "")
}

// CreateImportedEvent stores an event carrying the UID of the remote
// CalDAV object it was imported from, so later syncs can find it again.
func (s *Storage) CreateImportedEvent(e *domain.Event, caldavUID string) error {
	return s.createEvent(e, caldavUID)
}

func (s *Storage) createEvent(e *domain.Event, caldavUID string) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CalendarID, e.OwnerUserID, e.Title, e.Description, e.Location,
		e.StartAt, e.EndAt, e.Timezone, e.AllDay, string(e.Visibility), e.RRule, caldavUID,
		e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (s *Storage) GetEvent(id uuid.UUID) (*domain.Event, error) {
	e, err := s.scanEvent(s.db.QueryRow(
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetEventByCalDAVUID looks up an imported event by its remote object UID
// within one calendar. Returns nil when the UID has not been seen.
func (s *Storage) GetEventByCalDAVUID(calendarID uuid.UUID, caldavUID string) (*domain.Event, error) {
	if caldavUID == "" {
		return nil, nil
	}
	e, err := s.scanEvent(s.db.QueryRow(
		`SELECT `+eventColumns+` FROM events WHERE calendar_id = ? AND caldav_uid = ?`,
		calendarID, caldavUID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Storage) UpdateEvent(e *domain.Event) error {
	e.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, description = ?, location = ?, start_at = ?, end_at = ?,
		 timezone = ?, all_day = ?, visibility = ?, rrule = ?, updated_at = ? WHERE id = ?`,
		e.Title, e.Description, e.Location, e.StartAt, e.EndAt,
		e.Timezone, e.AllDay, string(e.Visibility), e.RRule, e.UpdatedAt, e.ID,
	)
	return err
}

// DeleteEvent removes the event row; its event shares cascade with it.
func (s *Storage) DeleteEvent(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	return err
}

// ListEventsByCalendar returns the calendar's events whose start instant
// falls inside [from, to] (either bound may be nil), ordered ascending by
// start_at with the id as a deterministic tiebreak.
func (s *Storage) ListEventsByCalendar(calendarID uuid.UUID, from, to *time.Time) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE calendar_id = ?`
	args := []any{calendarID}
	if from != nil {
		query += ` AND start_at >= ?`
		args = append(args, from.UTC())
	}
	if to != nil {
		query += ` AND start_at <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY start_at, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := s.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// === Event shares ===

func (s *Storage) AddEventShare(eventID, userID uuid.UUID) error {
	_, err := s.db.Exec(
		`INSERT INTO event_shares (event_id, user_id) VALUES (?, ?)`,
		eventID, userID,
	)
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (s *Storage) RemoveEventShare(eventID, userID uuid.UUID) error {
	_, err := s.db.Exec(
		`DELETE FROM event_shares WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	return err
}

func (s *Storage) EventShareExists(eventID, userID uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM event_shares WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	).Scan(&count)
	return count > 0, err
}
