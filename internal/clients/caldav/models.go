package caldav

import "time"

// Collection is a remote CalDAV calendar collection.
type Collection struct {
	Path        string
	DisplayName string
}

// RemoteEvent is one VEVENT fetched from a remote collection.
type RemoteEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
	RRule       string
}
