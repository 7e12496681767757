package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"calshare/internal/clients/caldav"
	"calshare/internal/domain"
	"calshare/internal/storage"
)

// FeedClient fetches events from one remote CalDAV endpoint.
type FeedClient interface {
	FetchEvents(ctx context.Context, collectionPath string, from, to time.Time) ([]caldav.RemoteEvent, error)
}

// Feed binds a remote collection to the local calendar it imports into.
type Feed struct {
	Client         FeedClient
	CollectionPath string
	CalendarID     uuid.UUID
}

// SyncResult counts what one feed sync did.
type SyncResult struct {
	Added   int
	Updated int
	Skipped int
}

// ImportService copies events from remote CalDAV feeds into local
// calendars. Imported events belong to the destination calendar's owner
// and default to private visibility; the access policy applies to them
// like to any other event.
type ImportService struct {
	storage *storage.Storage
	window  time.Duration
}

func NewImportService(s *storage.Storage, window time.Duration) *ImportService {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &ImportService{storage: s, window: window}
}

// SyncFeed fetches the feed's events from a week back to the configured
// horizon and upserts them by remote UID.
func (s *ImportService) SyncFeed(ctx context.Context, feed Feed) (*SyncResult, error) {
	cal, err := s.storage.GetCalendar(feed.CalendarID)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, fmt.Errorf("feed calendar %s: %w", feed.CalendarID, domain.ErrNotFound)
	}

	now := time.Now().UTC()
	remote, err := feed.Client.FetchEvents(ctx, feed.CollectionPath, now.Add(-7*24*time.Hour), now.Add(s.window))
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feed.CollectionPath, err)
	}

	result := &SyncResult{}
	for _, re := range remote {
		if re.Summary == "" || re.StartTime.IsZero() {
			result.Skipped++
			continue
		}

		existing, err := s.storage.GetEventByCalDAVUID(cal.ID, re.UID)
		if err != nil {
			return result, err
		}
		if existing == nil {
			event := &domain.Event{
				ID:          uuid.New(),
				CalendarID:  cal.ID,
				OwnerUserID: cal.OwnerUserID,
				Title:       re.Summary,
				Description: re.Description,
				Location:    re.Location,
				StartAt:     re.StartTime,
				EndAt:       re.EndTime,
				AllDay:      re.AllDay,
				Visibility:  domain.EventPrivate,
				RRule:       re.RRule,
			}
			if err := s.storage.CreateImportedEvent(event, re.UID); err != nil {
				return result, err
			}
			result.Added++
			continue
		}

		if !importChanged(existing, re) {
			result.Skipped++
			continue
		}
		existing.Title = re.Summary
		existing.Description = re.Description
		existing.Location = re.Location
		existing.StartAt = re.StartTime
		existing.EndAt = re.EndTime
		existing.AllDay = re.AllDay
		existing.RRule = re.RRule
		if err := s.storage.UpdateEvent(existing); err != nil {
			return result, err
		}
		result.Updated++
	}

	log.Printf("feed %s -> calendar %s: %d added, %d updated, %d skipped",
		feed.CollectionPath, cal.ID, result.Added, result.Updated, result.Skipped)
	return result, nil
}

func importChanged(local *domain.Event, remote caldav.RemoteEvent) bool {
	return local.Title != remote.Summary ||
		local.Description != remote.Description ||
		local.Location != remote.Location ||
		!local.StartAt.Equal(remote.StartTime) ||
		!local.EndAt.Equal(remote.EndTime) ||
		local.AllDay != remote.AllDay ||
		local.RRule != remote.RRule
}
