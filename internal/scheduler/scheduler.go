package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"calshare/config"
	"calshare/internal/domain"
	"calshare/internal/service"
	"calshare/internal/storage"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Scheduler runs the background jobs: the daily agenda digest and the
// CalDAV feed imports.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	storage  *storage.Storage
	events   *service.EventService
	importer *service.ImportService
	feeds    []service.Feed
	sender   MessageSender
}

func New(cfg *config.Config, store *storage.Storage, events *service.EventService, importer *service.ImportService) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Timezone)),
		cfg:      cfg,
		storage:  store,
		events:   events,
		importer: importer,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) SetFeeds(feeds []service.Feed) {
	s.feeds = feeds
}

// digestSpec turns a local "HH:MM" into a cron expression.
func digestSpec(hhmm string) (string, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil {
		return "", fmt.Errorf("digest time %q: %w", hhmm, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("digest time %q out of range", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	spec, err := digestSpec(s.cfg.DigestTime)
	if err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(spec, s.sendDigests); err != nil {
		return fmt.Errorf("add digest job: %w", err)
	}

	if len(s.feeds) > 0 {
		if _, err := s.cron.AddFunc(s.cfg.SyncCron, s.syncFeeds); err != nil {
			return fmt.Errorf("add feed sync job: %w", err)
		}
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, digest: %s, feeds: %d)",
		s.cfg.TimezoneName, s.cfg.DigestTime, len(s.feeds))

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) sendDigests() {
	if s.sender == nil {
		return
	}
	for _, target := range s.cfg.DigestTargets {
		if err := s.sendDigestTo(target); err != nil {
			log.Printf("digest for %s: %v", target.Email, err)
		}
	}
}

func (s *Scheduler) sendDigestTo(target config.DigestTarget) error {
	user, err := s.storage.GetUserByEmail(target.Email)
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive {
		return fmt.Errorf("no active user for %s", target.Email)
	}

	agenda, err := s.events.AgendaForOwner(user, time.Now().In(s.cfg.Timezone))
	if err != nil {
		return err
	}
	return s.sender.SendMessage(target.ChatID, FormatAgenda(agenda, s.cfg.Timezone))
}

// FormatAgenda renders the digest message body.
func FormatAgenda(agenda []domain.EventView, tz *time.Location) string {
	if len(agenda) == 0 {
		return "No events today."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today: %d event(s)\n", len(agenda))
	for _, view := range agenda {
		if view.AllDay {
			fmt.Fprintf(&b, "- all day: %s\n", view.Title)
			continue
		}
		fmt.Fprintf(&b, "- %s-%s: %s\n",
			view.StartAt.In(tz).Format("15:04"),
			view.EndAt.In(tz).Format("15:04"),
			view.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Scheduler) syncFeeds() {
	for _, feed := range s.feeds {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if _, err := s.importer.SyncFeed(ctx, feed); err != nil {
			log.Printf("sync feed %s: %v", feed.CollectionPath, err)
		}
		cancel()
	}
}
