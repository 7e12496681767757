package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"calshare/config"
	"calshare/internal/access"
	"calshare/internal/clients/caldav"
	"calshare/internal/notify"
	"calshare/internal/scheduler"
	"calshare/internal/server"
	"calshare/internal/service"
	"calshare/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(os.Getenv("CALSHARE_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	resolver := access.NewResolver(store)

	userSvc := service.NewUserService(store)
	calendarSvc := service.NewCalendarService(store, resolver)
	eventSvc := service.NewEventService(store, resolver)
	importSvc := service.NewImportService(store, time.Duration(cfg.HorizonDays)*24*time.Hour)

	srv := server.New(userSvc, calendarSvc, eventSvc)

	sched := scheduler.New(cfg, store, eventSvc, importSvc)
	sched.SetFeeds(buildFeeds(cfg))

	if cfg.Telegram.Token != "" {
		sender, err := notify.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			log.Fatalf("Failed to init telegram: %v", err)
		}
		sched.SetSender(sender)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	}

	log.Println("Stopped")
}

func buildFeeds(cfg *config.Config) []service.Feed {
	var feeds []service.Feed
	for _, fc := range cfg.Feeds {
		calendarID, err := uuid.Parse(fc.CalendarID)
		if err != nil {
			log.Printf("Skipping feed %s: bad calendar_id: %v", fc.URL, err)
			continue
		}
		client := caldav.NewClient(fc.URL, fc.Username, fc.Password)

		collection := fc.Collection
		if collection == "" {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			collections, err := client.DiscoverCollections(ctx)
			cancel()
			if err != nil || len(collections) == 0 {
				log.Printf("Skipping feed %s: no collection configured and discovery failed: %v", fc.URL, err)
				continue
			}
			collection = collections[0].Path
			log.Printf("Feed %s: discovered collection %s", fc.URL, collection)
		}

		feeds = append(feeds, service.Feed{
			Client:         client,
			CollectionPath: collection,
			CalendarID:     calendarID,
		})
	}
	return feeds
}
