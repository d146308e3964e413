package services

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

// reminderWindow is how far ahead the sweeper looks for events worth a
// scheduled reminder
const reminderWindow = time.Hour

// Sweeper periodically re-processes pending notifications and creates
// scheduled reminders for upcoming events. Trigger idempotence makes
// re-scanning the same events safe.
type Sweeper struct {
	db       *mongo.Client
	svc      *NotificationService
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweeper creates a sweeper. The interval comes from SWEEP_INTERVAL_SECONDS
// and defaults to 60 seconds.
func NewSweeper(db *mongo.Client, svc *NotificationService) *Sweeper {
	interval := 60 * time.Second
	if secStr := os.Getenv("SWEEP_INTERVAL_SECONDS"); secStr != "" {
		if sec, err := strconv.Atoi(secStr); err == nil && sec > 0 {
			interval = time.Duration(sec) * time.Second
		}
	}

	return &Sweeper{
		db:       db,
		svc:      svc,
		interval: interval,
	}
}

// Start launches the sweep loop in a goroutine
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
	log.Printf("Notification sweeper started (interval %s)", s.interval)
}

// Stop cancels the loop and waits for the current tick to finish
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if processed, err := s.svc.ProcessPending(ctx); err != nil {
		log.Printf("Sweep error: %v", err)
	} else if processed > 0 {
		log.Printf("Sweep re-processed %d pending notifications", processed)
	}

	s.remindUpcomingEvents(ctx)
}

// remindUpcomingEvents creates a reminder notification for every published
// event starting inside the reminder window. The reminder trigger is keyed
// by event ID, so events already reminded short-circuit in the store.
func (s *Sweeper) remindUpcomingEvents(ctx context.Context) {
	now := time.Now()
	events := config.GetCollection(s.db, "events")

	cursor, err := events.Find(ctx, bson.M{
		"isPublished": true,
		"startsAt": bson.M{
			"$gt":  now,
			"$lte": now.Add(reminderWindow),
		},
	})
	if err != nil {
		log.Printf("Error querying upcoming events: %v", err)
		return
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var event models.Event
		if err := cursor.Decode(&event); err != nil {
			log.Printf("Error decoding event: %v", err)
			continue
		}

		if _, err := s.svc.NotifyEventReminder(ctx, &event); err != nil {
			log.Printf("Error creating reminder for event %s: %v", event.ID.Hex(), err)
		}
	}
	if err := cursor.Err(); err != nil {
		log.Printf("Upcoming events cursor error: %v", err)
	}
}
