package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

// Scheduler periodically refreshes the event store for the configured
// location using the default aggregation window.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *astro.Service
	location  astro.Location
	interval  time.Duration
}

// New creates a new Scheduler.
func New(location astro.Location, interval time.Duration, service *astro.Service) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		location:  location,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run fires immediately so a fresh deployment has data to serve.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	_, err := s.scheduler.Every(interval).StartImmediately().Do(func() {
		log.Println("scheduler: running aggregation run")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		summary, err := s.service.Refresh(ctx, s.location, time.Time{}, time.Time{})
		if err != nil {
			log.Printf("scheduler: refresh failed for %s: %v", s.location.Key(), err)
			return
		}
		log.Printf("scheduler: stored %d events for %s", summary.Stored, s.location.Key())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
