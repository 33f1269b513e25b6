package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/config"
)

// Warmer builds samples ahead of requests.
type Warmer interface {
	Warm(ctx context.Context, lat, lon float64, month, day int, variables []climate.Variable) error
}

// Scheduler periodically pre-builds today's samples for configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    Warmer
	locations []config.WarmLocation
	variables []climate.Variable
	interval  time.Duration
	now       func() time.Time
}

// New creates a new Scheduler.
func New(locations []config.WarmLocation, variables []climate.Variable, interval time.Duration, warmer Warmer) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		warmer:    warmer,
		locations: locations,
		variables: variables,
		interval:  interval,
		now:       time.Now,
	}
}

// Start schedules the warm-up job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 || len(s.variables) == 0 {
		log.Println("scheduler: no warm-up locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 24 * 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce warms every configured location for today's calendar day (UTC).
// Locations are processed one after another so the archive sees one sweep at a time.
func (s *Scheduler) RunOnce() {
	today := s.now().UTC()
	log.Printf("scheduler: warming %d locations for %s", len(s.locations), today.Format("01-02"))

	for _, loc := range s.locations {
		if err := s.warmer.Warm(context.Background(), loc.Latitude, loc.Longitude, int(today.Month()), today.Day(), s.variables); err != nil {
			log.Printf("scheduler: warm-up failed for %.4f,%.4f: %v", loc.Latitude, loc.Longitude, err)
		}
	}
	log.Println("scheduler: completed warm-up job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
