// Package scheduler runs the per-business inbox polling jobs: an explicit
// registry keyed by business id with start/stop lifecycle.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/logging"
)

// PollFunc runs one poll cycle for a business.
type PollFunc func(ctx context.Context, business internal.BusinessRecord)

// Registry owns one recurring job per active business. Stopping a business
// removes its job; a cycle already running completes on its own.
type Registry struct {
	scheduler gocron.Scheduler
	poll      PollFunc
	log       zerolog.Logger

	mu   sync.Mutex
	jobs map[int64]uuid.UUID
}

func NewRegistry(poll PollFunc) (*Registry, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logging.NewGocronLogger()),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s.Start()

	return &Registry{
		scheduler: s,
		poll:      poll,
		log:       logging.Component("scheduler"),
		jobs:      map[int64]uuid.UUID{},
	}, nil
}

// StartBusiness schedules polling at the business's configured interval.
// Starting an already-scheduled business is a no-op.
func (r *Registry) StartBusiness(business internal.BusinessRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[business.ID]; ok {
		return nil
	}

	interval := business.PollIntervalMins
	if interval <= 0 {
		interval = 10
	}

	b := business
	job, err := r.scheduler.NewJob(
		gocron.DurationJob(time.Duration(interval)*time.Minute),
		gocron.NewTask(func() { r.poll(context.Background(), b) }),
		gocron.WithName(fmt.Sprintf("poll-business-%d", business.ID)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule business %d: %w", business.ID, err)
	}

	r.jobs[business.ID] = job.ID()
	r.log.Info().Int64("business", business.ID).Int("intervalMins", interval).Msg("polling started")
	return nil
}

// StopBusiness cancels the business's job. Unknown ids are a no-op.
func (r *Registry) StopBusiness(businessID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobID, ok := r.jobs[businessID]
	if !ok {
		return nil
	}
	delete(r.jobs, businessID)

	if err := r.scheduler.RemoveJob(jobID); err != nil {
		return fmt.Errorf("remove job for business %d: %w", businessID, err)
	}
	r.log.Info().Int64("business", businessID).Msg("polling stopped")
	return nil
}

// Active lists the business ids with a scheduled job.
func (r *Registry) Active() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int64, 0, len(r.jobs))
	for id := range r.jobs {
		out = append(out, id)
	}
	return out
}

// Sync reconciles the registry against the set of active businesses:
// missing jobs start, jobs for absent businesses stop.
func (r *Registry) Sync(businesses []internal.BusinessRecord) error {
	want := map[int64]bool{}
	for _, b := range businesses {
		want[b.ID] = true
		if err := r.StartBusiness(b); err != nil {
			return err
		}
	}
	for _, id := range r.Active() {
		if !want[id] {
			if err := r.StopBusiness(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Shutdown stops the scheduler and waits for running jobs to finish.
func (r *Registry) Shutdown() error {
	return r.scheduler.Shutdown()
}
