package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
)

const defaultInterval = 6 * time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.PipelineMetrics
	Interval time.Duration
}

func (p ServiceParams) validate() error {
	var err error
	if p.Logger == nil {
		err = multierr.Append(err, errors.New("logger is required"))
	}
	if p.Lock == nil {
		err = multierr.Append(err, errors.New("lock is required"))
	}
	return err
}

// Service is the maintenance loop. Each tick, whichever worker holds the
// lease runs every registered job in order; the others skip the tick.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	metrics  *metrics.PipelineMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	s := &Service{
		logg:     params.Logger,
		jobs:     params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      time.Now,
	}
	if s.jobs == nil {
		s.jobs = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run starts with an immediate cycle and returns ctx.Err() once cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "maintenance.cycle.failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle only fails when the lease cannot be checked or the context ends;
// job failures are logged and counted but the remaining jobs still run.
func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("acquire maintenance lease: %w", err)
	case !held:
		s.logg.Debug(ctx, "maintenance.cycle.skipped")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "maintenance.lock.release_failed", err)
		}
	}()

	failed := 0
	jobs := s.jobs.Jobs()
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.runJob(ctx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"jobs": len(jobs), "failed": failed}), "maintenance.cycle.completed")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	ctx = s.logg.WithField(ctx, "job", name)

	start := s.now()
	err := runGuarded(ctx, job)
	elapsed := s.now().Sub(start)
	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())

	result := metrics.JobSucceeded
	if err != nil {
		result = metrics.JobFailed
	}
	s.metrics.ObserveJob(name, result, elapsed)

	if err != nil {
		s.logg.Error(ctx, "maintenance.job.failed", err)
		return false
	}
	s.logg.Info(ctx, "maintenance.job.completed")
	return true
}

// runGuarded turns a job panic into an error so one bad job cannot take the
// worker down.
func runGuarded(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}
