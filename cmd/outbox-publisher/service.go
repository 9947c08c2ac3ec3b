package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
	"github.com/artfolio/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	Metrics          *metrics.PipelineMetrics
	PublisherFactory publisherFactory
}

func (p ServiceParams) validate() error {
	var errs error
	required := []struct {
		missing bool
		name    string
	}{
		{p.Config == nil, "config"},
		{p.Logger == nil, "logger"},
		{p.DB == nil, "database client"},
		{p.PubSub == nil, "pubsub client"},
		{p.Repository == nil, "outbox repository"},
		{p.Registry == nil, "event registry"},
		{p.DLQRepository == nil, "dlq repository"},
	}
	for _, dep := range required {
		if dep.missing {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", dep.name))
		}
	}
	return errs
}

// Service drains outbox_events onto pub/sub topics. Each poll claims a batch
// under a transaction, so concurrent publishers never see the same rows.
type Service struct {
	logg      *logger.Logger
	db        dbClient
	pubsub    pubSubClient
	repo      outboxRepository
	registry  registryResolver
	dlq       dlqRepository
	metrics   *metrics.PipelineMetrics
	publishTo publisherFactory

	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	cfg := params.Config.Outbox
	svc := &Service{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		repo:        params.Repository,
		registry:    params.Registry,
		dlq:         params.DLQRepository,
		metrics:     params.Metrics,
		publishTo:   params.PublisherFactory,
		batchSize:   positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		poll:        time.Duration(positiveOr(cfg.PollIntervalMS, int(defaultPoll/time.Millisecond))) * time.Millisecond,
		now:         time.Now,
	}
	if svc.publishTo == nil {
		svc.publishTo = topicPublishers(params.PubSub)
	}
	return svc, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": s.db.Ping,
		"pubsub":   s.pubsub.Ping,
	}
	for _, name := range []string{"database", "pubsub"} {
		if err := checks[name](ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", name), "outbox.publisher.dependency_unavailable", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}

// Run polls until ctx is cancelled. Empty polls wait a full interval; failed
// polls back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"batch_size":   s.batchSize,
		"max_attempts": s.maxAttempts,
		"poll_ms":      s.poll.Milliseconds(),
	}), "outbox.publisher.started")

	wait := newBackoff(s.poll, maxBackoff)
	for {
		if ctx.Err() != nil {
			s.logg.Info(ctx, "outbox.publisher.stopped")
			return ctx.Err()
		}

		processed, err := s.processBatch(ctx)
		var delay time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch.failed", err)
			delay = wait.fail()
		case processed:
			wait.reset()
			continue
		default:
			delay = wait.reset()
		}

		if err := sleepCtx(ctx, withJitter(delay)); err != nil {
			if errors.Is(err, context.Canceled) {
				s.logg.Info(ctx, "outbox.publisher.stopped")
			}
			return err
		}
	}
}
