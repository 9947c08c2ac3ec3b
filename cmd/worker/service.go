package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/artfolio/storefront-backend/pkg/logger"
)

type runner interface {
	Run(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]pinger
	Consumer     runner
	Maintenance  runner
}

// Service runs the order e-mail consumer next to the retention scheduler.
// Either one stopping with an error stops the other.
type Service struct {
	logg        *logger.Logger
	deps        map[string]pinger
	consumer    runner
	maintenance runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		logg:        params.Logger,
		deps:        params.Dependencies,
		consumer:    params.Consumer,
		maintenance: params.Maintenance,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, dep := range s.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", name), "worker.dependency.unavailable", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "worker.dependencies.ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.consumer.Run(gctx)
	})
	if s.maintenance != nil {
		g.Go(func() error {
			return s.maintenance.Run(gctx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}
