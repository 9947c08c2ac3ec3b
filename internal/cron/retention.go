package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/artfolio/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention       = 30 * 24 * time.Hour
	defaultNotificationRetention = 90 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedOutboxPurger interface {
	DeletePublishedBeforeTx(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type readNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRetentionJob drops outbox rows that were published longer ago than
// the retention window. Rows still pending or dead-lettered stay put.
type OutboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      publishedOutboxPurger
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo publishedOutboxPurger, retention time.Duration) (*OutboxRetentionJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &OutboxRetentionJob{logg: logg, db: db, repo: repo, retention: retention, now: time.Now}, nil
}

func (j *OutboxRetentionJob) Name() string { return "outbox-retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.DeletePublishedBeforeTx(tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("purge published outbox rows: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "maintenance.outbox.purged")
	return nil
}

// NotificationRetentionJob removes in-app notifications the customer read
// before the retention window. Unread ones are kept regardless of age.
type NotificationRetentionJob struct {
	logg      *logger.Logger
	repo      readNotificationPurger
	retention time.Duration
	now       func() time.Time
}

func NewNotificationRetentionJob(logg *logger.Logger, repo readNotificationPurger, retention time.Duration) (*NotificationRetentionJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if retention <= 0 {
		retention = defaultNotificationRetention
	}
	return &NotificationRetentionJob{logg: logg, repo: repo, retention: retention, now: time.Now}, nil
}

func (j *NotificationRetentionJob) Name() string { return "notification-retention" }

func (j *NotificationRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge read notifications: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "maintenance.notifications.purged")
	return nil
}
