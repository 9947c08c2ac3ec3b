package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/pagination"
)

// Repository is the notifications table. Every read and update is scoped by
// user_uid so one customer can never see or touch another's rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIfAbsent(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, q listQuery) ([]models.Notification, error)
	CountUnread(ctx context.Context, uid string) (int64, error)
	MarkRead(ctx context.Context, uid string, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, uid string, at time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type listQuery struct {
	uid        string
	limit      int
	after      *pagination.Cursor
	unreadOnly bool
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) owned(ctx context.Context, uid string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_uid = ?", uid)
}

// CreateIfAbsent reports false when a row with the same id already exists,
// which is how redelivered events stay single.
func (r *gormRepository) CreateIfAbsent(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(notification)
	return res.RowsAffected > 0, res.Error
}

func (r *gormRepository) List(ctx context.Context, q listQuery) ([]models.Notification, error) {
	tx := r.owned(ctx, q.uid)
	if q.unreadOnly {
		tx = tx.Where("read_at IS NULL")
	}
	var rows []models.Notification
	err := tx.Scopes(pagination.Scope(q.after, q.limit)).Find(&rows).Error
	return rows, err
}

func (r *gormRepository) CountUnread(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := r.owned(ctx, uid).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// MarkRead returns false when uid owns no notification with that id. Marking
// an already read notification is a no-op that still reports true.
func (r *gormRepository) MarkRead(ctx context.Context, uid string, id uuid.UUID, at time.Time) (bool, error) {
	var row models.Notification
	err := r.owned(ctx, uid).Select("id", "read_at").Where("id = ?", id).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, err
	case row.ReadAt != nil:
		return true, nil
	}
	return true, r.owned(ctx, uid).Where("id = ? AND read_at IS NULL", id).UpdateColumn("read_at", at).Error
}

func (r *gormRepository) MarkAllRead(ctx context.Context, uid string, at time.Time) (int64, error) {
	res := r.owned(ctx, uid).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore is the retention purge; unread rows are never removed.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
