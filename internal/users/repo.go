package users

import (
	"context"
	"errors"
	"time"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes profile, cart and favorite persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProfile returns nil without error when the profile does not exist.
func (r *Repository) FindProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).First(&profile, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates the profile or refreshes its e-mail.
func (r *Repository) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.Assignments(map[string]any{"email": profile.Email, "updated_at": time.Now().UTC()}),
	}).Create(profile).Error
}

// ListCartEntries returns the cart in insertion order.
func (r *Repository) ListCartEntries(ctx context.Context, uid string) ([]models.CartEntry, error) {
	var entries []models.CartEntry
	err := r.db.WithContext(ctx).
		Where("user_uid = ?", uid).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SetCartQuantity upserts the entry for (uid, productID). A quantity below 1
// removes it.
func (r *Repository) SetCartQuantity(ctx context.Context, uid string, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return r.db.WithContext(ctx).
			Where("user_uid = ? AND product_id = ?", uid, productID).
			Delete(&models.CartEntry{}).Error
	}
	entry := &models.CartEntry{
		ID:        uuid.New(),
		UserUID:   uid,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_uid"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()}),
	}).Create(entry).Error
}

// RemoveCartItems deletes the user's entries for productIDs. Other entries are
// left alone.
func (r *Repository) RemoveCartItems(ctx context.Context, uid string, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_uid = ? AND product_id IN ?", uid, productIDs).
		Delete(&models.CartEntry{}).Error
}

// ListFavorites returns the user's favorites, newest first.
func (r *Repository) ListFavorites(ctx context.Context, uid string) ([]models.Favorite, error) {
	var favorites []models.Favorite
	err := r.db.WithContext(ctx).
		Where("user_uid = ?", uid).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}
	return favorites, nil
}

// AddFavorite is a no-op when the favorite already exists.
func (r *Repository) AddFavorite(ctx context.Context, uid string, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Favorite{UserUID: uid, ProductID: productID}).Error
}

func (r *Repository) RemoveFavorite(ctx context.Context, uid string, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_uid = ? AND product_id = ?", uid, productID).
		Delete(&models.Favorite{}).Error
}
