package users

import (
	"time"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartEntry is one product/quantity pair as the customer stored it.
type CartEntry struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Profile aggregates what the storefront keeps about a customer. Cart
// entries are returned in insertion order.
type Profile struct {
	UID         string      `json:"uid"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Cart        []CartEntry `json:"cart"`
	Favorites   []uuid.UUID `json:"favorites"`
}

func profileFromModels(uid string, row *models.UserProfile, cart []models.CartEntry, favorites []models.Favorite) *Profile {
	p := &Profile{
		UID:       uid,
		Cart:      make([]CartEntry, 0, len(cart)),
		Favorites: make([]uuid.UUID, 0, len(favorites)),
	}
	if row != nil {
		p.Email = row.Email
		if row.DisplayName != nil {
			p.DisplayName = *row.DisplayName
		}
		if row.Phone != nil {
			p.Phone = *row.Phone
		}
	}
	for _, entry := range cart {
		p.Cart = append(p.Cart, CartEntry{ProductID: entry.ProductID, Quantity: entry.Quantity})
	}
	for _, fav := range favorites {
		p.Favorites = append(p.Favorites, fav.ProductID)
	}
	return p
}

// FavoriteProduct is a favorited artwork with its current catalog price.
type FavoriteProduct struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Title      string          `json:"title"`
	ArtistName string          `json:"artist_name,omitempty"`
	ImageURL   string          `json:"image_url,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Available  bool            `json:"available"`
	AddedAt    time.Time       `json:"added_at"`
}

func favoriteFromProduct(p *models.Product, addedAt time.Time) FavoriteProduct {
	fav := FavoriteProduct{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Available: p.IsPurchasable(),
		AddedAt:   addedAt,
	}
	if p.ArtistName != nil {
		fav.ArtistName = *p.ArtistName
	}
	if p.ImageURL != nil {
		fav.ImageURL = *p.ImageURL
	}
	return fav
}
