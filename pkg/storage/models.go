package storage

import (
	"time"

	"github.com/google/uuid"
)

// LockedLink is a password-protected pointer to a URL or uploaded file.
// Exactly one of TargetURL/FileURL is set. The slug is assigned at creation
// and never changes.
type LockedLink struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	OwnerID      uuid.UUID  `json:"owner_id" db:"owner_id"`
	ShopID       *uuid.UUID `json:"shop_id,omitempty" db:"shop_id"`
	Slug         string     `json:"slug" db:"slug"`
	Title        string     `json:"title" db:"title"`
	TargetURL    *string    `json:"target_url,omitempty" db:"target_url"`
	FileURL      *string    `json:"file_url,omitempty" db:"file_url"`
	PasswordHash string     `json:"-" db:"password_hash"`
	MaxUses      *int       `json:"max_uses,omitempty" db:"max_uses"`
	UsesCount    int        `json:"uses_count" db:"uses_count"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Shop is a public storefront profile.
type Shop struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id"`
	Slug        string    `json:"slug" db:"slug"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Category    string    `json:"category" db:"category"`
	Location    *string   `json:"location,omitempty" db:"location"`
	ThemeColor  string    `json:"theme_color" db:"theme_color"`
	DarkMode    bool      `json:"dark_mode" db:"dark_mode"`
	ViewsCount  int       `json:"views_count" db:"views_count"`
	ClicksCount int       `json:"clicks_count" db:"clicks_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Product is a catalog entry attached to a shop. Position controls display
// order on the public page.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ShopID      uuid.UUID `json:"shop_id" db:"shop_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Currency    string    `json:"currency" db:"currency"`
	ImageURLs   []string  `json:"image_urls" db:"image_urls"`
	Position    int       `json:"position" db:"position"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CustomLink is an arbitrary outbound link shown on a shop page.
type CustomLink struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ShopID    uuid.UUID `json:"shop_id" db:"shop_id"`
	Title     string    `json:"title" db:"title"`
	URL       string    `json:"url" db:"url"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
