package storage

import (
	"context"

	"github.com/google/uuid"
)

type LockedLinkStorage interface {
	Create(ctx context.Context, link *LockedLink) error
	GetBySlug(ctx context.Context, slug string) (*LockedLink, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*LockedLink, error)
	// ConsumeUse atomically increments uses_count for the slug, but only
	// while the counter is below max_uses (or max_uses is unset). It reports
	// whether a use was consumed.
	ConsumeUse(ctx context.Context, slug string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ShopStorage interface {
	CreateShop(ctx context.Context, shop *Shop) error
	GetShopByID(ctx context.Context, id uuid.UUID) (*Shop, error)
	GetShopBySlug(ctx context.Context, slug string) (*Shop, error)
	UpdateShop(ctx context.Context, shop *Shop) error
	DeleteShop(ctx context.Context, id uuid.UUID) error
	AddShopViews(ctx context.Context, id uuid.UUID, n int) error
	AddShopClicks(ctx context.Context, id uuid.UUID, n int) error
}

type ProductStorage interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProductsByShop(ctx context.Context, shopID uuid.UUID) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type CustomLinkStorage interface {
	CreateCustomLink(ctx context.Context, l *CustomLink) error
	GetCustomLinkByID(ctx context.Context, id uuid.UUID) (*CustomLink, error)
	ListCustomLinksByShop(ctx context.Context, shopID uuid.UUID) ([]*CustomLink, error)
	DeleteCustomLink(ctx context.Context, id uuid.UUID) error
}
