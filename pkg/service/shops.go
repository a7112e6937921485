package service

import (
	"context"
	"fmt"

	"shopfront/pkg/cache"
	"shopfront/pkg/logging"
	"shopfront/pkg/slug"
	"shopfront/pkg/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// counterFlushEvery controls how often the buffered shop view and click
// counters are written back to Postgres. Hits in between live only in Redis.
const counterFlushEvery = 10

// ShopStore is the slice of storage the shop service needs.
type ShopStore interface {
	storage.ShopStorage
	storage.ProductStorage
	storage.CustomLinkStorage
}

type ShopService struct {
	storage  ShopStore
	cache    cache.LinkCacheInterface
	logger   *logging.Logger
	validate *validator.Validate
}

func NewShopService(st ShopStore, c cache.LinkCacheInterface, logger *logging.Logger) *ShopService {
	return &ShopService{
		storage:  st,
		cache:    c,
		logger:   logger,
		validate: validator.New(),
	}
}

type CreateShopRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Category    string  `json:"category" validate:"required,oneof=product service"`
	Location    *string `json:"location,omitempty"`
	ThemeColor  string  `json:"theme_color" validate:"omitempty,hexcolor"`
	DarkMode    bool    `json:"dark_mode"`
}

func (s *ShopService) CreateShop(ctx context.Context, ownerID uuid.UUID, req *CreateShopRequest) (*storage.Shop, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationErr("name and a valid category are required")
	}
	if ownerID == uuid.Nil {
		return nil, ErrAccessDenied
	}
	if req.ThemeColor == "" {
		req.ThemeColor = "#6366f1"
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		sl, err := slug.MakeUnique(req.Name)
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}

		shop := &storage.Shop{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			Slug:        sl,
			Name:        req.Name,
			Description: req.Description,
			Category:    req.Category,
			Location:    req.Location,
			ThemeColor:  req.ThemeColor,
			DarkMode:    req.DarkMode,
		}

		err = s.storage.CreateShop(ctx, shop)
		if err == nil {
			s.logger.LogShopOperation(ctx, "create", sl, true)
			return shop, nil
		}
		if !storage.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create shop: %w", err)
		}
	}
	return nil, ErrSlugConflict
}

// GetShopPublic serves the public shop page lookup, accepting either the
// shop id or its slug, and records a view. Views are buffered in Redis and
// flushed to the store every counterFlushEvery hits; a cache outage only
// loses buffered views, never the page.
func (s *ShopService) GetShopPublic(ctx context.Context, idOrSlug string) (*storage.Shop, error) {
	var (
		shop *storage.Shop
		err  error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		shop, err = s.storage.GetShopByID(ctx, id)
	} else {
		shop, err = s.storage.GetShopBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch shop: %w", err)
	}
	if shop == nil {
		return nil, ErrNotFound
	}

	if count, err := s.cache.IncrementShopView(ctx, shop.ID.String()); err == nil && count%counterFlushEvery == 0 {
		if err := s.storage.AddShopViews(ctx, shop.ID, counterFlushEvery); err != nil {
			s.logger.Warn(ctx, "flush shop views failed", "shop", shop.ID, "error", err)
		} else {
			s.cache.ResetShopViews(ctx, shop.ID.String())
		}
	}
	return shop, nil
}

// RecordLinkClick registers an outbound click on a custom link and returns
// the link so callers can redirect. Clicks are buffered on the shop counter
// the same way views are.
func (s *ShopService) RecordLinkClick(ctx context.Context, linkID uuid.UUID) (*storage.CustomLink, error) {
	link, err := s.storage.GetCustomLinkByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("fetch custom link: %w", err)
	}
	if link == nil {
		return nil, ErrNotFound
	}

	if count, err := s.cache.IncrementShopClick(ctx, link.ShopID.String()); err == nil && count%counterFlushEvery == 0 {
		if err := s.storage.AddShopClicks(ctx, link.ShopID, counterFlushEvery); err != nil {
			s.logger.Warn(ctx, "flush shop clicks failed", "shop", link.ShopID, "error", err)
		} else {
			s.cache.ResetShopClicks(ctx, link.ShopID.String())
		}
	}
	return link, nil
}

type UpdateShopRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty" validate:"omitempty,oneof=product service"`
	Location    *string `json:"location,omitempty"`
	ThemeColor  *string `json:"theme_color,omitempty" validate:"omitempty,hexcolor"`
	DarkMode    *bool   `json:"dark_mode,omitempty"`
}

func (s *ShopService) UpdateShop(ctx context.Context, ownerID, shopID uuid.UUID, req *UpdateShopRequest) (*storage.Shop, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationErr("invalid shop fields")
	}

	shop, err := s.ownedShop(ctx, ownerID, shopID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		shop.Name = *req.Name
	}
	if req.Description != nil {
		shop.Description = req.Description
	}
	if req.Category != nil {
		shop.Category = *req.Category
	}
	if req.Location != nil {
		shop.Location = req.Location
	}
	if req.ThemeColor != nil {
		shop.ThemeColor = *req.ThemeColor
	}
	if req.DarkMode != nil {
		shop.DarkMode = *req.DarkMode
	}

	if err := s.storage.UpdateShop(ctx, shop); err != nil {
		return nil, fmt.Errorf("update shop: %w", err)
	}
	s.logger.LogShopOperation(ctx, "update", shop.Slug, true)
	return shop, nil
}

func (s *ShopService) DeleteShop(ctx context.Context, ownerID, shopID uuid.UUID) error {
	shop, err := s.ownedShop(ctx, ownerID, shopID)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteShop(ctx, shop.ID); err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	s.logger.LogShopOperation(ctx, "delete", shop.Slug, true)
	return nil
}

// ownedShop fetches a shop and enforces that ownerID owns it.
func (s *ShopService) ownedShop(ctx context.Context, ownerID, shopID uuid.UUID) (*storage.Shop, error) {
	if ownerID == uuid.Nil {
		return nil, ErrAccessDenied
	}
	shop, err := s.storage.GetShopByID(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("fetch shop: %w", err)
	}
	if shop == nil {
		return nil, ErrNotFound
	}
	if shop.OwnerID != ownerID {
		return nil, ErrAccessDenied
	}
	return shop, nil
}

// --- products ---

type ProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Price       float64  `json:"price" validate:"gte=0"`
	Currency    string   `json:"currency" validate:"omitempty,iso4217"`
	ImageURLs   []string `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
	Position    int      `json:"position"`
}

func (s *ShopService) AddProduct(ctx context.Context, ownerID, shopID uuid.UUID, req *ProductRequest) (*storage.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationErr("invalid product fields")
	}
	if _, err := s.ownedShop(ctx, ownerID, shopID); err != nil {
		return nil, err
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if req.ImageURLs == nil {
		req.ImageURLs = []string{}
	}

	p := &storage.Product{
		ID:          uuid.New(),
		ShopID:      shopID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		ImageURLs:   req.ImageURLs,
		Position:    req.Position,
	}
	if err := s.storage.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *ShopService) ListProducts(ctx context.Context, shopID uuid.UUID) ([]*storage.Product, error) {
	products, err := s.storage.ListProductsByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// UpdateProductRequest patches a product; nil fields are left untouched.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Currency    *string  `json:"currency,omitempty" validate:"omitempty,iso4217"`
	ImageURLs   []string `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
	Position    *int     `json:"position,omitempty"`
}

func (s *ShopService) UpdateProduct(ctx context.Context, ownerID, productID uuid.UUID, req *UpdateProductRequest) (*storage.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationErr("invalid product fields")
	}
	p, err := s.storage.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch product: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if _, err := s.ownedShop(ctx, ownerID, p.ShopID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Currency != nil {
		p.Currency = *req.Currency
	}
	if req.ImageURLs != nil {
		p.ImageURLs = req.ImageURLs
	}
	if req.Position != nil {
		p.Position = *req.Position
	}

	if err := s.storage.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *ShopService) DeleteProduct(ctx context.Context, ownerID, productID uuid.UUID) error {
	p, err := s.storage.GetProductByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("fetch product: %w", err)
	}
	if p == nil {
		return ErrNotFound
	}
	if _, err := s.ownedShop(ctx, ownerID, p.ShopID); err != nil {
		return err
	}
	return s.storage.DeleteProduct(ctx, p.ID)
}

// --- custom links ---

type CustomLinkRequest struct {
	Title    string `json:"title" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	Position int    `json:"position"`
}

func (s *ShopService) AddCustomLink(ctx context.Context, ownerID, shopID uuid.UUID, req *CustomLinkRequest) (*storage.CustomLink, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationErr("title and a valid url are required")
	}
	if _, err := s.ownedShop(ctx, ownerID, shopID); err != nil {
		return nil, err
	}

	l := &storage.CustomLink{
		ID:       uuid.New(),
		ShopID:   shopID,
		Title:    req.Title,
		URL:      req.URL,
		Position: req.Position,
	}
	if err := s.storage.CreateCustomLink(ctx, l); err != nil {
		return nil, fmt.Errorf("create custom link: %w", err)
	}
	return l, nil
}

func (s *ShopService) ListCustomLinks(ctx context.Context, shopID uuid.UUID) ([]*storage.CustomLink, error) {
	links, err := s.storage.ListCustomLinksByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list custom links: %w", err)
	}
	return links, nil
}

func (s *ShopService) DeleteCustomLink(ctx context.Context, ownerID, linkID uuid.UUID) error {
	l, err := s.storage.GetCustomLinkByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("fetch custom link: %w", err)
	}
	if l == nil {
		return ErrNotFound
	}
	if _, err := s.ownedShop(ctx, ownerID, l.ShopID); err != nil {
		return err
	}
	return s.storage.DeleteCustomLink(ctx, l.ID)
}
