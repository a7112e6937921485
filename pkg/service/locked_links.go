package service

import (
	"context"
	"fmt"
	"time"

	"shopfront/pkg/cache"
	"shopfront/pkg/logging"
	"shopfront/pkg/slug"
	"shopfront/pkg/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10

	// Slug suffixes are random; a unique-index conflict is resolved by
	// regenerating, bounded so a broken store cannot loop forever.
	slugAttempts = 5
)

type LockedLinkService struct {
	storage  storage.LockedLinkStorage
	cache    cache.LinkCacheInterface
	logger   *logging.Logger
	validate *validator.Validate
	nowFunc  func() time.Time
}

func NewLockedLinkService(st storage.LockedLinkStorage, c cache.LinkCacheInterface, logger *logging.Logger) *LockedLinkService {
	return &LockedLinkService{
		storage:  st,
		cache:    c,
		logger:   logger,
		validate: validator.New(),
		nowFunc:  time.Now,
	}
}

type CreateLockedLinkRequest struct {
	Title     string     `json:"title" validate:"required"`
	TargetURL *string    `json:"target_url,omitempty" validate:"omitempty,url"`
	FileURL   *string    `json:"file_url,omitempty"`
	Password  string     `json:"password" validate:"required"`
	MaxUses   *int       `json:"max_uses,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	ShopID    *uuid.UUID `json:"shop_id,omitempty"`
}

// Create hashes the password, allocates a slug and persists the link. The
// slug in the returned record is what callers publish as the shareable path.
func (s *LockedLinkService) Create(ctx context.Context, ownerID uuid.UUID, req *CreateLockedLinkRequest) (*storage.LockedLink, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationErr("title and password are required; target_url must be a valid URL and max_uses positive")
	}
	if req.TargetURL == nil && req.FileURL == nil {
		return nil, validationErr("either target_url or file_url is required")
	}
	if req.TargetURL != nil && req.FileURL != nil {
		return nil, validationErr("target_url and file_url are mutually exclusive")
	}
	if ownerID == uuid.Nil {
		return nil, ErrAccessDenied
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		sl, err := slug.MakeUnique(req.Title)
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}

		link := &storage.LockedLink{
			ID:           uuid.New(),
			OwnerID:      ownerID,
			ShopID:       req.ShopID,
			Slug:         sl,
			Title:        req.Title,
			TargetURL:    req.TargetURL,
			FileURL:      req.FileURL,
			PasswordHash: string(hash),
			MaxUses:      req.MaxUses,
			UsesCount:    0,
			ExpiresAt:    req.ExpiresAt,
		}

		err = s.storage.Create(ctx, link)
		if err == nil {
			s.logger.LogLinkOperation(ctx, "create", sl, true)
			return link, nil
		}
		if !storage.IsUniqueViolation(err) {
			s.logger.LogLinkOperation(ctx, "create", sl, false)
			return nil, fmt.Errorf("create locked link: %w", err)
		}
	}
	return nil, ErrSlugConflict
}

// VerifyResult is the protected payload released on a successful unlock.
type VerifyResult struct {
	Title     string  `json:"title"`
	TargetURL *string `json:"target_url,omitempty"`
	FileURL   *string `json:"file_url,omitempty"`
}

// Verify evaluates the guards in fixed order: existence, expiry, usage
// ceiling, password. Expiry is checked before the password so an expired
// link never reveals whether the password was correct. Only a fully
// successful verification mutates state, via the store's atomic
// consume-a-use update; everything earlier is read-only.
func (s *LockedLinkService) Verify(ctx context.Context, linkSlug, password string) (*VerifyResult, error) {
	if linkSlug == "" || password == "" {
		return nil, validationErr("slug and password are required")
	}

	link, err := s.storage.GetBySlug(ctx, linkSlug)
	if err != nil {
		return nil, fmt.Errorf("fetch link: %w", err)
	}
	if link == nil {
		s.logger.LogVerifyAttempt(ctx, linkSlug, "not_found")
		return nil, ErrNotFound
	}

	if link.ExpiresAt != nil && !s.nowFunc().Before(*link.ExpiresAt) {
		s.logger.LogVerifyAttempt(ctx, linkSlug, "expired")
		return nil, ErrLinkExpired
	}

	if link.MaxUses != nil && link.UsesCount >= *link.MaxUses {
		s.logger.LogVerifyAttempt(ctx, linkSlug, "usage_limit")
		return nil, ErrUsageLimit
	}

	if err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password)); err != nil {
		s.logger.LogVerifyAttempt(ctx, linkSlug, "bad_password")
		return nil, ErrInvalidPassword
	}

	// The precheck above can race with other verifiers; the conditional
	// update is the authoritative gate on max_uses.
	consumed, err := s.storage.ConsumeUse(ctx, linkSlug)
	if err != nil {
		return nil, fmt.Errorf("consume use: %w", err)
	}
	if !consumed {
		s.logger.LogVerifyAttempt(ctx, linkSlug, "usage_limit")
		return nil, ErrUsageLimit
	}

	s.logger.LogVerifyAttempt(ctx, linkSlug, "success")
	return &VerifyResult{
		Title:     link.Title,
		TargetURL: link.TargetURL,
		FileURL:   link.FileURL,
	}, nil
}

// GetPublic returns the metadata the unlock page needs, cached with a TTL
// capped at the link's remaining lifetime. Negative lookups are cached
// briefly. The verify path never uses this; counters stay authoritative.
func (s *LockedLinkService) GetPublic(ctx context.Context, linkSlug string) (*cache.CachedLink, error) {
	cached, err := s.cache.Get(ctx, linkSlug)
	if err == nil && cached != nil {
		if cached.NotFound {
			return nil, ErrNotFound
		}
		if cached.ExpiresAt == nil || s.nowFunc().Before(*cached.ExpiresAt) {
			return cached, nil
		}
		s.cache.Delete(ctx, linkSlug)
	}

	link, err := s.storage.GetBySlug(ctx, linkSlug)
	if err != nil {
		return nil, fmt.Errorf("fetch link: %w", err)
	}
	if link == nil {
		s.cache.Set(ctx, linkSlug, &cache.CachedLink{NotFound: true}, 5*time.Minute)
		return nil, ErrNotFound
	}

	ttl := 24 * time.Hour
	if link.ExpiresAt != nil {
		remaining := time.Until(*link.ExpiresAt)
		if remaining <= 0 {
			return nil, ErrLinkExpired
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	cl := &cache.CachedLink{
		Title:     link.Title,
		HasFile:   link.FileURL != nil,
		ExpiresAt: link.ExpiresAt,
	}
	s.cache.Set(ctx, linkSlug, cl, ttl)
	return cl, nil
}

// ListByOwner returns all locked links created by the owner.
func (s *LockedLinkService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*storage.LockedLink, error) {
	if ownerID == uuid.Nil {
		return nil, ErrAccessDenied
	}
	links, err := s.storage.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// Delete removes a locked link after an ownership check.
func (s *LockedLinkService) Delete(ctx context.Context, ownerID uuid.UUID, linkSlug string) error {
	if ownerID == uuid.Nil {
		return ErrAccessDenied
	}
	link, err := s.storage.GetBySlug(ctx, linkSlug)
	if err != nil {
		return fmt.Errorf("fetch link: %w", err)
	}
	if link == nil {
		return ErrNotFound
	}
	if link.OwnerID != ownerID {
		return ErrAccessDenied
	}

	s.cache.Delete(ctx, linkSlug)

	if err := s.storage.Delete(ctx, link.ID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	s.logger.LogLinkOperation(ctx, "delete", linkSlug, true)
	return nil
}
