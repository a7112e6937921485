package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505). Used by services to retry slug generation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- locked links ---

func (s *PostgresStorage) Create(ctx context.Context, link *LockedLink) error {
	query := `INSERT INTO locked_links (id, owner_id, shop_id, slug, title, target_url, file_url, password_hash, max_uses, uses_count, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`
	return s.pool.QueryRow(ctx, query,
		link.ID, link.OwnerID, link.ShopID, link.Slug, link.Title,
		link.TargetURL, link.FileURL, link.PasswordHash,
		link.MaxUses, link.UsesCount, link.ExpiresAt,
	).Scan(&link.CreatedAt, &link.UpdatedAt)
}

func (s *PostgresStorage) GetBySlug(ctx context.Context, slug string) (*LockedLink, error) {
	query := `SELECT id, owner_id, shop_id, slug, title, target_url, file_url, password_hash, max_uses, uses_count, expires_at, created_at, updated_at
		FROM locked_links WHERE slug = $1`
	row := s.pool.QueryRow(ctx, query, slug)
	var link LockedLink
	err := row.Scan(&link.ID, &link.OwnerID, &link.ShopID, &link.Slug, &link.Title,
		&link.TargetURL, &link.FileURL, &link.PasswordHash,
		&link.MaxUses, &link.UsesCount, &link.ExpiresAt, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (s *PostgresStorage) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*LockedLink, error) {
	query := `SELECT id, owner_id, shop_id, slug, title, target_url, file_url, password_hash, max_uses, uses_count, expires_at, created_at, updated_at
		FROM locked_links WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []*LockedLink{}
	for rows.Next() {
		var link LockedLink
		err := rows.Scan(&link.ID, &link.OwnerID, &link.ShopID, &link.Slug, &link.Title,
			&link.TargetURL, &link.FileURL, &link.PasswordHash,
			&link.MaxUses, &link.UsesCount, &link.ExpiresAt, &link.CreatedAt, &link.UpdatedAt)
		if err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}

// ConsumeUse is the guard-and-increment from the verify flow as a single
// conditional UPDATE, so concurrent verifications cannot jointly exceed
// max_uses.
func (s *PostgresStorage) ConsumeUse(ctx context.Context, slug string) (bool, error) {
	query := `UPDATE locked_links SET uses_count = uses_count + 1, updated_at = now()
		WHERE slug = $1 AND (max_uses IS NULL OR uses_count < max_uses)`
	tag, err := s.pool.Exec(ctx, query, slug)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStorage) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM locked_links WHERE id = $1`, id)
	return err
}

// --- shops ---

func (s *PostgresStorage) CreateShop(ctx context.Context, shop *Shop) error {
	query := `INSERT INTO shops (id, owner_id, slug, name, description, category, location, theme_color, dark_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	return s.pool.QueryRow(ctx, query,
		shop.ID, shop.OwnerID, shop.Slug, shop.Name, shop.Description,
		shop.Category, shop.Location, shop.ThemeColor, shop.DarkMode,
	).Scan(&shop.CreatedAt, &shop.UpdatedAt)
}

func (s *PostgresStorage) GetShopByID(ctx context.Context, id uuid.UUID) (*Shop, error) {
	return s.getShop(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStorage) GetShopBySlug(ctx context.Context, slug string) (*Shop, error) {
	return s.getShop(ctx, `WHERE slug = $1`, slug)
}

func (s *PostgresStorage) getShop(ctx context.Context, where string, arg any) (*Shop, error) {
	query := `SELECT id, owner_id, slug, name, description, category, location, theme_color, dark_mode, views_count, clicks_count, created_at, updated_at
		FROM shops ` + where
	row := s.pool.QueryRow(ctx, query, arg)
	var shop Shop
	err := row.Scan(&shop.ID, &shop.OwnerID, &shop.Slug, &shop.Name, &shop.Description,
		&shop.Category, &shop.Location, &shop.ThemeColor, &shop.DarkMode,
		&shop.ViewsCount, &shop.ClicksCount, &shop.CreatedAt, &shop.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

func (s *PostgresStorage) UpdateShop(ctx context.Context, shop *Shop) error {
	query := `UPDATE shops SET name = $2, description = $3, category = $4, location = $5, theme_color = $6, dark_mode = $7, updated_at = now()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query,
		shop.ID, shop.Name, shop.Description, shop.Category,
		shop.Location, shop.ThemeColor, shop.DarkMode)
	return err
}

func (s *PostgresStorage) DeleteShop(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM shops WHERE id = $1`, id)
	return err
}

func (s *PostgresStorage) AddShopViews(ctx context.Context, id uuid.UUID, n int) error {
	_, err := s.pool.Exec(ctx, `UPDATE shops SET views_count = views_count + $2 WHERE id = $1`, id, n)
	return err
}

func (s *PostgresStorage) AddShopClicks(ctx context.Context, id uuid.UUID, n int) error {
	_, err := s.pool.Exec(ctx, `UPDATE shops SET clicks_count = clicks_count + $2 WHERE id = $1`, id, n)
	return err
}

// --- products ---

func (s *PostgresStorage) CreateProduct(ctx context.Context, p *Product) error {
	query := `INSERT INTO products (id, shop_id, name, description, price, currency, image_urls, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	return s.pool.QueryRow(ctx, query,
		p.ID, p.ShopID, p.Name, p.Description, p.Price, p.Currency, p.ImageURLs, p.Position,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (s *PostgresStorage) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT id, shop_id, name, description, price, currency, image_urls, position, created_at, updated_at
		FROM products WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)
	var p Product
	err := row.Scan(&p.ID, &p.ShopID, &p.Name, &p.Description, &p.Price, &p.Currency,
		&p.ImageURLs, &p.Position, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStorage) ListProductsByShop(ctx context.Context, shopID uuid.UUID) ([]*Product, error) {
	query := `SELECT id, shop_id, name, description, price, currency, image_urls, position, created_at, updated_at
		FROM products WHERE shop_id = $1 ORDER BY position, created_at`
	rows, err := s.pool.Query(ctx, query, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		var p Product
		err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.Description, &p.Price, &p.Currency,
			&p.ImageURLs, &p.Position, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

func (s *PostgresStorage) UpdateProduct(ctx context.Context, p *Product) error {
	query := `UPDATE products SET name = $2, description = $3, price = $4, currency = $5, image_urls = $6, position = $7, updated_at = now()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, p.ID, p.Name, p.Description, p.Price, p.Currency, p.ImageURLs, p.Position)
	return err
}

func (s *PostgresStorage) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

// --- custom links ---

func (s *PostgresStorage) CreateCustomLink(ctx context.Context, l *CustomLink) error {
	query := `INSERT INTO custom_links (id, shop_id, title, url, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	return s.pool.QueryRow(ctx, query, l.ID, l.ShopID, l.Title, l.URL, l.Position).Scan(&l.CreatedAt)
}

func (s *PostgresStorage) GetCustomLinkByID(ctx context.Context, id uuid.UUID) (*CustomLink, error) {
	query := `SELECT id, shop_id, title, url, position, created_at FROM custom_links WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)
	var l CustomLink
	err := row.Scan(&l.ID, &l.ShopID, &l.Title, &l.URL, &l.Position, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStorage) ListCustomLinksByShop(ctx context.Context, shopID uuid.UUID) ([]*CustomLink, error) {
	query := `SELECT id, shop_id, title, url, position, created_at FROM custom_links WHERE shop_id = $1 ORDER BY position, created_at`
	rows, err := s.pool.Query(ctx, query, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []*CustomLink{}
	for rows.Next() {
		var l CustomLink
		if err := rows.Scan(&l.ID, &l.ShopID, &l.Title, &l.URL, &l.Position, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

func (s *PostgresStorage) DeleteCustomLink(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM custom_links WHERE id = $1`, id)
	return err
}
