package tenant

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Registry provides access to club metadata stored in the meta-database.
type Registry interface {
	// GetByID retrieves club by UUID string.
	GetByID(ctx context.Context, clubID string) (*Club, error)

	// GetBySlug retrieves club by its URL slug.
	GetBySlug(ctx context.Context, slug string) (*Club, error)

	// ListActive returns all active clubs.
	ListActive(ctx context.Context) ([]*Club, error)

	// ListAll returns all clubs.
	ListAll(ctx context.Context) ([]*Club, error)

	// Create inserts a new club row and populates c.ID.
	Create(ctx context.Context, c *Club) error

	// UpdateStatusByID updates club status by UUID string.
	UpdateStatusByID(ctx context.Context, clubID string, status Status) error
}

const clubColumns = `id, slug, display_name, timezone, db_name, db_host, db_port,
       status, plan, created_at, updated_at, settings`

// PostgresRegistry implements Registry using meta-database PostgreSQL.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (r *PostgresRegistry) GetByID(ctx context.Context, clubID string) (*Club, error) {
	var c Club
	err := pgxscan.Get(ctx, r.pool, &c, `
		SELECT `+clubColumns+`
		FROM clubs
		WHERE id = $1
	`, clubID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("get club by id: %w", err)
	}
	return &c, nil
}

func (r *PostgresRegistry) GetBySlug(ctx context.Context, slug string) (*Club, error) {
	var c Club
	err := pgxscan.Get(ctx, r.pool, &c, `
		SELECT `+clubColumns+`
		FROM clubs
		WHERE slug = $1
	`, slug)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("get club by slug: %w", err)
	}
	return &c, nil
}

func (r *PostgresRegistry) ListActive(ctx context.Context) ([]*Club, error) {
	var clubs []*Club
	err := pgxscan.Select(ctx, r.pool, &clubs, `
		SELECT `+clubColumns+`
		FROM clubs
		WHERE status = $1
		ORDER BY slug
	`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active clubs: %w", err)
	}
	return clubs, nil
}

func (r *PostgresRegistry) ListAll(ctx context.Context) ([]*Club, error) {
	var clubs []*Club
	err := pgxscan.Select(ctx, r.pool, &clubs, `
		SELECT `+clubColumns+`
		FROM clubs
		ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	return clubs, nil
}

func (r *PostgresRegistry) Create(ctx context.Context, c *Club) error {
	if c == nil {
		return fmt.Errorf("club is nil")
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.Plan == "" {
		c.Plan = PlanBasic
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}

	// settings is JSONB with default '{}', but we still pass it explicitly for clarity.
	if c.Settings == nil {
		c.Settings = map[string]any{}
	}

	// Return generated UUID.
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clubs (slug, display_name, timezone, db_name, db_host, db_port, status, plan, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, c.Slug, c.DisplayName, c.Timezone, c.DBName, c.DBHost, c.DBPort, c.Status, c.Plan, c.Settings).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create club: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) UpdateStatusByID(ctx context.Context, clubID string, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clubs
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, clubID, status)
	if err != nil {
		return fmt.Errorf("update club status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClubNotFound
	}
	return nil
}

var _ Registry = (*PostgresRegistry)(nil)
