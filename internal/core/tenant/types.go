// Package tenant provides multi-tenant database management for Database-per-Tenant architecture.
// Each billiards club has its own isolated PostgreSQL database.
package tenant

import (
	"fmt"
	"strings"
	"time"
)

// Status represents club lifecycle state.
type Status string

const (
	// StatusActive - club can accept requests
	StatusActive Status = "active"

	// StatusSuspended - club is temporarily disabled (e.g., payment issues)
	StatusSuspended Status = "suspended"

	// StatusDeleted - club is marked for deletion
	StatusDeleted Status = "deleted"
)

// Plan represents club subscription plan.
type Plan string

const (
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
	PlanChain Plan = "chain"
)

// Club represents a club record from the meta-database.
type Club struct {
	ID          string         `db:"id"`
	Slug        string         `db:"slug"`         // URL-safe identifier
	DisplayName string         `db:"display_name"` // Human-readable name
	Timezone    string         `db:"timezone"`     // IANA zone; table tariffs are wall-clock local
	DBName      string         `db:"db_name"`
	DBHost      string         `db:"db_host"`
	DBPort      int            `db:"db_port"`
	Status      Status         `db:"status"`
	Plan        Plan           `db:"plan"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	Settings    map[string]any `db:"settings"` // Additional settings (JSONB)
}

// IsActive returns true if club can accept requests.
func (c *Club) IsActive() bool {
	return c.Status == StatusActive
}

// Location resolves the club's IANA timezone, UTC when unset or invalid.
func (c *Club) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN builds PostgreSQL connection string for this club's database.
func (c *Club) DSN(user, password string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		user, password, c.DBHost, c.DBPort, c.DBName,
	)
}

// DSNWithSSL builds PostgreSQL connection string with SSL enabled.
func (c *Club) DSNWithSSL(user, password, sslMode string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, password, c.DBHost, c.DBPort, c.DBName, sslMode,
	)
}

// CreateClubInput contains data for provisioning a new club.
type CreateClubInput struct {
	Slug        string
	DisplayName string
	Timezone    string
	Plan        Plan
	DBHost      string // Optional, defaults to localhost
	DBPort      int    // Optional, defaults to 5432
}

// Validate checks if input is valid.
func (i *CreateClubInput) Validate() error {
	if i.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.ContainsAny(i.Slug, " /\\") {
		return fmt.Errorf("slug must be URL-safe")
	}
	if i.DisplayName == "" {
		return fmt.Errorf("display name is required")
	}
	if i.Timezone != "" {
		if _, err := time.LoadLocation(i.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", i.Timezone, err)
		}
	}
	return nil
}
