// Package main provides CLI for club management.
// Usage: club create --slug downtown --name "Downtown Billiards"
//
//	club list
//	club migrate --all
//	club suspend <club-id>
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"cueclub/internal/core/tenant"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		createClub(ctx)
	case "list":
		listClubs(ctx)
	case "migrate":
		migrateClubs(ctx)
	case "suspend":
		suspendClub(ctx)
	case "activate":
		activateClub(ctx)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`CueClub Club Management CLI

Usage:
  club <command> [options]

Commands:
  create    Create a new club
  list      List all clubs
  migrate   Run migrations for club database(s)
  suspend   Suspend a club
  activate  Activate a suspended club
  help      Show this help

Environment Variables:
  CUECLUB_META_DATABASE_URL   Connection string for meta database (required)
  CUECLUB_CLUB_DB_USER        Username for club databases (required)
  CUECLUB_CLUB_DB_PASSWORD    Password for club databases (required)
  POSTGRES_ADMIN_URL          Admin connection for creating databases

Examples:
  club create --slug downtown --name "Downtown Billiards" --timezone Europe/Prague
  club list
  club migrate --all
  club migrate --id <club-uuid>
  club suspend <club-uuid>
  club activate <club-uuid>`)
}

func getMetaPool(ctx context.Context) *pgxpool.Pool {
	metaDSN := os.Getenv("CUECLUB_META_DATABASE_URL")
	if metaDSN == "" {
		fmt.Println("Error: CUECLUB_META_DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, metaDSN)
	if err != nil {
		fmt.Printf("Error connecting to meta database: %v\n", err)
		os.Exit(1)
	}

	return pool
}

func createClub(ctx context.Context) {
	var slug, name, timezone, plan string

	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--slug":
			if i+1 < len(os.Args) {
				slug = os.Args[i+1]
				i++
			}
		case "--name":
			if i+1 < len(os.Args) {
				name = os.Args[i+1]
				i++
			}
		case "--timezone":
			if i+1 < len(os.Args) {
				timezone = os.Args[i+1]
				i++
			}
		case "--plan":
			if i+1 < len(os.Args) {
				plan = os.Args[i+1]
				i++
			}
		}
	}

	if slug == "" || name == "" {
		fmt.Println("Error: --slug and --name are required")
		fmt.Println("Usage: club create --slug <slug> --name <name> [--timezone <iana-zone>] [--plan basic|pro|chain]")
		os.Exit(1)
	}

	if plan == "" {
		plan = string(tenant.PlanBasic)
	}

	input := tenant.CreateClubInput{
		Slug:        slug,
		DisplayName: name,
		Timezone:    timezone,
		Plan:        tenant.Plan(plan),
	}
	if err := input.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	metaPool := getMetaPool(ctx)
	defer metaPool.Close()

	registry := tenant.NewPostgresRegistry(metaPool)

	dbName := "club_" + strings.ToLower(slug)

	fmt.Printf("Creating club '%s'...\n", slug)

	// 1. Create database
	adminDSN := os.Getenv("POSTGRES_ADMIN_URL")
	if adminDSN == "" {
		// Try to construct from CUECLUB_META_DATABASE_URL
		adminDSN = os.Getenv("CUECLUB_META_DATABASE_URL")
		// Replace database name with 'postgres'
		adminDSN = strings.Replace(adminDSN, "/cueclub_meta", "/postgres", 1)
	}

	if adminDSN != "" {
		fmt.Printf("  Creating database %s...\n", dbName)
		adminPool, err := pgxpool.New(ctx, adminDSN)
		if err != nil {
			fmt.Printf("  Warning: Could not connect as admin: %v\n", err)
			fmt.Println("  You may need to create the database manually.")
		} else {
			defer adminPool.Close()
			_, err = adminPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName))
			if err != nil {
				if strings.Contains(err.Error(), "already exists") {
					fmt.Println("  Database already exists")
				} else {
					fmt.Printf("  Warning: Could not create database: %v\n", err)
				}
			} else {
				fmt.Println("  Database created")
			}
		}
	}

	// 2. Run migrations
	dbUser := os.Getenv("CUECLUB_CLUB_DB_USER")
	dbPassword := os.Getenv("CUECLUB_CLUB_DB_PASSWORD")
	if dbUser != "" && dbPassword != "" {
		fmt.Println("  Running migrations...")
		clubDSN := fmt.Sprintf("postgres://%s:%s@localhost:5432/%s?sslmode=disable",
			dbUser, dbPassword, dbName)

		cmd := exec.Command("goose", "-dir", "db/migrations/club", "postgres", clubDSN, "up")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Printf("  Warning: Migrations failed: %v\n", err)
			fmt.Println("  You may need to run migrations manually.")
		} else {
			fmt.Println("  Migrations completed")
		}
	}

	// 3. Register in meta database
	fmt.Println("  Registering club...")

	c := &tenant.Club{
		Slug:        slug,
		DisplayName: name,
		Timezone:    timezone,
		DBName:      dbName,
		DBHost:      "localhost",
		DBPort:      5432,
		Status:      tenant.StatusActive,
		Plan:        tenant.Plan(plan),
	}

	if err := registry.Create(ctx, c); err != nil {
		fmt.Printf("Error registering club: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Club '%s' created successfully!\n", slug)
	fmt.Printf("  Club ID: %s\n", c.ID)
	fmt.Printf("  Database: %s\n", dbName)
	fmt.Printf("  Timezone: %s\n", c.Timezone)
	fmt.Printf("  Status: active\n")
	fmt.Printf("  Plan: %s\n", plan)
}

func listClubs(ctx context.Context) {
	metaPool := getMetaPool(ctx)
	defer metaPool.Close()

	registry := tenant.NewPostgresRegistry(metaPool)
	clubs, err := registry.ListAll(ctx)
	if err != nil {
		fmt.Printf("Error listing clubs: %v\n", err)
		os.Exit(1)
	}

	if len(clubs) == 0 {
		fmt.Println("No clubs found")
		return
	}

	fmt.Printf("%-36s %-20s %-30s %-18s %-20s %-10s\n", "CLUB_ID", "SLUG", "NAME", "DATABASE", "TIMEZONE", "STATUS")
	fmt.Println(strings.Repeat("-", 140))

	for _, c := range clubs {
		fmt.Printf("%-36s %-20s %-30s %-18s %-20s %-10s\n",
			truncate(c.ID, 36),
			truncate(c.Slug, 20),
			truncate(c.DisplayName, 30),
			truncate(c.DBName, 18),
			truncate(c.Timezone, 20),
			c.Status,
		)
	}
}

func migrateClubs(ctx context.Context) {
	var targetID string
	var all bool

	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--id":
			if i+1 < len(os.Args) {
				targetID = os.Args[i+1]
				i++
			}
		case "--all":
			all = true
		}
	}

	if !all && targetID == "" {
		fmt.Println("Error: specify --id <club-uuid> or --all")
		os.Exit(1)
	}

	metaPool := getMetaPool(ctx)
	defer metaPool.Close()

	registry := tenant.NewPostgresRegistry(metaPool)

	var clubs []*tenant.Club
	var err error

	if all {
		clubs, err = registry.ListActive(ctx)
	} else {
		c, e := registry.GetByID(ctx, targetID)
		if e != nil {
			fmt.Printf("Error: club '%s' not found\n", targetID)
			os.Exit(1)
		}
		clubs = []*tenant.Club{c}
		err = e
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	dbUser := os.Getenv("CUECLUB_CLUB_DB_USER")
	dbPassword := os.Getenv("CUECLUB_CLUB_DB_PASSWORD")

	if dbUser == "" || dbPassword == "" {
		fmt.Println("Error: CUECLUB_CLUB_DB_USER and CUECLUB_CLUB_DB_PASSWORD are required")
		os.Exit(1)
	}

	for _, c := range clubs {
		fmt.Printf("Migrating %s (%s)...\n", c.Slug, c.DBName)

		dsn := c.DSN(dbUser, dbPassword)
		cmd := exec.Command("goose", "-dir", "db/migrations/club", "postgres", dsn, "up")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			fmt.Printf("  ✗ Failed: %v\n", err)
		} else {
			fmt.Printf("  ✓ Done\n")
		}
	}
}

func suspendClub(ctx context.Context) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: club suspend <club-uuid>")
		os.Exit(1)
	}

	clubID := os.Args[2]

	metaPool := getMetaPool(ctx)
	defer metaPool.Close()

	registry := tenant.NewPostgresRegistry(metaPool)
	if err := registry.UpdateStatusByID(ctx, clubID, tenant.StatusSuspended); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Club '%s' suspended\n", clubID)
}

func activateClub(ctx context.Context) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: club activate <club-uuid>")
		os.Exit(1)
	}

	clubID := os.Args[2]

	metaPool := getMetaPool(ctx)
	defer metaPool.Close()

	registry := tenant.NewPostgresRegistry(metaPool)
	if err := registry.UpdateStatusByID(ctx, clubID, tenant.StatusActive); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Club '%s' activated\n", clubID)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
