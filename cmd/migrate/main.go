// Command migrate rewrites persisted legacy media URLs to the canonical
// /media-proxy/{bucket}/{key} form. Resolution stays lazy on the read path
// regardless; this is a one-shot pass for operators who want the rows
// cleaned up.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/media-proxy/pkg/mediaproxy/config"
	"github.com/tendant/media-proxy/pkg/mediaproxy/repo"
	"github.com/tendant/media-proxy/pkg/mediaproxy/repo/postgres"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pairs, err := cfg.ParseMigrationTargets()
	if err != nil {
		log.Fatalf("Invalid migration targets: %v", err)
	}
	if len(pairs) == 0 {
		log.Fatal("MIGRATION_TARGETS is required (comma-separated table.column pairs)")
	}
	targets := make([]postgres.Target, 0, len(pairs))
	for _, p := range pairs {
		targets = append(targets, postgres.Target{Table: p[0], Column: p[1]})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create pgx pool: %v", err)
	}
	defer pool.Close()

	store, err := postgres.NewWithPool(pool, targets)
	if err != nil {
		log.Fatalf("Failed to build migration store: %v", err)
	}

	result, err := repo.Migrate(ctx, store, logger, cfg.MigrationBatch)
	if err != nil {
		log.Fatalf("Migration failed after %d rows: %v", result.Scanned, err)
	}

	logger.Info("migration complete",
		"scanned", result.Scanned,
		"rewritten", result.Rewritten,
		"already_canonical", result.Canonical,
		"malformed", result.Malformed)
}
