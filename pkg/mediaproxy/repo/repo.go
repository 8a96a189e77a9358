// Package repo defines the persistence boundary used by the eager legacy-URL
// migration: a store of (table, column, row) cells holding media URLs, plus
// the walker that rewrites non-canonical ones. The resolver itself never
// owns entity rows; it only rewrites the URL strings inside them.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/media-proxy/pkg/mediaproxy"
)

// URLRecord identifies one media URL cell in the relational store.
type URLRecord struct {
	Table  string
	Column string
	RowID  int64
	URL    string
}

// URLRecordStore lists and updates media URL cells.
type URLRecordStore interface {
	// ListMediaURLs pages through URL cells in a stable order.
	ListMediaURLs(ctx context.Context, limit, offset int) ([]URLRecord, error)

	// UpdateMediaURL writes rec.URL back to the cell rec identifies.
	UpdateMediaURL(ctx context.Context, rec URLRecord) error
}

// MigrationResult summarizes one migration pass.
type MigrationResult struct {
	Scanned   int
	Rewritten int
	Canonical int
	Malformed int
}

// Migrate walks every URL cell, resolves it, and rewrites rows whose stored
// URL is not in the canonical form. Malformed cells are logged and skipped;
// they need human attention, not a guess.
func Migrate(ctx context.Context, store URLRecordStore, logger *slog.Logger, batchSize int) (MigrationResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	var result MigrationResult
	for offset := 0; ; offset += batchSize {
		records, err := store.ListMediaURLs(ctx, batchSize, offset)
		if err != nil {
			return result, fmt.Errorf("listing media urls at offset %d: %w", offset, err)
		}
		if len(records) == 0 {
			return result, nil
		}

		for _, rec := range records {
			result.Scanned++

			resolved, err := mediaproxy.ResolveURL(rec.URL)
			if errors.Is(err, mediaproxy.ErrMalformedReference) {
				result.Malformed++
				logger.Warn("skipping malformed media url",
					"table", rec.Table, "column", rec.Column, "row", rec.RowID, "url", rec.URL)
				continue
			}
			if err != nil {
				return result, err
			}

			canonical := resolved.ExternalURL()
			if canonical == rec.URL {
				result.Canonical++
				continue
			}

			rec.URL = canonical
			if err := store.UpdateMediaURL(ctx, rec); err != nil {
				return result, fmt.Errorf("updating %s.%s row %d: %w", rec.Table, rec.Column, rec.RowID, err)
			}
			result.Rewritten++
		}
	}
}
