package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/media-proxy/pkg/mediaproxy/repo"
)

// Target names one table/column pair holding media URLs. Identifiers come
// from operator configuration, never from request input; they are still
// validated before being interpolated into SQL.
type Target struct {
	Table  string
	Column string
}

// Store is a pgx-backed implementation of repo.URLRecordStore spanning a
// configured set of table/column targets. Paging is by (target index,
// primary key id) so a pass sees a stable order.
type Store struct {
	pool    *pgxpool.Pool
	targets []Target
}

// NewWithPool creates a postgres URL record store using an existing pool
func NewWithPool(pool *pgxpool.Pool, targets []Target) (*Store, error) {
	for _, t := range targets {
		if !validIdent(t.Table) || !validIdent(t.Column) {
			return nil, fmt.Errorf("invalid migration target %q.%q", t.Table, t.Column)
		}
	}
	return &Store{pool: pool, targets: targets}, nil
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// ListMediaURLs pages through URL cells across all configured targets
func (s *Store) ListMediaURLs(ctx context.Context, limit, offset int) ([]repo.URLRecord, error) {
	var parts []string
	for _, t := range s.targets {
		parts = append(parts, fmt.Sprintf(
			"SELECT '%s' AS tbl, '%s' AS col, id, %s AS url FROM %s WHERE %s IS NOT NULL AND %s <> ''",
			t.Table, t.Column, t.Column, t.Table, t.Column, t.Column))
	}
	if len(parts) == 0 {
		return nil, nil
	}

	query := strings.Join(parts, " UNION ALL ") + " ORDER BY tbl, col, id LIMIT $1 OFFSET $2"
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying media urls: %w", err)
	}
	defer rows.Close()

	var records []repo.URLRecord
	for rows.Next() {
		var rec repo.URLRecord
		if err := rows.Scan(&rec.Table, &rec.Column, &rec.RowID, &rec.URL); err != nil {
			return nil, fmt.Errorf("scanning media url row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateMediaURL rewrites one URL cell
func (s *Store) UpdateMediaURL(ctx context.Context, rec repo.URLRecord) error {
	if !validIdent(rec.Table) || !validIdent(rec.Column) {
		return fmt.Errorf("invalid migration target %q.%q", rec.Table, rec.Column)
	}
	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE id = $2", rec.Table, rec.Column)
	if _, err := s.pool.Exec(ctx, query, rec.URL, rec.RowID); err != nil {
		return fmt.Errorf("updating media url: %w", err)
	}
	return nil
}
