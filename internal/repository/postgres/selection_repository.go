package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// SelectionRepository implements scan.SelectionStore for PostgreSQL/SQLite
type SelectionRepository struct {
	db *sql.DB
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(db *sql.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Get implements scan.SelectionStore
func (r *SelectionRepository) Get(ctx context.Context, scanID string) (scan.Selection, error) {
	return r.get(ctx, r.db, scanID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SelectionRepository) get(ctx context.Context, q querier, scanID string) (scan.Selection, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT selection FROM selections WHERE scan_id = $1", scanID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return scan.Selection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}

	sel := scan.Selection{}
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return nil, fmt.Errorf("failed to decode selection: %w", err)
	}
	return sel, nil
}

// Put implements scan.SelectionStore
func (r *SelectionRepository) Put(ctx context.Context, scanID string, sel scan.Selection) error {
	return r.put(ctx, r.db, scanID, sel)
}

func (r *SelectionRepository) put(ctx context.Context, q querier, scanID string, sel scan.Selection) error {
	if sel == nil {
		sel = scan.Selection{}
	}
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}

	query := `
		INSERT INTO selections (scan_id, selection, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (scan_id) DO UPDATE SET selection = excluded.selection, updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, scanID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	return nil
}

// Merge implements scan.SelectionStore
func (r *SelectionRepository) Merge(ctx context.Context, scanID string, sel scan.Selection) (scan.Selection, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := r.get(ctx, tx, scanID)
	if err != nil {
		return nil, err
	}
	merged := current.Merge(sel)
	if err := r.put(ctx, tx, scanID, merged); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit selection: %w", err)
	}
	return merged, nil
}

var _ scan.SelectionStore = (*SelectionRepository)(nil)
