package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
)

const scanColumns = "id, provider, status, progress, message, document, started_at, updated_at, completed_at"

// ScanRepository implements scan.Store for PostgreSQL/SQLite
type ScanRepository struct {
	db        *sql.DB
	forUpdate string
}

// NewScanRepository creates a new scan repository. driver selects row locking for postgres.
func NewScanRepository(db *sql.DB, driver string) *ScanRepository {
	r := &ScanRepository{db: db}
	if driver == "postgres" {
		r.forUpdate = " FOR UPDATE"
	}
	return r
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Create implements scan.Store
func (r *ScanRepository) Create(ctx context.Context, st *scan.ScanState) error {
	doc, err := encodeDocument(st.Document)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scans (` + scanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		st.ID,
		string(st.Provider),
		string(st.Status),
		st.Progress,
		st.Message,
		doc,
		st.StartedAt.UTC(),
		st.UpdatedAt.UTC(),
		nullTime(st),
	)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

// Get implements scan.Store
func (r *ScanRepository) Get(ctx context.Context, id string) (*scan.ScanState, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+scanColumns+" FROM scans WHERE id = $1", id)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("scan " + id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return st, nil
}

// Update implements scan.Store inside a transaction
func (r *ScanRepository) Update(ctx context.Context, id string, fn func(*scan.ScanState) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, "SELECT "+scanColumns+" FROM scans WHERE id = $1"+r.forUpdate, id)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("scan " + id)
	}
	if err != nil {
		return fmt.Errorf("failed to load scan: %w", err)
	}

	if err := fn(st); err != nil {
		return err
	}

	doc, err := encodeDocument(st.Document)
	if err != nil {
		return err
	}

	query := `
		UPDATE scans
		SET status = $1, progress = $2, message = $3, document = $4, updated_at = $5, completed_at = $6
		WHERE id = $7
	`
	if _, err := tx.ExecContext(ctx, query,
		string(st.Status),
		st.Progress,
		st.Message,
		doc,
		st.UpdatedAt.UTC(),
		nullTime(st),
		id,
	); err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}

	return tx.Commit()
}

// List implements scan.Store
func (r *ScanRepository) List(ctx context.Context) ([]*scan.ScanState, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+scanColumns+" FROM scans ORDER BY started_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []*scan.ScanState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanState(row rowScanner) (*scan.ScanState, error) {
	var (
		st        scan.ScanState
		provider  string
		status    string
		doc       sql.NullString
		completed sql.NullTime
	)
	if err := row.Scan(&st.ID, &provider, &status, &st.Progress, &st.Message, &doc,
		&st.StartedAt, &st.UpdatedAt, &completed); err != nil {
		return nil, err
	}

	st.Provider = scan.Provider(provider)
	st.Status = scan.Status(status)
	if completed.Valid {
		t := completed.Time
		st.CompletedAt = &t
	}
	if doc.Valid && doc.String != "" {
		var d scan.Document
		if err := json.Unmarshal([]byte(doc.String), &d); err != nil {
			return nil, fmt.Errorf("failed to decode scan document: %w", err)
		}
		if d.Resources == nil {
			d.Resources = make(map[string][]scan.Record)
		}
		st.Document = &d
	}
	return &st, nil
}

func encodeDocument(doc *scan.Document) (sql.NullString, error) {
	if doc == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode scan document: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullTime(st *scan.ScanState) sql.NullTime {
	if st.CompletedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: st.CompletedAt.UTC(), Valid: true}
}

var _ scan.Store = (*ScanRepository)(nil)
