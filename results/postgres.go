// Package results PostgreSQL storage. Use: go get github.com/lib/pq and import _ "github.com/lib/pq".
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/klejdi94/clipbench/core"
)

// PostgresStore stores reports in PostgreSQL. The full report is kept as
// JSONB; model, run id and created_at are broken out for querying.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore creates a store. table defaults to "eval_reports". If
// createTable is true, the table is created.
func NewPostgresStore(db *sql.DB, table string, createTable bool) (*PostgresStore, error) {
	if table == "" {
		table = "eval_reports"
	}
	s := &PostgresStore{db: db, table: table}
	if createTable {
		if err := s.createTable(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		model VARCHAR(255) NOT NULL,
		run_id VARCHAR(64) NOT NULL,
		report JSONB NOT NULL,
		created_at TIMESTAMPTZ,
		PRIMARY KEY (model, run_id)
	)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_`+s.table+`_model_created ON `+s.table+`(model, created_at DESC)`)
	return err
}

// Store saves a report.
func (s *PostgresStore) Store(ctx context.Context, report *core.Report) error {
	if report == nil || report.Model == "" || report.RunID == "" {
		return fmt.Errorf("postgres store: report model and run id required")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("postgres store encode: %w", err)
	}
	q := `INSERT INTO ` + s.table + ` (model, run_id, report, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model, run_id) DO UPDATE SET
			report = EXCLUDED.report, created_at = EXCLUDED.created_at`
	_, err = s.db.ExecContext(ctx, q, report.Model, report.RunID, payload, report.CreatedAt)
	return err
}

// Get retrieves a report by model and run id.
func (s *PostgresStore) Get(ctx context.Context, model, runID string) (*core.Report, error) {
	q := `SELECT report FROM ` + s.table + ` WHERE model = $1 AND run_id = $2`
	var payload []byte
	err := s.db.QueryRowContext(ctx, q, model, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, core.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	var r core.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("postgres store decode: %w", err)
	}
	return &r, nil
}

// Latest returns the model's most recent report.
func (s *PostgresStore) Latest(ctx context.Context, model string) (*core.Report, error) {
	q := `SELECT report FROM ` + s.table + ` WHERE model = $1 ORDER BY created_at DESC LIMIT 1`
	var payload []byte
	err := s.db.QueryRowContext(ctx, q, model).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, core.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	var r core.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("postgres store decode: %w", err)
	}
	return &r, nil
}

// List returns reports matching the filter, newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*core.Report, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	q := `SELECT report FROM ` + s.table + ` WHERE 1=1`
	args := []interface{}{}
	argNum := 1
	if len(filter.Models) > 0 {
		q += ` AND model = ANY($` + fmt.Sprint(argNum) + `)`
		args = append(args, pq.Array(filter.Models))
		argNum++
	}
	q += ` ORDER BY created_at DESC OFFSET $` + fmt.Sprint(argNum) + ` LIMIT $` + fmt.Sprint(argNum+1)
	args = append(args, filter.Offset, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*core.Report
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r core.Report
		if err := json.Unmarshal(payload, &r); err != nil {
			continue
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Delete removes a report.
func (s *PostgresStore) Delete(ctx context.Context, model, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE model = $1 AND run_id = $2`, model, runID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrReportNotFound
	}
	return nil
}
