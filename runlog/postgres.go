// Package runlog: PostgreSQL Store for persistent batch history.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const defaultTableName = "eval_batches"

// PostgresStore implements Store using a PostgreSQL table.
type PostgresStore struct {
	db        *sql.DB
	tableName string
}

// NewPostgresStore creates a store that uses the given *sql.DB (e.g. driver
// "postgres"). The table is created if it doesn't exist.
func NewPostgresStore(db *sql.DB, tableName string) (*PostgresStore, error) {
	if tableName == "" {
		tableName = defaultTableName
	}
	s := &PostgresStore{db: db, tableName: tableName}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
		id BIGSERIAL PRIMARY KEY,
		model TEXT NOT NULL,
		run_id TEXT NOT NULL,
		batch INT NOT NULL DEFAULT 0,
		samples INT NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL DEFAULT false,
		at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_eval_batches_model_run ON ` + s.tableName + ` (model, run_id);
	CREATE INDEX IF NOT EXISTS idx_eval_batches_at ON ` + s.tableName + ` (at);`
	_, err := s.db.ExecContext(ctx, q)
	return err
}

// Record implements Store.
func (s *PostgresStore) Record(ctx context.Context, r RunRecord) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.tableName+` (model, run_id, batch, samples, latency_ms, success, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.Model, r.RunID, r.Batch, r.Samples, r.LatencyMs, r.Success, r.At)
	return err
}

// Query implements Store.
func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Aggregate, error) {
	args := []interface{}{}
	where := "1=1"
	n := 1
	if q.Model != "" {
		args = append(args, q.Model)
		where += fmt.Sprintf(" AND model = $%d", n)
		n++
	}
	if q.RunID != "" {
		args = append(args, q.RunID)
		where += fmt.Sprintf(" AND run_id = $%d", n)
		n++
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		where += fmt.Sprintf(" AND at >= $%d", n)
		n++
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where += fmt.Sprintf(" AND at <= $%d", n)
		n++
	}

	groupCol := "NULL"
	switch q.GroupBy {
	case "model":
		groupCol = "model"
	case "run":
		groupCol = "model || '@' || run_id"
	case "day":
		groupCol = "date_trunc('day', at)::date::text"
	case "hour":
		groupCol = "to_char(date_trunc('hour', at), 'YYYY-MM-DD-HH24')"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	limitPlaceholder := fmt.Sprintf("$%d", n)

	query := `SELECT ` + groupCol + ` AS key,
		COUNT(*)::bigint AS batches,
		COUNT(*) FILTER (WHERE success)::bigint AS success_count,
		COALESCE(AVG(latency_ms) FILTER (WHERE success), 0) AS avg_latency_ms,
		COALESCE(SUM(samples), 0)::bigint AS total_samples
		FROM ` + s.tableName + `
		WHERE ` + where + `
		GROUP BY ` + groupCol + `
		ORDER BY batches DESC
		LIMIT ` + limitPlaceholder

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Aggregate
	for rows.Next() {
		var a Aggregate
		var k sql.NullString
		if err := rows.Scan(&k, &a.Batches, &a.SuccessCount, &a.AvgLatencyMs, &a.TotalSamples); err != nil {
			return nil, err
		}
		if k.Valid {
			a.Key = k.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
