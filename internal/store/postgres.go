package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nitesh/bill_monitor/internal/db"
	"github.com/nitesh/bill_monitor/pkg/models"
)

// PgStore keeps the seen-bill set and the digest run log in Postgres.
type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(conn *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(conn, "postgres")}
}

func RunMigrations(conn *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS seen_bills(
  id TEXT PRIMARY KEY,
  first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS digest_runs(
  id UUID PRIMARY KEY,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  found_bills INTEGER NOT NULL DEFAULT 0,
  notified BOOLEAN NOT NULL DEFAULT false,
  bill_numbers JSONB NOT NULL DEFAULT '[]'::jsonb,
  error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_digest_runs_started ON digest_runs(started_at);
`
	_, err := conn.Exec(initSQL)
	return err
}

func (p *PgStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := []string{}
	if err := p.db.SelectContext(ctx, &ids, `SELECT id FROM seen_bills`); err != nil {
		return nil, fmt.Errorf("select seen bills: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// AddSeen inserts ids that are not stored yet. Existing rows are left alone,
// so concurrent runs can apply overlapping sets in any order.
func (p *PgStore) AddSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
INSERT INTO seen_bills (id)
SELECT unnest($1::text[])
ON CONFLICT (id) DO NOTHING
`
	if _, err := p.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("insert seen bills (%d ids): %w", len(ids), err)
	}
	return nil
}

type digestRunRow struct {
	models.DigestRun
	BillNumbers db.StringList `db:"bill_numbers"`
}

func (p *PgStore) SaveRun(ctx context.Context, run models.DigestRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	row := digestRunRow{DigestRun: run, BillNumbers: db.StringList(run.BillNumbers)}
	query := `
INSERT INTO digest_runs (id, started_at, finished_at, found_bills, notified, bill_numbers, error)
VALUES (:id, :started_at, :finished_at, :found_bills, :notified, CAST(:bill_numbers AS jsonb), :error)
`
	if _, err := p.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert digest run id=%s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (p *PgStore) RecentRuns(ctx context.Context, limit int) ([]models.DigestRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows := []digestRunRow{}
	query := `
SELECT id, started_at, finished_at, found_bills, notified, bill_numbers, error
FROM digest_runs
ORDER BY started_at DESC
LIMIT $1
`
	if err := p.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("select digest runs: %w", err)
	}
	out := make([]models.DigestRun, 0, len(rows))
	for _, r := range rows {
		run := r.DigestRun
		run.BillNumbers = []string(r.BillNumbers)
		out = append(out, run)
	}
	return out, nil
}

func (p *PgStore) Close() error {
	return p.db.Close()
}
