package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNoRuns is returned by LastRun before anything was recorded.
var ErrNoRuns = errors.New("repo: no report runs recorded")

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Open connects and pings. The run log is optional, so failure is returned
// rather than fatal.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &DB{Pool: pool, log: log}, nil
}

func (d *DB) Close() { d.Pool.Close() }

// Repository records report runs. Report data itself is never stored.
type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

const schema = `
CREATE TABLE IF NOT EXISTS report_runs (
	id             uuid PRIMARY KEY,
	kind           text NOT NULL,
	params         jsonb NOT NULL DEFAULT '{}'::jsonb,
	started_at     timestamptz NOT NULL DEFAULT now(),
	finished_at    timestamptz,
	issues_scanned integer NOT NULL DEFAULT 0,
	delivered      boolean NOT NULL DEFAULT false,
	success        boolean NOT NULL DEFAULT false,
	error          text NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS report_runs_started_idx ON report_runs (started_at DESC);`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// WithAdvisoryLock runs fn while holding a session advisory lock on one pooled
// connection. It returns false without running fn when another session holds it.
func (r *Repository) WithAdvisoryLock(ctx context.Context, key int64, fn func(context.Context) error) (bool, error) {
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		var unlocked bool
		// the caller's ctx may be done by now
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := conn.QueryRow(uctx, "SELECT pg_advisory_unlock($1)", key).Scan(&unlocked); err != nil || !unlocked {
			r.log.Warn().Err(err).Int64("key", key).Msg("advisory unlock failed")
		}
	}()
	return true, fn(ctx)
}

// StartRun records the start of a report run and returns its id.
func (r *Repository) StartRun(ctx context.Context, kind string, params map[string]any) (uuid.UUID, error) {
	id := uuid.New()
	raw, err := json.Marshal(params)
	if err != nil {
		return uuid.Nil, err
	}
	const q = `INSERT INTO report_runs(id, kind, params, started_at) VALUES($1, $2, $3, now())`
	if _, err := r.db.Pool.Exec(ctx, q, id, kind, raw); err != nil {
		return uuid.Nil, fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

type RunResult struct {
	IssuesScanned int
	Delivered     bool
	Err           error
}

func (r *Repository) FinishRun(ctx context.Context, id uuid.UUID, res RunResult) error {
	errStr := ""
	if res.Err != nil {
		errStr = res.Err.Error()
	}
	const q = `UPDATE report_runs SET finished_at=now(), issues_scanned=$2, delivered=$3, success=$4, error=$5 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, res.IssuesScanned, res.Delivered, res.Err == nil, errStr)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

type LastRun struct {
	ID            uuid.UUID       `json:"id"`
	Kind          string          `json:"kind"`
	Params        json.RawMessage `json:"params"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at"`
	IssuesScanned int             `json:"issues_scanned"`
	Delivered     bool            `json:"delivered"`
	Success       bool            `json:"success"`
	Error         string          `json:"error"`
}

func (r *Repository) LastRun(ctx context.Context) (*LastRun, error) {
	const q = `SELECT id, kind, params, started_at, finished_at, issues_scanned, delivered, success, error
		FROM report_runs ORDER BY started_at DESC LIMIT 1`
	lr := &LastRun{}
	var params []byte
	err := r.db.Pool.QueryRow(ctx, q).Scan(&lr.ID, &lr.Kind, &params, &lr.StartedAt, &lr.FinishedAt,
		&lr.IssuesScanned, &lr.Delivered, &lr.Success, &lr.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	lr.Params = params
	return lr, nil
}
