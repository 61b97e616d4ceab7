package repo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/rs/zerolog"
)

// Needs a disposable database: TEST_DB_DSN=postgres://... go test ./internal/repo
func openTest(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := Open(ctx, config.Config{DBDSN: dsn}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(db.Close)
	r := NewRepository(db, zerolog.Nop())
	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return r
}

func TestRunLog(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	id, err := r.StartRun(ctx, "digest", map[string]any{"days": 7})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := r.FinishRun(ctx, id, RunResult{IssuesScanned: 12, Err: errors.New("jira search: status=503")}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	lr, err := r.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if lr.ID != id || lr.Success || lr.IssuesScanned != 12 || lr.FinishedAt == nil || lr.Error == "" {
		t.Fatalf("last run: %+v", lr)
	}
}

func TestAdvisoryLockExcludes(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	const key = 424242
	ran, err := r.WithAdvisoryLock(ctx, key, func(ctx context.Context) error {
		inner, err := r.WithAdvisoryLock(ctx, key, func(context.Context) error {
			t.Errorf("nested holder must not run")
			return nil
		})
		if err != nil || inner {
			t.Errorf("second acquire should fail quietly: %v %v", inner, err)
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("first acquire: %v %v", ran, err)
	}
	again, err := r.WithAdvisoryLock(ctx, key, func(context.Context) error { return nil })
	if err != nil || !again {
		t.Fatalf("lock should be released: %v %v", again, err)
	}
}
