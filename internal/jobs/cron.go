package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/dt-jamiem/jira-dashboard/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type service interface {
	RunDigest(ctx context.Context) (services.Digest, error)
}

type Cron struct {
	cfg config.Config
	log zerolog.Logger
	svc service
	c   *cron.Cron
}

// NewCron schedules the digest on cfg.DigestCron, a five-field spec evaluated
// in the configured time zone. An empty spec disables scheduling.
func NewCron(cfg config.Config, log zerolog.Logger, svc service) (*Cron, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, svc: svc, c: c}
	if cfg.DigestCron == "" {
		return cr, nil
	}
	if _, err := c.AddFunc(cfg.DigestCron, cr.digest); err != nil {
		return nil, fmt.Errorf("digest schedule %q: %w", cfg.DigestCron, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop halts scheduling and waits for a running digest to finish.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

// Next is the next scheduled digest, zero when none is scheduled.
func (cr *Cron) Next() time.Time {
	es := cr.c.Entries()
	if len(es) == 0 {
		return time.Time{}
	}
	return es[0].Schedule.Next(time.Now().In(cr.c.Location()))
}

func (cr *Cron) digest() {
	ctx, cancel := context.WithTimeout(context.Background(), services.DigestTimeout)
	defer cancel()
	cr.log.Info().Msg("cron: digest")
	d, err := cr.svc.RunDigest(ctx)
	switch {
	case errors.Is(err, services.ErrDigestRunning):
		cr.log.Info().Msg("cron: already running elsewhere")
	case err != nil:
		cr.log.Error().Err(err).Msg("cron: digest failed")
	default:
		cr.log.Info().Bool("delivered", d.Delivered).Int("issues", d.IssuesScanned).Msg("cron: digest done")
	}
}
