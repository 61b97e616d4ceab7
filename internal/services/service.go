/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/repo"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
	"github.com/dt-jamiem/jira-dashboard/internal/timeseries"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher drains paginated searches. source.Paginator implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, q source.Query) ([]domain.IssueRecord, error)
	FetchMany(ctx context.Context, queries ...source.Query) (source.Results, error)
	Count(ctx context.Context, filter domain.Filter) (int, error)
}

// Catalog answers lookups that are not issue searches.
type Catalog interface {
	Epics(ctx context.Context, keys []string) (map[string]domain.EpicRecord, error)
	Projects(ctx context.Context) ([]domain.Project, error)
}

type Narrator interface {
	Enabled() bool
	Narrate(ctx context.Context, facts any) (string, error)
}

type Notifier interface {
	Enabled() bool
	Broadcast(ctx context.Context, text string) error
}

// RunLog records digest runs. It is optional.
type RunLog interface {
	WithAdvisoryLock(ctx context.Context, key int64, fn func(context.Context) error) (bool, error)
	StartRun(ctx context.Context, kind string, params map[string]any) (uuid.UUID, error)
	FinishRun(ctx context.Context, id uuid.UUID, res repo.RunResult) error
	LastRun(ctx context.Context) (*repo.LastRun, error)
}

var (
	// ErrUnknownTeam is returned for a team key with no preset.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrNoRunLog is returned by LastRun when no database is configured.
	ErrNoRunLog = errors.New("run log not configured")
)

// Service assembles reports from fresh fetches. It holds no report state.
type Service struct {
	cfg   config.Config
	an    config.Analytics
	rules config.Rulebook
	log   zerolog.Logger

	issues  Fetcher
	catalog Catalog
	llm     Narrator
	tg      Notifier
	runs    RunLog

	now func() time.Time
}

// New wires the service. llm, tg and runs may be nil.
func New(cfg config.Config, an config.Analytics, rules config.Rulebook, log zerolog.Logger,
	issues Fetcher, catalog Catalog, llm Narrator, tg Notifier, runs RunLog) *Service {
	return &Service{
		cfg: cfg, an: an, rules: rules, log: log,
		issues: issues, catalog: catalog, llm: llm, tg: tg, runs: runs,
		now: time.Now,
	}
}

var (
	baseFields     = []string{"summary", "status", "issuetype", "priority", "assignee", "reporter", "created", "resolutiondate", "project", "components"}
	textFields     = append(append([]string(nil), baseFields...), "description")
	capacityFields = append(append([]string(nil), baseFields...), "parent", "issuelinks", "timeoriginalestimate")
)

func (s *Service) loc() *time.Location {
	if s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.UTC
}

// window is the last days calendar days ending today.
func (s *Service) window(days int) timeseries.Window {
	return timeseries.DaysBack(s.now(), days, s.loc())
}

func (s *Service) team(key string) (config.Team, string, error) {
	if key == "" {
		key = s.an.DefaultTeam
	}
	key = strings.ToLower(key)
	t, ok := s.an.Team(key)
	if !ok {
		return config.Team{}, key, fmt.Errorf("%w: %q", ErrUnknownTeam, key)
	}
	return t, key, nil
}

func (s *Service) fetchCap() int {
	if s.an.FetchCap > 0 {
		return s.an.FetchCap
	}
	return source.DefaultCap
}

// scope narrows base by clauses and orders newest first.
func scope(base string, clauses ...string) domain.Filter {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(strings.TrimSpace(base))
	b.WriteString(")")
	for _, c := range clauses {
		b.WriteString(" AND ")
		b.WriteString(c)
	}
	b.WriteString(" ORDER BY created DESC")
	return domain.Filter(b.String())
}

func jqlDate(t time.Time) string { return `"` + t.Format("2006-01-02") + `"` }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
