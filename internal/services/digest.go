/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/repo"
	"golang.org/x/sync/errgroup"
)

// digestLockKey serialises digests across replicas sharing one database.
const digestLockKey int64 = 0x6a697261

const digestKind = "digest"

// DigestTimeout bounds one digest run, scheduled or on demand, including
// delivery.
const DigestTimeout = 5 * time.Minute

// ErrDigestRunning is returned when another process holds the digest lock.
var ErrDigestRunning = errors.New("digest already running")

// Digest is what one digest run produced.
type Digest struct {
	Team          string `json:"team"`
	Days          int    `json:"days"`
	Text          string `json:"text"`
	Narrative     string `json:"narrative,omitempty"`
	Delivered     bool   `json:"delivered"`
	IssuesScanned int    `json:"issuesScanned"`
}

// RunDigest builds the default team's digest, narrates it when a model is
// configured and broadcasts it. With a run log the run is recorded and
// guarded by an advisory lock.
func (s *Service) RunDigest(ctx context.Context) (Digest, error) {
	if s.runs == nil {
		return s.digest(ctx)
	}
	var (
		d   Digest
		err error
	)
	ran, lerr := s.runs.WithAdvisoryLock(ctx, digestLockKey, func(ctx context.Context) error {
		id, serr := s.runs.StartRun(ctx, digestKind, map[string]any{"team": s.an.DefaultTeam, "days": s.digestDays()})
		if serr != nil {
			s.log.Error().Err(serr).Msg("start run failed")
		}
		d, err = s.digest(ctx)
		if serr == nil {
			res := repo.RunResult{IssuesScanned: d.IssuesScanned, Delivered: d.Delivered, Err: err}
			if ferr := s.runs.FinishRun(ctx, id, res); ferr != nil {
				s.log.Error().Err(ferr).Msg("finish run failed")
			}
		}
		return err
	})
	if lerr != nil && err == nil {
		return Digest{}, lerr
	}
	if !ran {
		s.log.Warn().Msg("digest skipped: lock held elsewhere")
		return Digest{}, ErrDigestRunning
	}
	return d, err
}

// LastRun returns the most recent recorded digest run.
func (s *Service) LastRun(ctx context.Context) (*repo.LastRun, error) {
	if s.runs == nil {
		return nil, ErrNoRunLog
	}
	return s.runs.LastRun(ctx)
}

func (s *Service) digestDays() int { return orDefault(s.cfg.DigestDays, 7) }

func (s *Service) digest(ctx context.Context) (Digest, error) {
	days := s.digestDays()
	team := s.an.DefaultTeam
	var (
		tr Trends
		ta TeamAnalytics
		cp CapacityReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tr, err = s.Trends(gctx, team, days, false)
		return err
	})
	g.Go(func() (err error) {
		ta, err = s.Analytics(gctx, team, days)
		return err
	})
	g.Go(func() (err error) {
		cp, err = s.Capacity(gctx, days)
		return err
	})
	if err := g.Wait(); err != nil {
		return Digest{}, fmt.Errorf("digest reports: %w", err)
	}

	d := Digest{
		Team:          team,
		Days:          days,
		Text:          renderDigest(tr, ta, cp),
		IssuesScanned: tr.TotalIssues + ta.TotalTickets + cp.Summary.TotalOpenTickets,
	}
	if s.llm != nil && s.llm.Enabled() {
		n, err := s.llm.Narrate(ctx, digestFacts(tr, ta, cp))
		if err != nil {
			s.log.Warn().Err(err).Msg("digest narrative failed")
		} else {
			d.Narrative = n
		}
	}
	if s.tg == nil || !s.tg.Enabled() {
		s.log.Info().Msg("digest built; telegram not configured")
		return d, nil
	}
	msg := d.Text
	if d.Narrative != "" {
		msg += "\n\n" + d.Narrative
	}
	if err := s.tg.Broadcast(ctx, msg); err != nil {
		return d, fmt.Errorf("digest delivery: %w", err)
	}
	d.Delivered = true
	s.log.Info().Str("team", team).Int("issues", d.IssuesScanned).Msg("digest delivered")
	return d, nil
}

func renderDigest(tr Trends, ta TeamAnalytics, cp CapacityReport) string {
	b := &strings.Builder{}
	rm := tr.ResolutionMetrics
	fmt.Fprintf(b, "Jira digest: %s, last %d days\n", tr.TeamName, tr.PeriodDays)
	fmt.Fprintf(b, "Created: %d  Resolved: %d  Resolution rate: %d%%\n", rm.TotalCreated, rm.TotalResolved, rm.ResolutionRate)
	fmt.Fprintf(b, "Avg resolution: %.1f days\n", rm.AvgDays)
	if n := len(tr.VolumeData); n > 0 {
		fmt.Fprintf(b, "Open now: %d\n", tr.VolumeData[n-1].Open)
	}
	cs := cp.Summary
	fmt.Fprintf(b, "\nCapacity: %d open, %.1fh of work, velocity %.1f/week, net flow %+d (%s)\n",
		cs.TotalOpenTickets, cs.TotalHours, cs.Velocity, cs.NetFlow, cs.Trend)
	for _, bk := range cp.Buckets {
		fmt.Fprintf(b, "- %s: %d tickets, %.1fh\n", bk.Name, bk.Total.Tickets, bk.TotalHours)
	}
	if rc := ta.IncidentAnalysis.RootCauses; len(rc) > 0 {
		fmt.Fprintf(b, "\nTop root causes (%d incidents):\n", ta.IncidentAnalysis.TotalIncidents)
		for i, c := range rc {
			if i == 3 {
				break
			}
			fmt.Fprintf(b, "- %s: %d (%d%%)\n", c.Label, c.Count, c.Percentage)
		}
	}
	if wl := cp.AssigneeWorkload; len(wl) > 0 {
		b.WriteString("\nHeaviest workload:\n")
		for i, w := range wl {
			if i == 3 {
				break
			}
			fmt.Fprintf(b, "- %s: %d open, %.1fh\n", w.Name, w.OpenTickets, w.TotalHours)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// digestFacts is the narrator input. People are aliased and free text is scrubbed.
func digestFacts(tr Trends, ta TeamAnalytics, cp CapacityReport) map[string]any {
	people := newAliaser()
	causes := make([]map[string]any, 0, len(ta.IncidentAnalysis.RootCauses))
	for _, c := range ta.IncidentAnalysis.RootCauses {
		ex := make([]string, 0, len(c.Examples))
		for _, e := range c.Examples {
			ex = append(ex, scrub(e.Summary))
		}
		causes = append(causes, map[string]any{"category": c.Label, "count": c.Count, "examples": ex})
	}
	workload := make([]map[string]any, 0, len(cp.AssigneeWorkload))
	for _, w := range cp.AssigneeWorkload {
		workload = append(workload, map[string]any{
			"person":      people.alias(w.Name),
			"open":        w.OpenTickets,
			"hours":       w.TotalHours,
			"oldest_days": w.OldestAgeDays,
		})
	}
	buckets := map[string]any{}
	for _, b := range cp.Buckets {
		buckets[b.Name] = map[string]any{"tickets": b.Total.Tickets, "hours": b.TotalHours}
	}
	return map[string]any{
		"team":        tr.TeamName,
		"days":        tr.PeriodDays,
		"resolution":  tr.ResolutionMetrics,
		"capacity":    cp.Summary,
		"buckets":     buckets,
		"root_causes": causes,
		"workload":    workload,
	}
}

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+`)
	phoneRe    = regexp.MustCompile(`\+?\d[\d\-\s]{7,}\d`)
	urlRe      = regexp.MustCompile(`https?://[^\s]+`)
	tokenRe    = regexp.MustCompile(`(?i)\b(?:token|secret|password|apikey|api_key|bearer)[:=\s]+[A-Za-z0-9\-\._~+/]{8,}`)
	jiraUserRe = regexp.MustCompile(`\bJIRAUSER\d+\b`)
)

// scrub masks contact details and secrets in free text.
func scrub(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = emailRe.ReplaceAllString(s, "<email>")
	s = urlRe.ReplaceAllString(s, "<url>")
	s = tokenRe.ReplaceAllString(s, "<secret>")
	s = phoneRe.ReplaceAllString(s, "<phone>")
	s = jiraUserRe.ReplaceAllString(s, "<user>")
	return s
}

// aliaser hands out stable pseudonyms. Unassigned stays as is.
type aliaser struct {
	names map[string]string
	next  int
}

func newAliaser() *aliaser { return &aliaser{names: map[string]string{}, next: 1} }

func (a *aliaser) alias(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == domain.Unassigned {
		return domain.Unassigned
	}
	if v, ok := a.names[name]; ok {
		return v
	}
	v := fmt.Sprintf("person%02d", a.next)
	a.next++
	a.names[name] = v
	return v
}
