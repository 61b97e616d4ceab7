/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"sort"
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
	"golang.org/x/sync/errgroup"
)

// Statistics aggregates up to maxResults issues of the base filter.
func (s *Service) Statistics(ctx context.Context, maxResults int) (metrics.Summary, error) {
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   "statistics",
		Filter: scope(s.an.BaseFilter),
		Fields: baseFields,
		Cap:    orDefault(maxResults, source.DefaultCap),
	})
	if err != nil {
		return metrics.Summary{}, err
	}
	sum := metrics.Aggregate(issues)
	s.log.Info().Int("issues", sum.TotalIssues).Msg("statistics report")
	return sum, nil
}

type Performance struct {
	AvgCycleTime     int `json:"avgCycleTime"`
	AvgLeadTime      int `json:"avgLeadTime"`
	Throughput       int `json:"throughput"`
	TotalIssues      int `json:"totalIssues"`
	ResolvedIssues   int `json:"resolvedIssues"`
	InProgressIssues int `json:"inProgressIssues"`
	PeriodDays       int `json:"periodDays"`
}

// Performance covers issues created or resolved in the last days days.
// Throughput is resolved issues per week.
func (s *Service) Performance(ctx context.Context, days int) (Performance, error) {
	days = orDefault(days, 30)
	since := jqlDate(s.now().In(s.loc()).AddDate(0, 0, -days))
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   "performance",
		Filter: scope(s.an.BaseFilter, "(created >= "+since+" OR resolved >= "+since+")"),
		Fields: baseFields,
		Cap:    source.DefaultCap,
	})
	if err != nil {
		return Performance{}, err
	}
	sum := metrics.Aggregate(issues)
	p := Performance{
		AvgCycleTime: sum.AvgCycleTime,
		AvgLeadTime:  sum.AvgLeadTime,
		TotalIssues:  len(issues),
		PeriodDays:   days,
	}
	for _, is := range issues {
		if is.Resolved != nil {
			p.ResolvedIssues++
		}
		if inProgress(is.Status.Name) {
			p.InProgressIssues++
		}
	}
	p.Throughput = metrics.Throughput(p.ResolvedIssues, days)
	return p, nil
}

func inProgress(status string) bool {
	return strings.Contains(strings.ToLower(status), "progress")
}

type ProjectOverview struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Lead        string `json:"lead"`
	TotalIssues int    `json:"totalIssues"`
}

// Overview counts base-filter issues of every configured project. Projects
// without issues are left out.
func (s *Service) Overview(ctx context.Context) ([]ProjectOverview, error) {
	targets, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]int, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range targets {
		i, p := i, p
		g.Go(func() error {
			n, err := s.issues.Count(gctx, domain.Filter("("+strings.TrimSpace(s.an.BaseFilter)+`) AND project = "`+p.Key+`"`))
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ProjectOverview, 0, len(targets))
	for i, p := range targets {
		if counts[i] == 0 {
			continue
		}
		out = append(out, ProjectOverview{Key: p.Key, Name: p.Name, Lead: p.Lead, TotalIssues: counts[i]})
	}
	return out, nil
}

type ProgressIssue struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// Progress is the completion of one initiative or component.
type Progress struct {
	Name                 string          `json:"name"`
	Total                int             `json:"total"`
	Completed            int             `json:"completed"`
	InProgress           int             `json:"inProgress"`
	Todo                 int             `json:"todo"`
	CompletionPercentage int             `json:"completionPercentage"`
	Issues               []ProgressIssue `json:"issues"`
}

// Initiatives groups issues by their project short name.
func (s *Service) Initiatives(ctx context.Context, maxResults int) ([]Progress, error) {
	field := s.cfg.FieldID(s.an.ShortNameField)
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   "initiatives",
		Filter: scope(s.an.InitiativeFilter),
		Fields: []string{"summary", "status", field},
		Cap:    orDefault(maxResults, source.DefaultCap),
	})
	if err != nil {
		return nil, err
	}
	return s.progress(issues, func(is domain.IssueRecord) []string {
		return []string{is.ShortName}
	}), nil
}

// TechnologyInitiatives groups issues by component. An issue with several
// components counts once for each.
func (s *Service) TechnologyInitiatives(ctx context.Context, maxResults int) ([]Progress, error) {
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   "technology-initiatives",
		Filter: scope(s.an.TechnologyFilter),
		Fields: []string{"summary", "status", "components"},
		Cap:    orDefault(maxResults, source.DefaultCap),
	})
	if err != nil {
		return nil, err
	}
	return s.progress(issues, func(is domain.IssueRecord) []string {
		return is.Components
	}), nil
}

// progress groups issues under each name returned by names and sorts groups
// by size, keeping first-seen order among equals.
func (s *Service) progress(issues []domain.IssueRecord, names func(domain.IssueRecord) []string) []Progress {
	idx := map[string]int{}
	out := []Progress{}
	for _, is := range issues {
		status := is.StatusName()
		for _, name := range names(is) {
			if strings.TrimSpace(name) == "" {
				name = domain.Unassigned
			}
			pos, ok := idx[name]
			if !ok {
				pos = len(out)
				idx[name] = pos
				out = append(out, Progress{Name: name, Issues: []ProgressIssue{}})
			}
			p := &out[pos]
			p.Total++
			switch {
			case s.done(status):
				p.Completed++
			case inProgress(status):
				p.InProgress++
			default:
				p.Todo++
			}
			p.Issues = append(p.Issues, ProgressIssue{Key: is.Key, Summary: is.Summary, Status: status})
		}
	}
	for i := range out {
		out[i].CompletionPercentage = metrics.Percent(out[i].Completed, out[i].Total)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

func (s *Service) done(status string) bool {
	for _, d := range s.an.DoneStatuses {
		if status == d {
			return true
		}
	}
	return false
}
