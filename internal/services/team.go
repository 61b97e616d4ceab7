/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"sort"

	"github.com/dt-jamiem/jira-dashboard/internal/classify"
	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
	"github.com/dt-jamiem/jira-dashboard/internal/timeseries"
)

type Trends struct {
	Team              string                     `json:"team"`
	TeamName          string                     `json:"teamName"`
	VolumeData        []domain.TimeSeriesPoint   `json:"volumeData"`
	ResolutionMetrics timeseries.ResolutionStats `json:"resolutionMetrics"`
	StatusBreakdown   map[string]int             `json:"statusBreakdown"`
	PriorityBreakdown map[string]int             `json:"priorityBreakdown"`
	TotalIssues       int                        `json:"totalIssues"`
	PeriodDays        int                        `json:"periodDays"`
}

// Trends reconstructs daily created, resolved and open counts for a team.
// The fetch includes every issue that was open at some point in the window.
func (s *Service) Trends(ctx context.Context, teamKey string, days int, skipWeekends bool) (Trends, error) {
	t, key, err := s.team(teamKey)
	if err != nil {
		return Trends{}, err
	}
	days = orDefault(days, 90)
	w := s.window(days)
	since := jqlDate(w.Start)
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   "trends:" + key,
		Filter: scope(t.Filter, "(created >= "+since+" OR resolved >= "+since+" OR statusCategory != Done)"),
		Fields: baseFields,
		Cap:    s.fetchCap(),
	})
	if err != nil {
		return Trends{}, err
	}
	out := Trends{
		Team:              key,
		TeamName:          t.Name,
		VolumeData:        timeseries.ReconstructSweep(issues, w, skipWeekends),
		ResolutionMetrics: timeseries.Resolution(issues, w),
		StatusBreakdown:   metrics.CountBy(issues, domain.IssueRecord.StatusName),
		PriorityBreakdown: metrics.CountBy(issues, domain.IssueRecord.PriorityName),
		TotalIssues:       len(issues),
		PeriodDays:        days,
	}
	s.log.Info().Str("team", key).Int("issues", len(issues)).Int("points", len(out.VolumeData)).Msg("trends report")
	return out, nil
}

type OpenAge struct {
	Team            string                   `json:"team"`
	TeamName        string                   `json:"teamName"`
	TrendData       []domain.TimeSeriesPoint `json:"trendData"`
	CurrentMetrics  timeseries.Age           `json:"currentMetrics"`
	StatusBreakdown map[string]int           `json:"statusBreakdown"`
	PeriodDays      int                      `json:"periodDays"`
}

// OpenAge ages the team's currently open issues, per day of the window and now.
func (s *Service) OpenAge(ctx context.Context, teamKey string, days int) (OpenAge, error) {
	t, key, err := s.team(teamKey)
	if err != nil {
		return OpenAge{}, err
	}
	days = orDefault(days, 30)
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   "open-age:" + key,
		Filter: scope(t.Filter, "statusCategory != Done"),
		Fields: baseFields,
		Cap:    s.fetchCap(),
	})
	if err != nil {
		return OpenAge{}, err
	}
	return OpenAge{
		Team:            key,
		TeamName:        t.Name,
		TrendData:       timeseries.Reconstruct(issues, s.window(days), false),
		CurrentMetrics:  timeseries.AgeSnapshot(issues, s.now()),
		StatusBreakdown: metrics.CountBy(issues, domain.IssueRecord.StatusName),
		PeriodDays:      days,
	}, nil
}

type IncidentAnalysis struct {
	TotalIncidents int                     `json:"totalIncidents"`
	RootCauses     []domain.CategoryBucket `json:"rootCauses"`
}

// RequestType is one issue type with its sub-categories, when configured.
type RequestType struct {
	Type          string                  `json:"type"`
	Count         int                     `json:"count"`
	Percentage    int                     `json:"percentage"`
	SubCategories []domain.CategoryBucket `json:"subCategories"`
}

type AllCounts struct {
	IssueTypes map[string]int `json:"issueTypes"`
	Priorities map[string]int `json:"priorities"`
	Statuses   map[string]int `json:"statuses"`
}

type TeamAnalytics struct {
	Team                 string                     `json:"team"`
	TeamName             string                     `json:"teamName"`
	PeriodDays           int                        `json:"periodDays"`
	TotalTickets         int                        `json:"totalTickets"`
	OpenTickets          int                        `json:"openTickets"`
	Resolution           timeseries.ResolutionStats `json:"resolution"`
	IncidentAnalysis     IncidentAnalysis           `json:"incidentAnalysis"`
	RequestTypeBreakdown []RequestType              `json:"requestTypeBreakdown"`
	TopApplications      []domain.CategoryBucket    `json:"topApplications"`
	TopAssignees         []metrics.NameCount        `json:"topAssignees"`
	TopReporters         []metrics.NameCount        `json:"topReporters"`
	TopPriorities        []metrics.NameCount        `json:"topPriorities"`
	TopRequestTypes      []metrics.NameCount        `json:"topRequestTypes"`
	AllCounts            AllCounts                  `json:"allCounts"`
}

// Analytics classifies a team's recent tickets: root causes of incidents,
// sub-categories per request type and technology mentions.
func (s *Service) Analytics(ctx context.Context, teamKey string, days int) (TeamAnalytics, error) {
	t, key, err := s.team(teamKey)
	if err != nil {
		return TeamAnalytics{}, err
	}
	days = orDefault(days, 30)
	w := s.window(days)
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   "analytics:" + key,
		Filter: scope(t.Filter, "created >= "+jqlDate(w.Start)),
		Fields: textFields,
		Cap:    s.fetchCap(),
	})
	if err != nil {
		return TeamAnalytics{}, err
	}

	examples := s.an.MaxExamples
	top := s.an.TopN
	types := metrics.CountBy(issues, domain.IssueRecord.TypeName)
	out := TeamAnalytics{
		Team:            key,
		TeamName:        t.Name,
		PeriodDays:      days,
		TotalTickets:    len(issues),
		Resolution:      timeseries.Resolution(issues, w),
		TopApplications: classify.Tally(issues, s.rules.Applications, s.rules.ApplicationMode, examples),
		TopAssignees:    metrics.Ranked(metrics.CountBy(issues, domain.IssueRecord.AssigneeName), top),
		TopReporters:    metrics.Ranked(metrics.CountBy(issues, domain.IssueRecord.ReporterName), top),
		TopPriorities:   metrics.Ranked(metrics.CountBy(issues, domain.IssueRecord.PriorityName), top),
		TopRequestTypes: metrics.Ranked(types, top),
		AllCounts: AllCounts{
			IssueTypes: types,
			Priorities: metrics.CountBy(issues, domain.IssueRecord.PriorityName),
			Statuses:   metrics.CountBy(issues, domain.IssueRecord.StatusName),
		},
	}
	for _, is := range issues {
		if is.Open() {
			out.OpenTickets++
		}
	}

	incidents := ofTypes(issues, t.IncidentTypes)
	out.IncidentAnalysis = IncidentAnalysis{
		TotalIncidents: len(incidents),
		RootCauses:     classify.Tally(incidents, s.rules.RootCauses, classify.FirstMatch, examples),
	}

	out.RequestTypeBreakdown = make([]RequestType, 0, len(types))
	for _, nc := range metrics.Ranked(types, 0) {
		rt := RequestType{
			Type:          nc.Name,
			Count:         nc.Count,
			Percentage:    metrics.Percent(nc.Count, len(issues)),
			SubCategories: []domain.CategoryBucket{},
		}
		if table, ok := s.rules.SubCategories[nc.Name]; ok {
			rt.SubCategories = classify.Tally(ofTypes(issues, []string{nc.Name}), table, classify.FirstMatch, examples)
		}
		out.RequestTypeBreakdown = append(out.RequestTypeBreakdown, rt)
	}
	s.log.Info().Str("team", key).Int("issues", len(issues)).Int("incidents", len(incidents)).Msg("analytics report")
	return out, nil
}

func ofTypes(issues []domain.IssueRecord, types []string) []domain.IssueRecord {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := []domain.IssueRecord{}
	for _, is := range issues {
		if want[is.TypeName()] {
			out = append(out, is)
		}
	}
	return out
}

// mergeByKey unions issue sets, first occurrence wins, ordered by key.
func mergeByKey(sets ...[]domain.IssueRecord) []domain.IssueRecord {
	seen := map[string]bool{}
	var out []domain.IssueRecord
	for _, set := range sets {
		for _, is := range set {
			if seen[is.Key] {
				continue
			}
			seen[is.Key] = true
			out = append(out, is)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
