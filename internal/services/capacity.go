/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"

	"github.com/dt-jamiem/jira-dashboard/internal/capacity"
	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
	"github.com/dt-jamiem/jira-dashboard/internal/timeseries"
)

const (
	FlowIncreasing = "increasing"
	FlowDecreasing = "decreasing"
	FlowStable     = "stable"
)

type CapacitySummary struct {
	TotalOpenTickets  int     `json:"totalOpenTickets"`
	TicketsCreated    int     `json:"ticketsCreated"`
	TicketsResolved   int     `json:"ticketsResolved"`
	AvgResolutionTime float64 `json:"avgResolutionTime"`
	Velocity          float64 `json:"velocity"`
	NetFlow           int     `json:"netFlow"`
	Trend             string  `json:"trend"`
	TotalHours        float64 `json:"totalHours"`
}

type CapacityReport struct {
	Summary          CapacitySummary           `json:"summary"`
	TicketFlow       []domain.TimeSeriesPoint  `json:"ticketFlow"`
	Buckets          []capacity.Bucket         `json:"buckets"`
	AssigneeWorkload []domain.AssigneeWorkload `json:"assigneeWorkload"`
	PeriodDays       int                       `json:"periodDays"`
}

// Capacity fetches open, created and resolved work plus open initiatives in
// one joined batch, resolves parent epics, then builds the BAU / Improve /
// Deliver tree of the open work.
func (s *Service) Capacity(ctx context.Context, days int) (CapacityReport, error) {
	days = orDefault(days, 30)
	w := s.window(days)
	since := jqlDate(w.Start)
	c := s.fetchCap()
	res, err := s.issues.FetchMany(ctx,
		source.Query{Name: "open", Filter: scope(s.an.Capacity.Filter, "statusCategory != Done"), Fields: capacityFields, Cap: c},
		source.Query{Name: "created", Filter: scope(s.an.Capacity.Filter, "created >= "+since), Fields: capacityFields, Cap: c},
		source.Query{Name: "resolved", Filter: scope(s.an.Capacity.Filter, "resolved >= "+since), Fields: capacityFields, Cap: c},
		source.Query{Name: "initiatives", Filter: scope(s.an.Capacity.InitiativeFilter), Fields: capacityFields, Cap: c},
	)
	if err != nil {
		return CapacityReport{}, err
	}
	open := res["open"]

	lk := capacity.Lookup{Initiatives: map[string]domain.Initiative{}}
	for _, is := range res["initiatives"] {
		lk.Initiatives[is.Key] = domain.Initiative{Key: is.Key, Summary: is.Summary, Project: is.ProjectKey()}
	}
	if keys := parentKeys(open); len(keys) > 0 {
		if lk.Epics, err = s.catalog.Epics(ctx, keys); err != nil {
			return CapacityReport{}, err
		}
	}

	plan := capacity.Build(open, lk, s.an.CapacityRules(), s.now())
	stats := timeseries.Resolution(res["resolved"], w)
	created := countIn(res["created"], func(is domain.IssueRecord) bool { return w.Contains(is.Created) })
	resolved := countIn(res["resolved"], func(is domain.IssueRecord) bool { return is.Resolved != nil && w.Contains(*is.Resolved) })

	sum := CapacitySummary{
		TotalOpenTickets:  len(open),
		TicketsCreated:    created,
		TicketsResolved:   resolved,
		AvgResolutionTime: stats.AvgDays,
		Velocity:          metrics.Round1(float64(resolved) / float64(days) * 7),
		NetFlow:           created - resolved,
	}
	switch {
	case sum.NetFlow > 0:
		sum.Trend = FlowIncreasing
	case sum.NetFlow < 0:
		sum.Trend = FlowDecreasing
	default:
		sum.Trend = FlowStable
	}
	for _, b := range plan.Buckets {
		sum.TotalHours += b.TotalHours
	}

	flow := mergeByKey(open, res["created"], res["resolved"])
	s.log.Info().Int("open", len(open)).Int("created", created).Int("resolved", resolved).
		Int("epics", len(lk.Epics)).Int("initiatives", len(lk.Initiatives)).Msg("capacity report")
	return CapacityReport{
		Summary:          sum,
		TicketFlow:       timeseries.ReconstructSweep(flow, w, false),
		Buckets:          plan.Buckets,
		AssigneeWorkload: plan.Workload,
		PeriodDays:       days,
	}, nil
}

// parentKeys lists distinct parent keys that may be epics.
func parentKeys(issues []domain.IssueRecord) []string {
	seen := map[string]bool{}
	var keys []string
	for _, is := range issues {
		if is.Parent == nil || is.Parent.Key == "" || seen[is.Parent.Key] {
			continue
		}
		if is.Parent.Type != "" && is.Parent.Type != "Epic" {
			continue
		}
		seen[is.Parent.Key] = true
		keys = append(keys, is.Parent.Key)
	}
	return keys
}

func countIn(issues []domain.IssueRecord, ok func(domain.IssueRecord) bool) int {
	n := 0
	for _, is := range issues {
		if ok(is) {
			n++
		}
	}
	return n
}
