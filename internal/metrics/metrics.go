/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
)

const day = 24 * time.Hour

// Summary is the statistics report over one issue collection.
type Summary struct {
	TotalIssues  int            `json:"totalIssues"`
	ByStatus     map[string]int `json:"byStatus"`
	ByType       map[string]int `json:"byType"`
	ByPriority   map[string]int `json:"byPriority"`
	ByAssignee   map[string]int `json:"byAssignee"`
	AvgCycleTime int            `json:"avgCycleTime"`
	AvgLeadTime  int            `json:"avgLeadTime"`
}

// Aggregate counts issues by category and averages cycle time over issues that
// carry both timestamps. Cycle and lead time are the same measure here.
func Aggregate(issues []domain.IssueRecord) Summary {
	s := Summary{
		TotalIssues: len(issues),
		ByStatus:    CountBy(issues, domain.IssueRecord.StatusName),
		ByType:      CountBy(issues, domain.IssueRecord.TypeName),
		ByPriority:  CountBy(issues, domain.IssueRecord.PriorityName),
		ByAssignee:  CountBy(issues, domain.IssueRecord.AssigneeName),
	}
	s.AvgCycleTime = AvgCycleDays(issues)
	s.AvgLeadTime = s.AvgCycleTime
	return s
}

// AvgCycleDays averages FloorDays(created, resolved) and rounds; 0 when no issue qualifies.
func AvgCycleDays(issues []domain.IssueRecord) int {
	sum, n := 0, 0
	for _, is := range issues {
		if d, ok := CycleDays(is); ok {
			sum += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(RoundHalfUp(float64(sum) / float64(n)))
}

// CycleDays is the whole days between creation and resolution.
func CycleDays(is domain.IssueRecord) (int, bool) {
	if is.Created.IsZero() || is.Resolved == nil {
		return 0, false
	}
	return FloorDays(is.Resolved.Sub(is.Created)), true
}

// CountBy tallies issues by key. The map is never nil.
func CountBy(issues []domain.IssueRecord, key func(domain.IssueRecord) string) map[string]int {
	out := make(map[string]int)
	for _, is := range issues {
		out[key(is)]++
	}
	return out
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Ranked sorts counts by count desc, then name. limit <= 0 keeps all.
func Ranked(counts map[string]int, limit int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, NameCount{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Percent is part/total as a rounded percentage; 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(RoundHalfUp(float64(part) * 100 / float64(total)))
}

// Throughput is resolved issues per week over a period of days.
func Throughput(resolved, days int) int {
	if days <= 0 {
		return 0
	}
	return int(RoundHalfUp(float64(resolved) / float64(days) * 7))
}

// Round1 rounds to one decimal place, halves up.
func Round1(v float64) float64 {
	return RoundHalfUp(v*10) / 10
}

// RoundHalfUp rounds .5 toward positive infinity.
func RoundHalfUp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Floor(v + 0.5)
}

// FloorDays truncates a duration to whole days toward negative infinity.
func FloorDays(d time.Duration) int {
	return int(math.Floor(float64(d) / float64(day)))
}
