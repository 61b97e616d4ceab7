/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package timeseries

import (
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
)

// ResolutionStats are scoped to a window: only issues created in it count as
// created, only issues resolved in it count as resolved.
type ResolutionStats struct {
	AvgHours       float64 `json:"avgResolutionTimeHours"`
	AvgDays        float64 `json:"avgResolutionTimeDays"`
	TotalResolved  int     `json:"totalResolved"`
	TotalCreated   int     `json:"totalCreated"`
	ResolutionRate int     `json:"resolutionRate"`
}

func Resolution(issues []domain.IssueRecord, w Window) ResolutionStats {
	var st ResolutionStats
	var hours float64
	for _, is := range issues {
		if w.Contains(is.Created) {
			st.TotalCreated++
		}
		if is.Resolved == nil || !w.Contains(*is.Resolved) || is.Created.IsZero() {
			continue
		}
		st.TotalResolved++
		hours += is.Resolved.Sub(is.Created).Hours()
	}
	if st.TotalResolved > 0 {
		avg := hours / float64(st.TotalResolved)
		st.AvgHours = metrics.Round1(avg)
		st.AvgDays = metrics.Round1(avg / 24)
	}
	st.ResolutionRate = metrics.Percent(st.TotalResolved, st.TotalCreated)
	return st
}

// Age describes currently open issues at a point in time.
type Age struct {
	AvgAge    float64 `json:"avgAge"`
	TotalOpen int     `json:"totalOpen"`
	OldestAge int     `json:"oldestTicketAge"`
}

// AgeSnapshot ages every open issue in whole days as of now.
func AgeSnapshot(issues []domain.IssueRecord, now time.Time) Age {
	var a Age
	total := 0
	for _, is := range issues {
		if !is.Open() || is.Created.IsZero() {
			continue
		}
		days := metrics.FloorDays(now.Sub(is.Created))
		a.TotalOpen++
		total += days
		if days > a.OldestAge {
			a.OldestAge = days
		}
	}
	if a.TotalOpen > 0 {
		a.AvgAge = metrics.Round1(float64(total) / float64(a.TotalOpen))
	}
	return a
}
