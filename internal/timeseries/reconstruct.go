/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package timeseries

import (
	"sort"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// Reconstruct scans every issue for every day of w. An issue is open on D when
// it was created by the end of D and not resolved by then.
// Issues with an unknown creation time are ignored.
func Reconstruct(issues []domain.IssueRecord, w Window, skipWeekends bool) []domain.TimeSeriesPoint {
	created, resolved := buckets(issues, w.Loc)
	out := []domain.TimeSeriesPoint{}
	for _, d := range w.Days() {
		if skipWeekends && weekend(d) {
			continue
		}
		eod := EndOfDay(d)
		eodMs := eod.UnixMilli()
		open := 0
		var ageMs int64
		for _, is := range issues {
			if is.Created.IsZero() || is.Created.After(eod) {
				continue
			}
			if is.Resolved != nil && !is.Resolved.After(eod) {
				continue
			}
			open++
			ageMs += eodMs - is.Created.UnixMilli()
		}
		out = append(out, point(d, w.Loc, created, resolved, open, ageMs))
	}
	return out
}

type event struct {
	at        time.Time
	delta     int
	createdMs int64
}

// ReconstructSweep yields the same points as Reconstruct from a single pass
// over creation and resolution events.
func ReconstructSweep(issues []domain.IssueRecord, w Window, skipWeekends bool) []domain.TimeSeriesPoint {
	created, resolved := buckets(issues, w.Loc)
	events := make([]event, 0, 2*len(issues))
	for _, is := range issues {
		if is.Created.IsZero() {
			continue
		}
		// resolved at or before creation: never open on any day
		if is.Resolved != nil && !is.Resolved.After(is.Created) {
			continue
		}
		c := is.Created.UnixMilli()
		events = append(events, event{at: is.Created, delta: 1, createdMs: c})
		if is.Resolved != nil {
			events = append(events, event{at: *is.Resolved, delta: -1, createdMs: c})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	out := []domain.TimeSeriesPoint{}
	next, open := 0, 0
	var createdSum int64
	for _, d := range w.Days() {
		eod := EndOfDay(d)
		for next < len(events) && !events[next].at.After(eod) {
			open += events[next].delta
			createdSum += int64(events[next].delta) * events[next].createdMs
			next++
		}
		if skipWeekends && weekend(d) {
			continue
		}
		ageMs := int64(open)*eod.UnixMilli() - createdSum
		out = append(out, point(d, w.Loc, created, resolved, open, ageMs))
	}
	return out
}

func point(d time.Time, loc *time.Location, created, resolved map[string]int, open int, ageMs int64) domain.TimeSeriesPoint {
	key := DateKey(d, loc)
	return domain.TimeSeriesPoint{
		Date:       key,
		Created:    created[key],
		Resolved:   resolved[key],
		Open:       open,
		AvgAgeDays: avgAgeDays(ageMs, open),
	}
}

func avgAgeDays(ageMs int64, open int) float64 {
	if open == 0 {
		return 0
	}
	return metrics.Round1(float64(ageMs) / float64(open) / float64(msPerDay))
}

func buckets(issues []domain.IssueRecord, loc *time.Location) (created, resolved map[string]int) {
	created = map[string]int{}
	resolved = map[string]int{}
	for _, is := range issues {
		if !is.Created.IsZero() {
			created[DateKey(is.Created, loc)]++
		}
		if is.Resolved != nil && !is.Resolved.IsZero() {
			resolved[DateKey(*is.Resolved, loc)]++
		}
	}
	return created, resolved
}
