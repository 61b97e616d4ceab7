/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package timeseries

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Window is an inclusive range of calendar days in Loc.
type Window struct {
	Start time.Time
	End   time.Time
	Loc   *time.Location
}

// NewWindow truncates start and end to midnight in loc.
func NewWindow(start, end time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	w := Window{Start: midnight(start, loc), End: midnight(end, loc), Loc: loc}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("window end %s before start %s", w.End.Format(dateLayout), w.Start.Format(dateLayout))
	}
	return w, nil
}

// DaysBack runs from the day n days before now through the day of now, so it
// covers n+1 calendar days. Negative n is treated as 0.
func DaysBack(now time.Time, n int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	if n < 0 {
		n = 0
	}
	end := midnight(now, loc)
	return Window{Start: end.AddDate(0, 0, -n), End: end, Loc: loc}
}

// Days returns midnight of every day in the window.
func (w Window) Days() []time.Time {
	var out []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Len is the number of calendar days covered.
func (w Window) Len() int { return len(w.Days()) }

// Contains reports whether t falls on a day of the window.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(w.Start) && !t.After(EndOfDay(w.End))
}

// EndOfDay is the last millisecond of the day that starts at d.
func EndOfDay(d time.Time) time.Time {
	return d.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// DateKey formats t as YYYY-MM-DD in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func weekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
