/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package capacity

import (
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
)

// Default guesses for unestimated work, in hours.
const (
	DefaultToDoHours       = 8
	DefaultInProgressHours = 4
)

// DefaultEstimateTypes qualify for a guessed estimate in any project.
var DefaultEstimateTypes = []string{"Story", "Task"}

// EstimateRules decide the guessed hours of an issue without an original estimate.
type EstimateRules struct {
	Projects        []string `yaml:"projects"`
	Types           []string `yaml:"types"`
	ToDoHours       float64  `yaml:"todo_hours"`
	InProgressHours float64  `yaml:"in_progress_hours"`
}

func DefaultEstimateRules() EstimateRules {
	return EstimateRules{
		Types:           append([]string(nil), DefaultEstimateTypes...),
		ToDoHours:       DefaultToDoHours,
		InProgressHours: DefaultInProgressHours,
	}
}

// DefaultHours is the guess for issue, or 0 when it has an explicit estimate,
// does not qualify, or is neither to do nor in progress.
func (r EstimateRules) DefaultHours(is domain.IssueRecord) float64 {
	if is.OriginalEstimateSeconds != nil || !r.qualifies(is) {
		return 0
	}
	switch is.Status.Category {
	case domain.CategoryToDo:
		return r.ToDoHours
	case domain.CategoryInProgress:
		return r.InProgressHours
	}
	return 0
}

// Effort splits the hours of one issue into estimated and guessed.
func (r EstimateRules) Effort(is domain.IssueRecord) domain.Effort {
	e := domain.Effort{Tickets: 1}
	if is.OriginalEstimateSeconds != nil {
		e.EstimatedHours = float64(*is.OriginalEstimateSeconds) / 3600
		return e
	}
	e.GuessedHours = r.DefaultHours(is)
	return e
}

func (r EstimateRules) qualifies(is domain.IssueRecord) bool {
	types := r.Types
	if len(types) == 0 {
		types = DefaultEstimateTypes
	}
	return containsFold(r.Projects, is.ProjectKey()) || containsFold(types, is.Type)
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
