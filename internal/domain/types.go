package domain

import (
	"strings"
	"time"
)

// Sentinel values substituted for missing categorical fields.
const (
	Unknown    = "Unknown"
	Unassigned = "Unassigned"
)

// StatusCategory is the tracker's coarse workflow bucket for a status.
type StatusCategory string

const (
	CategoryToDo       StatusCategory = "ToDo"
	CategoryInProgress StatusCategory = "InProgress"
	CategoryDone       StatusCategory = "Done"
)

// CategoryFromKey maps Jira statusCategory keys ("new", "indeterminate", "done").
func CategoryFromKey(key string) StatusCategory {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "new", "todo", "to do":
		return CategoryToDo
	case "indeterminate", "in progress", "inprogress":
		return CategoryInProgress
	case "done":
		return CategoryDone
	}
	return ""
}

type Status struct {
	Name     string
	Category StatusCategory
}

// Filter is an opaque query expression understood by the issue source.
type Filter string

// Mergeable reports whether results fetched for f and o describe the same set.
func (f Filter) Mergeable(o Filter) bool {
	return strings.TrimSpace(string(f)) == strings.TrimSpace(string(o))
}

type ParentRef struct {
	Key     string
	Summary string
	Type    string
}

type LinkDirection string

const (
	Outward LinkDirection = "outward"
	Inward  LinkDirection = "inward"
)

// IssueLink is one end of an issue link as seen from the owning issue.
type IssueLink struct {
	Direction LinkDirection
	Relation  string
	Key       string
	Summary   string
	Type      string
	Project   string
}

// IssueRecord is a read-only snapshot of one tracker issue.
type IssueRecord struct {
	Key                     string
	Created                 time.Time
	Resolved                *time.Time
	Status                  Status
	Type                    string
	Priority                string
	Assignee                string
	Reporter                string
	Summary                 string
	Description             Description
	Project                 string
	Parent                  *ParentRef
	Links                   []IssueLink
	OriginalEstimateSeconds *int64
	Components              []string
	ShortName               string
}

// Open reports whether the issue is not in a done category and carries no resolution.
func (i IssueRecord) Open() bool {
	return i.Resolved == nil && i.Status.Category != CategoryDone
}

func (i IssueRecord) StatusName() string { return orDefault(i.Status.Name, Unknown) }
func (i IssueRecord) TypeName() string   { return orDefault(i.Type, Unknown) }
func (i IssueRecord) PriorityName() string {
	return orDefault(i.Priority, Unknown)
}
func (i IssueRecord) AssigneeName() string { return orDefault(i.Assignee, Unassigned) }
func (i IssueRecord) ReporterName() string { return orDefault(i.Reporter, Unknown) }

// ProjectKey falls back to the key prefix when the project field was not requested.
func (i IssueRecord) ProjectKey() string {
	if i.Project != "" {
		return i.Project
	}
	return ProjectOfKey(i.Key)
}

// ProjectOfKey returns the "ABC" part of "ABC-123".
func ProjectOfKey(key string) string {
	if idx := strings.LastIndex(key, "-"); idx > 0 {
		return key[:idx]
	}
	return Unknown
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// IssueRef is a compact pointer to an issue used for examples in reports.
type IssueRef struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// EpicRecord is returned by the epic lookup.
type EpicRecord struct {
	Key     string
	Summary string
	Project string
	Links   []IssueLink
}

// Project is a tracker project as listed by the source.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Lead string `json:"lead"`
}

// Initiative is a top-level strategic item tracked outside the delivery projects.
type Initiative struct {
	Key     string
	Summary string
	Project string
}

type TimeSeriesPoint struct {
	Date       string  `json:"date"`
	Created    int     `json:"created"`
	Resolved   int     `json:"resolved"`
	Open       int     `json:"openTickets"`
	AvgAgeDays float64 `json:"avgAge"`
}

type CategoryBucket struct {
	Label      string     `json:"category"`
	Count      int        `json:"count"`
	Percentage int        `json:"percentage"`
	Examples   []IssueRef `json:"examples"`
}

type GroupType string

const (
	GroupIssue         GroupType = "Issue"
	GroupEpic          GroupType = "Epic"
	GroupInitiative    GroupType = "Initiative"
	GroupProjectBucket GroupType = "ProjectBucket"
)

// Effort is a ticket count with its estimated and guessed hours.
type Effort struct {
	Tickets        int     `json:"tickets"`
	EstimatedHours float64 `json:"estimatedHours"`
	GuessedHours   float64 `json:"guessedHours"`
}

func (e Effort) Add(o Effort) Effort {
	return Effort{
		Tickets:        e.Tickets + o.Tickets,
		EstimatedHours: e.EstimatedHours + o.EstimatedHours,
		GuessedHours:   e.GuessedHours + o.GuessedHours,
	}
}

func (e Effort) TotalHours() float64 { return e.EstimatedHours + e.GuessedHours }

// WorkGroup is a node of the capacity tree. Total always equals Direct plus
// the Total of every child.
type WorkGroup struct {
	Key        string       `json:"key"`
	Name       string       `json:"name"`
	Type       GroupType    `json:"type"`
	ParentName string       `json:"parentName,omitempty"`
	Direct     Effort       `json:"direct"`
	Total      Effort       `json:"total"`
	TotalHours float64      `json:"totalHours"`
	Children   []*WorkGroup `json:"children,omitempty"`
}

type AssigneeWorkload struct {
	Name           string         `json:"name"`
	OpenTickets    int            `json:"openTickets"`
	EstimatedHours float64        `json:"estimatedHours"`
	GuessedHours   float64        `json:"guessedHours"`
	TotalHours     float64        `json:"totalHours"`
	OldestAgeDays  int            `json:"oldestTicket"`
	AvgAgeDays     float64        `json:"avgAge"`
	ByPriority     map[string]int `json:"byPriority"`
}
