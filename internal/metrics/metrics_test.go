package metrics

import (
	"testing"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func TestAggregate_CountsAndSentinels(t *testing.T) {
	issues := []domain.IssueRecord{
		{Key: "A-1", Status: domain.Status{Name: "Done"}, Type: "Task", Priority: "High", Assignee: "Ana",
			Created: at("2025-01-01T10:00:00Z"), Resolved: ptr(at("2025-01-04T09:00:00Z"))},
		{Key: "A-2", Status: domain.Status{Name: "Done"}, Type: "Bug",
			Created: at("2025-01-01T10:00:00Z"), Resolved: ptr(at("2025-01-06T11:00:00Z"))},
		{Key: "A-3"},
	}
	s := Aggregate(issues)
	if s.TotalIssues != 3 {
		t.Fatalf("total: got %d", s.TotalIssues)
	}
	if s.ByStatus["Done"] != 2 || s.ByStatus[domain.Unknown] != 1 {
		t.Fatalf("byStatus: %v", s.ByStatus)
	}
	if s.ByAssignee[domain.Unassigned] != 2 || s.ByAssignee["Ana"] != 1 {
		t.Fatalf("byAssignee: %v", s.ByAssignee)
	}
	if s.ByPriority[domain.Unknown] != 2 {
		t.Fatalf("byPriority: %v", s.ByPriority)
	}
	// floor(2.96)=2, floor(5.04)=5, mean 3.5 rounds to 4
	if s.AvgCycleTime != 4 || s.AvgLeadTime != 4 {
		t.Fatalf("avg cycle/lead: %d/%d", s.AvgCycleTime, s.AvgLeadTime)
	}
}

func TestAggregate_EmptyIsZero(t *testing.T) {
	s := Aggregate(nil)
	if s.TotalIssues != 0 || s.AvgCycleTime != 0 || s.AvgLeadTime != 0 {
		t.Fatalf("empty summary should be zero: %+v", s)
	}
	if s.ByStatus == nil || s.ByAssignee == nil {
		t.Fatalf("maps must be non-nil for stable JSON")
	}
}

func TestPercentAndThroughput(t *testing.T) {
	cases := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{7, 7, 100},
		{1, 3, 33},
		{1, 8, 13},
	}
	for _, c := range cases {
		if got := Percent(c.part, c.total); got != c.want {
			t.Errorf("Percent(%d,%d)=%d want %d", c.part, c.total, got, c.want)
		}
	}
	if got := Throughput(10, 30); got != 2 {
		t.Fatalf("Throughput(10,30)=%d want 2", got)
	}
	if got := Throughput(10, 0); got != 0 {
		t.Fatalf("Throughput with no days must be 0, got %d", got)
	}
}

func TestRankedAndRounding(t *testing.T) {
	r := Ranked(map[string]int{"b": 2, "a": 2, "c": 5}, 2)
	if len(r) != 2 || r[0].Name != "c" || r[1].Name != "a" {
		t.Fatalf("ranked: %+v", r)
	}
	if Round1(2.25) != 2.3 || Round1(0) != 0 {
		t.Fatalf("Round1 mismatch: %v", Round1(2.25))
	}
	if FloorDays(-time.Hour) != -1 || FloorDays(47*time.Hour) != 1 {
		t.Fatalf("FloorDays mismatch")
	}
}
