package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
)

func TestProjects_ConfiguredOnly(t *testing.T) {
	c := &fakeCatalog{projects: []domain.Project{
		{Key: "DTI", Name: "Digital Tech", Lead: "Ana"},
		{Key: "TG", Name: "technology group", Lead: "Cy"},
		{Key: "HR", Name: "People"},
	}}
	s := newTestService(t, &fakeFetcher{}, c)
	got, err := s.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(got) != 2 || got[0].Key != "DTI" || got[1].Key != "TG" {
		t.Fatalf("projects %+v", got)
	}

	none, err := newTestService(t, &fakeFetcher{}, &fakeCatalog{}).Projects(context.Background())
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("no projects should be an empty list: %v %v", none, err)
	}
}

func TestIssues_Listing(t *testing.T) {
	open := issue("DTI-2", "Bug", domain.CategoryToDo, "Open", at("2025-03-02T09:00"), nil)
	open.Summary = "Printer jam"
	f := &fakeFetcher{byName: map[string][]domain.IssueRecord{
		"issues": {open, issue("DTI-1", "Task", domain.CategoryDone, "Done", at("2025-03-01T09:00"), ptr(at("2025-03-03T09:00")))},
	}}
	s := newTestService(t, f, nil)
	got, err := s.Issues(context.Background(), 0)
	if err != nil {
		t.Fatalf("Issues: %v", err)
	}
	if got.Total != 2 || got.Issues[0].Key != "DTI-2" || got.Issues[0].Assignee != domain.Unassigned || got.Issues[0].Summary != "Printer jam" {
		t.Fatalf("listing %+v", got)
	}
	if got.Issues[0].Resolved != nil || got.Issues[1].Resolved == nil || got.Issues[1].Project != "DTI" {
		t.Fatalf("rows %+v", got.Issues)
	}
	q, _ := f.query("issues")
	if q.Cap != source.DefaultCap || !strings.HasSuffix(string(q.Filter), "ORDER BY created DESC") {
		t.Fatalf("query %+v", q)
	}
}

func TestProjectIssues(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(t, f, nil)
	got, err := s.ProjectIssues(context.Background(), " dti ", 25)
	if err != nil {
		t.Fatalf("ProjectIssues: %v", err)
	}
	if got.Issues == nil || got.Total != 0 {
		t.Fatalf("empty listing %+v", got)
	}
	q, ok := f.query("issues:DTI")
	if !ok || q.Cap != 25 || !strings.Contains(string(q.Filter), `AND project = "DTI" ORDER BY`) {
		t.Fatalf("query %+v", q)
	}

	for _, key := range []string{"", "DTI OR project = HR", `DTI"`, "9X"} {
		if _, err := s.ProjectIssues(context.Background(), key, 0); !errors.Is(err, ErrInvalidProjectKey) {
			t.Fatalf("%q: want invalid key, got %v", key, err)
		}
	}
	if len(f.queries) != 1 {
		t.Fatalf("invalid keys must not reach the source, got %d queries", len(f.queries))
	}

	f.err = &domain.SourceError{Op: "jira search", Status: 502}
	if _, err := s.ProjectIssues(context.Background(), "DTI", 0); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("source failure: %v", err)
	}
}
