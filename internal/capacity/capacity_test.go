package capacity

import (
	"math"
	"testing"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
)

var now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func secs(h int64) *int64 {
	s := h * 3600
	return &s
}

func todo(key, typ string) domain.IssueRecord {
	return domain.IssueRecord{Key: key, Type: typ, Status: domain.Status{Name: "To Do", Category: domain.CategoryToDo}, Created: now.AddDate(0, 0, -3)}
}

func rules() Rules {
	est := DefaultEstimateRules()
	est.Projects = []string{"SR"}
	return Rules{Estimate: est, ServiceProjects: []string{"SR"}}
}

func TestDefaultHours(t *testing.T) {
	r := rules().Estimate
	estimated := todo("DEV-5", "Story")
	estimated.OriginalEstimateSeconds = secs(2)
	cases := []struct {
		name string
		is   domain.IssueRecord
		want float64
	}{
		{"service project to do", todo("SR-1", "Service Request"), DefaultToDoHours},
		{"story to do", todo("DEV-1", "Story"), DefaultToDoHours},
		{"task in progress", domain.IssueRecord{Key: "DEV-2", Type: "Task", Status: domain.Status{Category: domain.CategoryInProgress}}, DefaultInProgressHours},
		{"task done", domain.IssueRecord{Key: "DEV-3", Type: "Task", Status: domain.Status{Category: domain.CategoryDone}}, 0},
		{"bug elsewhere", todo("DEV-4", "Bug"), 0},
		{"explicit estimate wins", estimated, 0},
		{"unknown category", domain.IssueRecord{Key: "DEV-6", Type: "Story"}, 0},
	}
	for _, c := range cases {
		if got := r.DefaultHours(c.is); got != c.want {
			t.Errorf("%s: got %v want %v", c.name, got, c.want)
		}
	}
	if DefaultToDoHours <= DefaultInProgressHours {
		t.Fatalf("to-do default should exceed in-progress default")
	}
}

func TestPlace_Precedence(t *testing.T) {
	lk := Lookup{
		Epics: map[string]domain.EpicRecord{
			"DEV-10": {Key: "DEV-10", Summary: "Platform", Project: "DEV", Links: []domain.IssueLink{{Key: "INIT-1"}}},
			"DEV-20": {Key: "DEV-20", Summary: "Billing", Project: "DEV"},
		},
		Initiatives: map[string]domain.Initiative{"INIT-1": {Key: "INIT-1", Summary: "Cloud move"}},
	}
	r := rules()

	withParent := func(is domain.IssueRecord, key string) domain.IssueRecord {
		is.Parent = &domain.ParentRef{Key: key, Type: "Epic"}
		return is
	}
	linked := todo("DEV-2", "Task")
	linked.Links = []domain.IssueLink{{Key: "INIT-1", Direction: domain.Outward}}

	cases := []struct {
		name string
		is   domain.IssueRecord
		want string
	}{
		{"epic linked to initiative beats service project", withParent(todo("SR-1", "Task"), "DEV-10"), "initiative"},
		{"issue linked to initiative", linked, "initiative"},
		{"service project with epic", withParent(todo("SR-2", "Task"), "DEV-20"), "service-project"},
		{"service project without epic", todo("SR-3", "Access"), "service-project"},
		{"parent epic", withParent(todo("OPS-1", "Task"), "DEV-20"), "parent-epic"},
		{"fallback", todo("OPS-2", "Bug"), "fallback"},
	}
	for _, c := range cases {
		if got := Place(c.is, lk, r).rule(); got != c.want {
			t.Errorf("%s: got %s want %s", c.name, got, c.want)
		}
	}

	pl, ok := Place(withParent(todo("SR-1", "Task"), "DEV-10"), lk, r).(PlacementInitiative)
	if !ok || pl.Epic == nil || pl.Epic.Key != "DEV-10" || pl.Epic.Summary != "Platform" {
		t.Fatalf("epic should be nested under the initiative: %+v", pl)
	}

	ownEpic := todo("OPS-9", "Epic")
	ownEpic.Links = []domain.IssueLink{{Key: "INIT-1", Direction: domain.Outward}}
	pl, ok = Place(ownEpic, lk, r).(PlacementInitiative)
	if !ok || pl.Epic == nil || pl.Epic.Key != "OPS-9" {
		t.Fatalf("an open epic is its own epic group: %+v", pl)
	}
	if pe, ok := Place(todo("OPS-8", "Epic"), lk, r).(PlacementParentEpic); !ok || pe.Epic.Key != "OPS-8" || pe.Project != "OPS" {
		t.Fatalf("unlinked epic placed under itself: %+v", pe)
	}
}

func fixture() ([]domain.IssueRecord, Lookup) {
	lk := Lookup{
		Epics: map[string]domain.EpicRecord{
			"DEV-10": {Key: "DEV-10", Summary: "Platform", Project: "DEV", Links: []domain.IssueLink{{Key: "INIT-1"}}},
			"DEV-20": {Key: "DEV-20", Summary: "Billing", Project: "DEV"},
		},
		Initiatives: map[string]domain.Initiative{"INIT-1": {Key: "INIT-1", Summary: "Cloud move"}},
	}
	parent := func(key string) *domain.ParentRef { return &domain.ParentRef{Key: key, Type: "Epic"} }

	a := todo("DEV-1", "Story")
	a.Parent = parent("DEV-10")
	a.Assignee = "Ana"
	b := todo("SR-1", "Task")
	b.Parent = parent("DEV-10")
	b.OriginalEstimateSeconds = secs(3)
	b.Assignee = "Ana"
	c := todo("SR-2", "Access")
	c.Priority = "High"
	d := todo("DEV-3", "Task")
	d.Parent = parent("DEV-20")
	d.Status = domain.Status{Name: "In Progress", Category: domain.CategoryInProgress}
	d.Assignee = "Bo"
	e := todo("OPS-1", "Bug")
	e.OriginalEstimateSeconds = secs(20)
	e.Assignee = "Bo"
	e.Created = now.AddDate(0, 0, -10)
	return []domain.IssueRecord{a, b, c, d, e}, lk
}

func TestBuild_Buckets(t *testing.T) {
	issues, lk := fixture()
	plan := Build(issues, lk, rules(), now)
	if len(plan.Buckets) != 3 || plan.Buckets[0].Name != BucketBAU || plan.Buckets[1].Name != BucketImprove || plan.Buckets[2].Name != BucketDeliver {
		t.Fatalf("bucket layout: %+v", plan.Buckets)
	}

	bau := plan.Buckets[0]
	if len(bau.Groups) != 1 || bau.Groups[0].Name != DefaultServiceGroup || bau.Total.Tickets != 1 || bau.TotalHours != DefaultToDoHours {
		t.Fatalf("BAU bucket: %+v", bau)
	}
	if bau.Groups[0].Children[0].Name != "Access" {
		t.Fatalf("service request without epic grouped by type: %+v", bau.Groups[0].Children[0])
	}

	improve := plan.Buckets[1]
	if len(improve.Groups) != 1 || improve.Groups[0].Type != domain.GroupInitiative {
		t.Fatalf("Improve bucket: %+v", improve)
	}
	ini := improve.Groups[0]
	if len(ini.Children) != 1 || ini.Children[0].Key != "initiative:INIT-1/epic:DEV-10" || ini.Total.Tickets != 2 {
		t.Fatalf("initiative subtree: %+v", ini.Children)
	}
	if ini.Total.EstimatedHours != 3 || ini.Total.GuessedHours != DefaultToDoHours {
		t.Fatalf("initiative hours: %+v", ini.Total)
	}
	if ini.Children[0].ParentName != ini.Name {
		t.Fatalf("parent name not set: %q", ini.Children[0].ParentName)
	}

	deliver := plan.Buckets[2]
	if len(deliver.Groups) != 2 || deliver.Groups[0].Name != "OPS / Bug" || deliver.Groups[1].Name != "DEV" {
		t.Fatalf("Deliver sorted by hours: %+v", deliver.Groups)
	}
}

func TestBuild_OpenEpicJoinsItsChildren(t *testing.T) {
	lk := Lookup{
		Epics: map[string]domain.EpicRecord{
			"DEV-20": {Key: "DEV-20", Summary: "Billing", Project: "DEV"},
			"DEV-30": {Key: "DEV-30", Summary: "Cutover", Project: "DEV", Links: []domain.IssueLink{{Key: "INIT-1"}}},
		},
		Initiatives: map[string]domain.Initiative{"INIT-1": {Key: "INIT-1", Summary: "Cloud move"}},
	}
	epic := todo("DEV-20", "Epic")
	epic.Summary = "Billing"
	child := todo("DEV-21", "Story")
	child.Parent = &domain.ParentRef{Key: "DEV-20", Type: "Epic"}
	linkedEpic := todo("DEV-30", "Epic")
	linkedEpic.Summary = "Cutover"
	linkedEpic.Links = []domain.IssueLink{{Key: "INIT-1", Direction: domain.Outward}}
	linkedChild := todo("DEV-31", "Task")
	linkedChild.Parent = &domain.ParentRef{Key: "DEV-30", Summary: "Cutover", Type: "Epic"}

	plan := Build([]domain.IssueRecord{epic, child, linkedEpic, linkedChild}, lk, rules(), now)

	deliver := plan.Buckets[2]
	if len(deliver.Groups) != 1 || deliver.Groups[0].Key != "project:DEV" {
		t.Fatalf("epic and child should share one project group: %+v", deliver.Groups)
	}
	dev := deliver.Groups[0]
	if len(dev.Children) != 1 || dev.Children[0].Key != "project:DEV/epic:DEV-20" || dev.Children[0].Direct.Tickets != 2 {
		t.Fatalf("epic node should hold the epic and its child: %+v", dev.Children)
	}
	if dev.Children[0].Name != "DEV-20: Billing" {
		t.Fatalf("epic name %q", dev.Children[0].Name)
	}

	improve := plan.Buckets[1]
	if len(improve.Groups) != 1 {
		t.Fatalf("Improve bucket: %+v", improve.Groups)
	}
	ini := improve.Groups[0]
	if len(ini.Children) != 1 || ini.Children[0].Key != "initiative:INIT-1/epic:DEV-30" || ini.Children[0].Direct.Tickets != 2 {
		t.Fatalf("epic linked to an initiative should nest with its child: %+v", ini.Children)
	}
}

func checkAggregate(t *testing.T, g *domain.WorkGroup) (int, float64) {
	t.Helper()
	tickets, hours := g.Direct.Tickets, g.Direct.TotalHours()
	for _, c := range g.Children {
		ct, ch := checkAggregate(t, c)
		tickets += ct
		hours += ch
	}
	if tickets != g.Total.Tickets || math.Abs(hours-g.TotalHours) > 1e-9 {
		t.Fatalf("%s: subtree direct sums %d/%v, aggregate %d/%v", g.Key, tickets, hours, g.Total.Tickets, g.TotalHours)
	}
	return tickets, hours
}

func TestBuild_AggregateInvariant(t *testing.T) {
	issues, lk := fixture()
	plan := Build(issues, lk, rules(), now)
	total := 0
	for _, b := range plan.Buckets {
		bt := 0
		for _, g := range b.Groups {
			n, _ := checkAggregate(t, g)
			bt += n
		}
		if bt != b.Total.Tickets {
			t.Fatalf("bucket %s: %d vs %d", b.Name, bt, b.Total.Tickets)
		}
		total += bt
	}
	if total != len(issues) {
		t.Fatalf("every issue placed once: %d vs %d", total, len(issues))
	}
}

func TestBuild_Empty(t *testing.T) {
	plan := Build(nil, Lookup{}, Rules{}, now)
	if len(plan.Buckets) != 3 {
		t.Fatalf("three buckets even when empty")
	}
	for _, b := range plan.Buckets {
		if b.Groups == nil || len(b.Groups) != 0 || b.TotalHours != 0 {
			t.Fatalf("empty bucket: %+v", b)
		}
	}
	if plan.Workload == nil || len(plan.Workload) != 0 {
		t.Fatalf("empty workload should be an empty slice")
	}
}

func TestWorkload(t *testing.T) {
	issues, _ := fixture()
	wl := Workload(issues, rules().Estimate, now)
	if len(wl) != 3 {
		t.Fatalf("expected 3 assignees, got %+v", wl)
	}
	// Bo: 20 estimated + 4 guessed; Ana: 3 + 8; Unassigned: 8
	if wl[0].Name != "Bo" || wl[0].TotalHours != 24 || wl[0].OldestAgeDays != 10 || wl[0].AvgAgeDays != 6.5 {
		t.Fatalf("Bo: %+v", wl[0])
	}
	if wl[1].Name != "Ana" || wl[1].TotalHours != 11 || wl[1].OpenTickets != 2 {
		t.Fatalf("Ana: %+v", wl[1])
	}
	if wl[2].Name != domain.Unassigned || wl[2].ByPriority["High"] != 1 {
		t.Fatalf("Unassigned: %+v", wl[2])
	}
}
