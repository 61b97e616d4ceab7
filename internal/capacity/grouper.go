/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package capacity

import (
	"sort"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
)

const (
	BucketBAU     = "BAU"
	BucketImprove = "Improve"
	BucketDeliver = "Deliver"

	DefaultServiceGroup = "Service Requests"
)

// Rules configure placement and estimates.
type Rules struct {
	Estimate        EstimateRules
	ServiceProjects []string
	ServiceGroup    string
}

// Bucket is one of BAU, Improve and Deliver.
type Bucket struct {
	Name       string              `json:"name"`
	Total      domain.Effort       `json:"total"`
	TotalHours float64             `json:"totalHours"`
	Groups     []*domain.WorkGroup `json:"groups"`
}

type Plan struct {
	Buckets  []Bucket                  `json:"buckets"`
	Workload []domain.AssigneeWorkload `json:"assigneeWorkload"`
}

// tree accumulates groups by key while placing issues.
type tree struct {
	top   []*domain.WorkGroup
	index map[string]*domain.WorkGroup
}

func (t *tree) group(key, name string, typ domain.GroupType, parent *domain.WorkGroup) *domain.WorkGroup {
	if g, ok := t.index[key]; ok {
		return g
	}
	g := &domain.WorkGroup{Key: key, Name: name, Type: typ}
	t.index[key] = g
	if parent == nil {
		t.top = append(t.top, g)
	} else {
		g.ParentName = parent.Name
		parent.Children = append(parent.Children, g)
	}
	return g
}

// Build places every open issue, rolls hours up the tree and splits the top
// level groups into BAU, Improve and Deliver. All three buckets are always present.
func Build(open []domain.IssueRecord, lk Lookup, r Rules, now time.Time) Plan {
	if r.ServiceGroup == "" {
		r.ServiceGroup = DefaultServiceGroup
	}
	t := &tree{index: map[string]*domain.WorkGroup{}}
	for _, is := range open {
		leaf := t.place(is, Place(is, lk, r), r)
		leaf.Direct = leaf.Direct.Add(r.Estimate.Effort(is))
	}
	for _, g := range t.top {
		rollup(g)
	}

	plan := Plan{Buckets: []Bucket{{Name: BucketBAU}, {Name: BucketImprove}, {Name: BucketDeliver}}}
	for _, g := range t.top {
		b := &plan.Buckets[2]
		switch {
		case g.Key == serviceKey:
			b = &plan.Buckets[0]
		case hasType(g, domain.GroupInitiative):
			b = &plan.Buckets[1]
		}
		b.Groups = append(b.Groups, g)
		b.Total = b.Total.Add(g.Total)
	}
	for i := range plan.Buckets {
		b := &plan.Buckets[i]
		b.TotalHours = b.Total.TotalHours()
		if b.Groups == nil {
			b.Groups = []*domain.WorkGroup{}
		}
		sortGroups(b.Groups)
	}
	plan.Workload = Workload(open, r.Estimate, now)
	return plan
}

const serviceKey = "service-requests"

// place returns the group whose direct counts take the issue.
func (t *tree) place(is domain.IssueRecord, p Placement, r Rules) *domain.WorkGroup {
	switch p := p.(type) {
	case PlacementInitiative:
		top := t.group("initiative:"+p.Initiative.Key, initiativeName(p.Initiative), domain.GroupInitiative, nil)
		if p.Epic != nil {
			return t.group("initiative:"+p.Initiative.Key+"/epic:"+p.Epic.Key, epicName(*p.Epic), domain.GroupEpic, top)
		}
		return t.group("initiative:"+p.Initiative.Key+"/issue:"+is.Key, issueName(is), domain.GroupIssue, top)
	case PlacementServiceProject:
		top := t.group(serviceKey, r.ServiceGroup, domain.GroupProjectBucket, nil)
		if p.Epic != nil {
			return t.group(serviceKey+"/epic:"+p.Epic.Key, epicName(*p.Epic), domain.GroupEpic, top)
		}
		return t.group(serviceKey+"/type:"+p.Type, p.Type, domain.GroupProjectBucket, top)
	case PlacementParentEpic:
		top := t.group("project:"+p.Project, p.Project, domain.GroupProjectBucket, nil)
		return t.group("project:"+p.Project+"/epic:"+p.Epic.Key, epicName(p.Epic), domain.GroupEpic, top)
	case PlacementFallback:
		return t.group("project:"+p.Project+"/type:"+p.Type, p.Project+" / "+p.Type, domain.GroupProjectBucket, nil)
	}
	return t.group("project:"+is.ProjectKey()+"/type:"+is.TypeName(), is.ProjectKey()+" / "+is.TypeName(), domain.GroupProjectBucket, nil)
}

// rollup sets Total to Direct plus the children's totals, bottom up.
func rollup(g *domain.WorkGroup) domain.Effort {
	total := g.Direct
	for _, c := range g.Children {
		total = total.Add(rollup(c))
	}
	g.Total = total
	g.TotalHours = total.TotalHours()
	sortGroups(g.Children)
	return total
}

func hasType(g *domain.WorkGroup, typ domain.GroupType) bool {
	if g.Type == typ {
		return true
	}
	for _, c := range g.Children {
		if hasType(c, typ) {
			return true
		}
	}
	return false
}

func sortGroups(gs []*domain.WorkGroup) {
	sort.SliceStable(gs, func(i, j int) bool {
		a, b := gs[i], gs[j]
		if a.TotalHours != b.TotalHours {
			return a.TotalHours > b.TotalHours
		}
		if a.Total.Tickets != b.Total.Tickets {
			return a.Total.Tickets > b.Total.Tickets
		}
		return a.Name < b.Name
	})
}

// Workload is the flat per-assignee rollup of open issues, heaviest first.
func Workload(open []domain.IssueRecord, est EstimateRules, now time.Time) []domain.AssigneeWorkload {
	idx := map[string]int{}
	var out []domain.AssigneeWorkload
	ageSum := map[string]int{}
	aged := map[string]int{}
	for _, is := range open {
		name := is.AssigneeName()
		pos, ok := idx[name]
		if !ok {
			pos = len(out)
			idx[name] = pos
			out = append(out, domain.AssigneeWorkload{Name: name, ByPriority: map[string]int{}})
		}
		w := &out[pos]
		e := est.Effort(is)
		w.OpenTickets++
		w.EstimatedHours += e.EstimatedHours
		w.GuessedHours += e.GuessedHours
		w.ByPriority[is.PriorityName()]++
		if !is.Created.IsZero() {
			age := metrics.FloorDays(now.Sub(is.Created))
			ageSum[name] += age
			aged[name]++
			if age > w.OldestAgeDays {
				w.OldestAgeDays = age
			}
		}
	}
	for i := range out {
		w := &out[i]
		w.TotalHours = w.EstimatedHours + w.GuessedHours
		if n := aged[w.Name]; n > 0 {
			w.AvgAgeDays = metrics.Round1(float64(ageSum[w.Name]) / float64(n))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalHours != out[j].TotalHours {
			return out[i].TotalHours > out[j].TotalHours
		}
		if out[i].OpenTickets != out[j].OpenTickets {
			return out[i].OpenTickets > out[j].OpenTickets
		}
		return out[i].Name < out[j].Name
	})
	if out == nil {
		return []domain.AssigneeWorkload{}
	}
	return out
}

func initiativeName(i domain.Initiative) string {
	if i.Summary == "" {
		return i.Key
	}
	return i.Key + ": " + i.Summary
}

func epicName(p domain.ParentRef) string {
	if p.Summary == "" {
		return p.Key
	}
	return p.Key + ": " + p.Summary
}

func issueName(is domain.IssueRecord) string {
	if is.Summary == "" {
		return is.Key
	}
	return is.Key + ": " + is.Summary
}
