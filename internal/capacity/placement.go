/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package capacity

import (
	"github.com/dt-jamiem/jira-dashboard/internal/domain"
)

// Placement says where an open issue sits in the capacity tree. It is one of
// PlacementInitiative, PlacementServiceProject, PlacementParentEpic or
// PlacementFallback.
type Placement interface {
	rule() string
}

// PlacementInitiative nests the issue's epic, or the issue itself when Epic is
// nil, under an initiative.
type PlacementInitiative struct {
	Initiative domain.Initiative
	Epic       *domain.ParentRef
}

// PlacementServiceProject puts the issue in the service requests group, under
// its epic when it has one and under its issue type otherwise.
type PlacementServiceProject struct {
	Epic *domain.ParentRef
	Type string
}

// PlacementParentEpic nests the issue's epic under the epic's own project.
type PlacementParentEpic struct {
	Epic    domain.ParentRef
	Project string
}

// PlacementFallback groups the issue by project and type.
type PlacementFallback struct {
	Project string
	Type    string
}

func (PlacementInitiative) rule() string     { return "initiative" }
func (PlacementServiceProject) rule() string { return "service-project" }
func (PlacementParentEpic) rule() string     { return "parent-epic" }
func (PlacementFallback) rule() string       { return "fallback" }

// Lookup holds what the grouper knows beyond the issues themselves.
type Lookup struct {
	Epics       map[string]domain.EpicRecord
	Initiatives map[string]domain.Initiative
}

type placer func(domain.IssueRecord, Lookup, Rules) (Placement, bool)

// placers run in order; the first that applies wins.
var placers = []placer{
	placeInitiative,
	placeServiceProject,
	placeParentEpic,
	placeFallback,
}

// Place runs the placement rules for one issue.
func Place(is domain.IssueRecord, lk Lookup, r Rules) Placement {
	for _, p := range placers {
		if pl, ok := p(is, lk, r); ok {
			return pl
		}
	}
	return PlacementFallback{Project: is.ProjectKey(), Type: is.TypeName()}
}

func placeInitiative(is domain.IssueRecord, lk Lookup, _ Rules) (Placement, bool) {
	if epic := epicOf(is, lk); epic != nil {
		links := lk.Epics[epic.Key].Links
		if epic.Key == is.Key {
			links = append(append([]domain.IssueLink{}, is.Links...), links...)
		}
		if ini, ok := linkedInitiative(links, lk); ok {
			return PlacementInitiative{Initiative: ini, Epic: epic}, true
		}
	}
	if ini, ok := linkedInitiative(is.Links, lk); ok && !isEpic(is, lk) {
		return PlacementInitiative{Initiative: ini}, true
	}
	return nil, false
}

func placeServiceProject(is domain.IssueRecord, lk Lookup, r Rules) (Placement, bool) {
	if !containsFold(r.ServiceProjects, is.ProjectKey()) {
		return nil, false
	}
	return PlacementServiceProject{Epic: epicOf(is, lk), Type: is.TypeName()}, true
}

func placeParentEpic(is domain.IssueRecord, lk Lookup, _ Rules) (Placement, bool) {
	epic := epicOf(is, lk)
	if epic == nil {
		return nil, false
	}
	project := lk.Epics[epic.Key].Project
	if project == "" && epic.Key == is.Key {
		project = is.ProjectKey()
	}
	if project == "" {
		project = domain.ProjectOfKey(epic.Key)
	}
	return PlacementParentEpic{Epic: *epic, Project: project}, true
}

func placeFallback(is domain.IssueRecord, _ Lookup, _ Rules) (Placement, bool) {
	return PlacementFallback{Project: is.ProjectKey(), Type: is.TypeName()}, true
}

// epicOf returns the epic the issue's hours belong to: the issue itself when
// it is an epic, otherwise its parent when that is an epic. The summary is
// filled from the epic lookup when the payload had none.
func epicOf(is domain.IssueRecord, lk Lookup) *domain.ParentRef {
	if isEpic(is, lk) {
		p := domain.ParentRef{Key: is.Key, Summary: is.Summary, Type: "Epic"}
		if p.Summary == "" {
			p.Summary = lk.Epics[is.Key].Summary
		}
		return &p
	}
	if is.Parent == nil || is.Parent.Key == "" {
		return nil
	}
	rec, known := lk.Epics[is.Parent.Key]
	if !known && is.Parent.Type != "" && is.Parent.Type != "Epic" {
		return nil
	}
	p := *is.Parent
	if p.Summary == "" {
		p.Summary = rec.Summary
	}
	return &p
}

func isEpic(is domain.IssueRecord, lk Lookup) bool {
	if is.Type == "Epic" {
		return true
	}
	_, known := lk.Epics[is.Key]
	return known
}

func linkedInitiative(links []domain.IssueLink, lk Lookup) (domain.Initiative, bool) {
	for _, l := range links {
		if ini, ok := lk.Initiatives[l.Key]; ok {
			return ini, true
		}
	}
	return domain.Initiative{}, false
}
