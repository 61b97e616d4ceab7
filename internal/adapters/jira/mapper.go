/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
)

// toRecord maps one search result. Missing or malformed fields become
// sentinels or zero values; it never fails.
func toRecord(is apiIssue, shortNameField string) domain.IssueRecord {
	rec := domain.IssueRecord{Key: is.Key}
	var f apiFields
	if err := json.Unmarshal(is.Fields, &f); err != nil {
		return rec
	}
	rec.Summary = f.Summary
	rec.Description = toDescription(f.Description)
	if t := parseJiraTime(f.Created); t != nil {
		rec.Created = *t
	}
	rec.Resolved = parseJiraTime(f.ResolutionDate)
	if f.Status != nil {
		rec.Status.Name = f.Status.Name
		if f.Status.StatusCategory != nil {
			rec.Status.Category = domain.CategoryFromKey(f.Status.StatusCategory.Key)
		}
	}
	if f.IssueType != nil {
		rec.Type = f.IssueType.Name
	}
	if f.Priority != nil {
		rec.Priority = f.Priority.Name
	}
	if f.Assignee != nil {
		rec.Assignee = f.Assignee.DisplayName
	}
	if f.Reporter != nil {
		rec.Reporter = f.Reporter.DisplayName
	}
	if f.Project != nil {
		rec.Project = f.Project.Key
	}
	if f.Parent != nil && f.Parent.Key != "" {
		p := &domain.ParentRef{Key: f.Parent.Key}
		if f.Parent.Fields != nil {
			p.Summary = f.Parent.Fields.Summary
			if f.Parent.Fields.IssueType != nil {
				p.Type = f.Parent.Fields.IssueType.Name
			}
		}
		rec.Parent = p
	}
	rec.Links = toLinks(f.IssueLinks)
	rec.OriginalEstimateSeconds = f.TimeOriginalEstimate
	for _, c := range f.Components {
		if c.Name != "" {
			rec.Components = append(rec.Components, c.Name)
		}
	}
	if shortNameField != "" {
		rec.ShortName = customText(is.Fields, shortNameField)
	}
	return rec
}

func toEpic(is apiIssue) domain.EpicRecord {
	rec := toRecord(is, "")
	return domain.EpicRecord{Key: rec.Key, Summary: rec.Summary, Project: rec.ProjectKey(), Links: rec.Links}
}

func toLinks(links []apiLink) []domain.IssueLink {
	var out []domain.IssueLink
	for _, l := range links {
		switch {
		case l.OutwardIssue != nil && l.OutwardIssue.Key != "":
			out = append(out, link(domain.Outward, l.Type.Outward, l.OutwardIssue))
		case l.InwardIssue != nil && l.InwardIssue.Key != "":
			out = append(out, link(domain.Inward, l.Type.Inward, l.InwardIssue))
		}
	}
	return out
}

func link(dir domain.LinkDirection, relation string, li *linkedIssue) domain.IssueLink {
	out := domain.IssueLink{Direction: dir, Relation: relation, Key: li.Key, Project: domain.ProjectOfKey(li.Key)}
	if li.Fields != nil {
		out.Summary = li.Fields.Summary
		if li.Fields.IssueType != nil {
			out.Type = li.Fields.IssueType.Name
		}
	}
	return out
}

// toDescription accepts API v2 strings and API v3 documents.
func toDescription(raw json.RawMessage) domain.Description {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.Description{}
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return domain.PlainText(s)
		}
	case '{':
		var doc domain.DocNode
		if err := json.Unmarshal(raw, &doc); err == nil {
			return domain.RichDocument(&doc)
		}
	}
	return domain.Description{}
}

// customText reads a custom field that is either a string or a select option.
func customText(fields json.RawMessage, id string) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return ""
	}
	raw, ok := m[id]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var opt struct {
		Value string `json:"value"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &opt); err == nil {
		if opt.Value != "" {
			return strings.TrimSpace(opt.Value)
		}
		return strings.TrimSpace(opt.Name)
	}
	return ""
}

func parseJiraTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	layouts := []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
