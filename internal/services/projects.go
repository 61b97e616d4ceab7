/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
)

// ErrInvalidProjectKey is returned for a project key that is not a Jira key.
var ErrInvalidProjectKey = errors.New("invalid project key")

var projectKeyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,19}$`)

var listFields = []string{"summary", "status", "issuetype", "priority", "assignee", "reporter", "created", "resolutiondate", "project"}

// IssueSummary is the listing shape of one issue.
type IssueSummary struct {
	Key      string     `json:"key"`
	Summary  string     `json:"summary"`
	Status   string     `json:"status"`
	Type     string     `json:"issueType"`
	Priority string     `json:"priority"`
	Assignee string     `json:"assignee"`
	Reporter string     `json:"reporter"`
	Project  string     `json:"project"`
	Created  *time.Time `json:"created"`
	Resolved *time.Time `json:"resolved"`
}

type IssueList struct {
	Total  int            `json:"total"`
	Issues []IssueSummary `json:"issues"`
}

// Projects lists the configured projects the credentials can see.
func (s *Service) Projects(ctx context.Context) ([]domain.Project, error) {
	all, err := s.catalog.Projects(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Project{}
	for _, p := range all {
		for _, want := range s.an.Projects {
			if strings.EqualFold(p.Name, want) || strings.EqualFold(p.Key, want) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// Issues lists up to maxResults base-filter issues, newest first.
func (s *Service) Issues(ctx context.Context, maxResults int) (IssueList, error) {
	return s.list(ctx, "issues", scope(s.an.BaseFilter), maxResults)
}

// ProjectIssues lists up to maxResults base-filter issues of one project.
func (s *Service) ProjectIssues(ctx context.Context, projectKey string, maxResults int) (IssueList, error) {
	key := strings.ToUpper(strings.TrimSpace(projectKey))
	if !projectKeyRe.MatchString(key) {
		return IssueList{}, fmt.Errorf("%w: %q", ErrInvalidProjectKey, projectKey)
	}
	return s.list(ctx, "issues:"+key, scope(s.an.BaseFilter, `project = "`+key+`"`), maxResults)
}

func (s *Service) list(ctx context.Context, name string, filter domain.Filter, maxResults int) (IssueList, error) {
	issues, err := s.issues.FetchAll(ctx, source.Query{
		Name:   name,
		Filter: filter,
		Fields: listFields,
		Cap:    orDefault(maxResults, source.DefaultCap),
	})
	if err != nil {
		return IssueList{}, err
	}
	out := IssueList{Total: len(issues), Issues: make([]IssueSummary, 0, len(issues))}
	for _, is := range issues {
		row := IssueSummary{
			Key:      is.Key,
			Summary:  is.Summary,
			Status:   is.StatusName(),
			Type:     is.TypeName(),
			Priority: is.PriorityName(),
			Assignee: is.AssigneeName(),
			Reporter: is.ReporterName(),
			Project:  is.ProjectKey(),
			Resolved: is.Resolved,
		}
		if !is.Created.IsZero() {
			c := is.Created
			row.Created = &c
		}
		out.Issues = append(out.Issues, row)
	}
	s.log.Info().Str("query", name).Int("issues", out.Total).Msg("issue listing")
	return out, nil
}
