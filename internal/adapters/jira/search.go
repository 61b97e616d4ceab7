/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
)

// EpicBatchSize bounds the number of keys per epic lookup query.
const EpicBatchSize = 50

// EpicFields are requested for every epic lookup.
var EpicFields = []string{"summary", "project", "issuelinks"}

// SearchPage runs one page of an enhanced JQL search.
func (c *Client) SearchPage(ctx context.Context, filter domain.Filter, fields []string, token string) (source.Page, error) {
	jql := strings.TrimSpace(string(filter))
	if jql == "" {
		return source.Page{}, errors.New("jira: empty jql")
	}
	body := searchRequest{JQL: jql, Fields: fields, MaxResults: c.pageSize, NextPageToken: token}
	var resp searchResponse
	if err := c.doJSON(ctx, "jira search", http.MethodPost, c.apiURL("/rest/api/3/search/jql", nil), body, &resp); err != nil {
		return source.Page{}, err
	}
	page := source.Page{
		Issues:    make([]domain.IssueRecord, 0, len(resp.Issues)),
		NextToken: resp.NextPageToken,
		IsLast:    resp.IsLast,
		Total:     resp.Total,
	}
	for _, is := range resp.Issues {
		page.Issues = append(page.Issues, toRecord(is, c.shortName))
	}
	return page, nil
}

// Count asks Jira for the approximate number of matching issues.
func (c *Client) Count(ctx context.Context, filter domain.Filter) (int, error) {
	var resp countResponse
	body := countRequest{JQL: strings.TrimSpace(string(filter))}
	if err := c.doJSON(ctx, "jira count", http.MethodPost, c.apiURL("/rest/api/3/search/approximate-count", nil), body, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Epics looks up epics by key in batches of EpicBatchSize.
func (c *Client) Epics(ctx context.Context, keys []string) (map[string]domain.EpicRecord, error) {
	out := make(map[string]domain.EpicRecord, len(keys))
	uniq := dedupKeys(keys)
	for start := 0; start < len(uniq); start += EpicBatchSize {
		end := start + EpicBatchSize
		if end > len(uniq) {
			end = len(uniq)
		}
		filter := domain.Filter("key in (" + strings.Join(uniq[start:end], ",") + ")")
		token := ""
		for {
			var resp searchResponse
			body := searchRequest{JQL: string(filter), Fields: EpicFields, MaxResults: c.pageSize, NextPageToken: token}
			if err := c.doJSON(ctx, "jira epics", http.MethodPost, c.apiURL("/rest/api/3/search/jql", nil), body, &resp); err != nil {
				return nil, fmt.Errorf("epic batch %d: %w", start/EpicBatchSize, err)
			}
			for _, is := range resp.Issues {
				e := toEpic(is)
				out[e.Key] = e
			}
			if resp.IsLast || resp.NextPageToken == "" || len(resp.Issues) == 0 {
				break
			}
			token = resp.NextPageToken
		}
	}
	c.log.Debug().Int("requested", len(uniq)).Int("found", len(out)).Msg("epic lookup")
	return out, nil
}

// Projects lists the projects visible to the credentials.
func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
	var resp []projectEntry
	if err := c.doJSON(ctx, "jira projects", http.MethodGet, c.apiURL("/rest/api/3/project", nil), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Project, 0, len(resp))
	for _, p := range resp {
		lead := domain.Unknown
		if p.Lead != nil && p.Lead.DisplayName != "" {
			lead = p.Lead.DisplayName
		}
		out = append(out, domain.Project{Key: p.Key, Name: p.Name, Lead: lead})
	}
	return out, nil
}

func dedupKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
