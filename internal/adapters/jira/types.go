/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import "encoding/json"

type searchRequest struct {
	JQL           string   `json:"jql"`
	Fields        []string `json:"fields,omitempty"`
	MaxResults    int      `json:"maxResults,omitempty"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

type searchResponse struct {
	Issues        []apiIssue `json:"issues"`
	NextPageToken string     `json:"nextPageToken"`
	IsLast        bool       `json:"isLast"`
	Total         int        `json:"total"`
}

type countRequest struct {
	JQL string `json:"jql"`
}

type countResponse struct {
	Count int `json:"count"`
}

// apiIssue keeps fields raw so one malformed record cannot fail a page.
type apiIssue struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

type named struct {
	Name string `json:"name"`
}

type person struct {
	DisplayName string `json:"displayName"`
}

type apiStatus struct {
	Name           string `json:"name"`
	StatusCategory *struct {
		Key string `json:"key"`
	} `json:"statusCategory"`
}

type apiProject struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type linkedIssue struct {
	Key    string `json:"key"`
	Fields *struct {
		Summary   string `json:"summary"`
		IssueType *named `json:"issuetype"`
	} `json:"fields"`
}

type apiLink struct {
	Type struct {
		Name    string `json:"name"`
		Inward  string `json:"inward"`
		Outward string `json:"outward"`
	} `json:"type"`
	InwardIssue  *linkedIssue `json:"inwardIssue"`
	OutwardIssue *linkedIssue `json:"outwardIssue"`
}

type apiFields struct {
	Summary              string          `json:"summary"`
	Description          json.RawMessage `json:"description"`
	Status               *apiStatus      `json:"status"`
	IssueType            *named          `json:"issuetype"`
	Priority             *named          `json:"priority"`
	Assignee             *person         `json:"assignee"`
	Reporter             *person         `json:"reporter"`
	Created              string          `json:"created"`
	ResolutionDate       string          `json:"resolutiondate"`
	Project              *apiProject     `json:"project"`
	Parent               *linkedIssue    `json:"parent"`
	IssueLinks           []apiLink       `json:"issuelinks"`
	TimeOriginalEstimate *int64          `json:"timeoriginalestimate"`
	Components           []named         `json:"components"`
}

// projectEntry is an entry of GET /rest/api/3/project.
type projectEntry struct {
	Key  string  `json:"key"`
	Name string  `json:"name"`
	Lead *person `json:"lead"`
}
