/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/capacity"
	"github.com/dt-jamiem/jira-dashboard/internal/classify"
	"gopkg.in/yaml.v3"
)

// Analytics is the report configuration: filters, team presets, rule tables
// and capacity rules. It is loaded from YAML over DefaultAnalytics.
type Analytics struct {
	BaseFilter       string          `yaml:"base_filter"`
	Projects         []string        `yaml:"projects"`
	InitiativeFilter string          `yaml:"initiative_filter"`
	TechnologyFilter string          `yaml:"technology_filter"`
	ShortNameField   string          `yaml:"short_name_field"`
	DoneStatuses     []string        `yaml:"done_statuses"`
	DefaultTeam      string          `yaml:"default_team"`
	Teams            map[string]Team `yaml:"teams"`
	FetchCap         int             `yaml:"fetch_cap"`
	MaxExamples      int             `yaml:"max_examples"`
	TopN             int             `yaml:"top_n"`

	RootCauses      []RuleSpec            `yaml:"root_causes"`
	Applications    []RuleSpec            `yaml:"applications"`
	ApplicationMode string                `yaml:"application_mode"`
	SubCategories   map[string][]RuleSpec `yaml:"sub_categories"`

	Capacity CapacitySpec `yaml:"capacity"`
}

// Team is a named preset for the team scoped reports.
type Team struct {
	Name          string   `yaml:"name"`
	Filter        string   `yaml:"filter"`
	IncidentTypes []string `yaml:"incident_types"`
}

// RuleSpec is one classifier rule, either a keyword list or a raw pattern.
type RuleSpec struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Pattern  string   `yaml:"pattern"`
}

// CapacitySpec scopes the capacity report. Filter selects the teams' work
// regardless of status; open, created and resolved views are derived from it.
type CapacitySpec struct {
	Filter           string                 `yaml:"filter"`
	InitiativeFilter string                 `yaml:"initiative_filter"`
	ServiceProjects  []string               `yaml:"service_projects"`
	ServiceGroup     string                 `yaml:"service_group"`
	Estimate         capacity.EstimateRules `yaml:"estimate"`
}

const dtiTeams = `"Team[Team]" IN (9b7aba3a-a76b-46b8-8a3b-658baad7c1a3, a092fa48-f541-4358-90b8-ba6caccceb72, 9888ca76-8551-47b3-813f-4bf5df9e9762)`

func DefaultAnalytics() Analytics {
	return Analytics{
		BaseFilter:       `Project IN (DevOps, TechOps, "Technology Group") OR (Project = DTI AND "Team[Team]" IN (01c3b859-1307-41e3-8a88-24c701dd1713, 9888ca76-8551-47b3-813f-4bf5df9e9762, 9b7aba3a-a76b-46b8-8a3b-658baad7c1a3, a092fa48-f541-4358-90b8-ba6caccceb72))`,
		Projects:         []string{"DevOps", "TechOps", "Technology Group", "DTI"},
		InitiativeFilter: `Project IN (DTI, DevOps, "Technology Group", TechOps) AND "Project Short Name[Short text]" IS NOT EMPTY`,
		TechnologyFilter: `Project = "Technology Group" AND component IS NOT EMPTY`,
		ShortNameField:   "Project Short Name",
		DoneStatuses:     []string{"Done", "Closed", "Resolved", "Canceled"},
		DefaultTeam:      "servicedesk",
		Teams: map[string]Team{
			"servicedesk": {
				Name:          "Service Desk",
				Filter:        `Project = DTI AND ` + dtiTeams,
				IncidentTypes: []string{"Incident", "Problem"},
			},
			"devops": {
				Name:          "DevOps",
				Filter:        `Project = DTI AND "Team[Team]" = 9b7aba3a-a76b-46b8-8a3b-658baad7c1a3`,
				IncidentTypes: []string{"Incident"},
			},
		},
		FetchCap:    5000,
		MaxExamples: 3,
		TopN:        10,

		ApplicationMode: "all-matches",

		RootCauses: []RuleSpec{
			{Label: "Network", Keywords: []string{"network", "vpn", "dns", "firewall", "connectivity", "latency", "packet loss"}},
			{Label: "Access & Permissions", Keywords: []string{"access", "permission", "permissions", "password", "login", "mfa", "locked out", "sso"}},
			{Label: "Deployment", Keywords: []string{"deploy", "deployment", "release", "rollback", "pipeline"}},
			{Label: "Configuration", Keywords: []string{"config", "configuration", "setting", "settings", "misconfigured"}},
			{Label: "Capacity", Keywords: []string{"disk", "memory", "cpu", "capacity", "quota", "out of space"}},
			{Label: "Third Party", Keywords: []string{"vendor", "third party", "supplier", "upstream"}},
			{Label: "Hardware", Keywords: []string{"laptop", "monitor", "printer", "keyboard", "hardware", "dock"}},
			{Label: "Software Defect", Keywords: []string{"bug", "error", "exception", "crash", "defect"}},
		},
		Applications: []RuleSpec{
			{Label: "AWS", Keywords: []string{"aws", "ec2", "s3", "rds", "cloudfront"}},
			{Label: "Azure", Keywords: []string{"azure", "entra"}},
			{Label: "Kubernetes", Keywords: []string{"kubernetes", "k8s", "eks", "aks", "helm"}},
			{Label: "Jenkins", Keywords: []string{"jenkins"}},
			{Label: "GitHub", Keywords: []string{"github"}},
			{Label: "Terraform", Keywords: []string{"terraform"}},
			{Label: "Jira", Keywords: []string{"jira"}},
			{Label: "Confluence", Keywords: []string{"confluence"}},
			{Label: "Okta", Keywords: []string{"okta"}},
			{Label: "Salesforce", Keywords: []string{"salesforce"}},
			{Label: "SQL Server", Keywords: []string{"sql server", "mssql"}},
			{Label: "Microsoft 365", Keywords: []string{"office 365", "o365", "outlook", "teams", "sharepoint"}},
			{Label: "VPN", Keywords: []string{"vpn", "globalprotect"}},
		},
		SubCategories: map[string][]RuleSpec{
			"Service Request": {
				{Label: "Access Request", Keywords: []string{"access", "permission", "grant", "add me"}},
				{Label: "Account", Keywords: []string{"account", "password", "reset", "onboarding", "offboarding"}},
				{Label: "Hardware", Keywords: []string{"laptop", "monitor", "hardware", "headset", "dock"}},
				{Label: "Software", Keywords: []string{"install", "license", "software", "upgrade"}},
			},
		},
		Capacity: CapacitySpec{
			Filter:           `Project IN (DevOps, TechOps) OR (Project = DTI AND ` + dtiTeams + `)`,
			InitiativeFilter: `Project = "Technology Group" AND issuetype = Initiative AND statusCategory != Done`,
			ServiceProjects:  []string{"DTI"},
			ServiceGroup:     capacity.DefaultServiceGroup,
			Estimate: capacity.EstimateRules{
				Projects:        []string{"DTI"},
				Types:           append([]string(nil), capacity.DefaultEstimateTypes...),
				ToDoHours:       capacity.DefaultToDoHours,
				InProgressHours: capacity.DefaultInProgressHours,
			},
		},
	}
}

// LoadAnalytics decodes path over the defaults. An empty path yields the defaults.
func LoadAnalytics(path string) (Analytics, error) {
	a := DefaultAnalytics()
	if strings.TrimSpace(path) == "" {
		return a, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("read analytics config: %w", err)
	}
	if err := yaml.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("parse analytics config %s: %w", path, err)
	}
	teams := make(map[string]Team, len(a.Teams))
	for k, t := range a.Teams {
		teams[strings.ToLower(k)] = t
	}
	a.Teams = teams
	a.DefaultTeam = strings.ToLower(a.DefaultTeam)
	if _, ok := a.Teams[a.DefaultTeam]; !ok {
		return a, fmt.Errorf("analytics config: default team %q not defined", a.DefaultTeam)
	}
	return a, nil
}

// Team returns the preset by key, or the default team for an empty key.
func (a Analytics) Team(key string) (Team, bool) {
	if key == "" {
		key = a.DefaultTeam
	}
	t, ok := a.Teams[strings.ToLower(key)]
	return t, ok
}

// Rulebook is the compiled form of the classifier rules.
type Rulebook struct {
	RootCauses      classify.RuleTable
	Applications    classify.RuleTable
	ApplicationMode classify.Mode
	SubCategories   map[string]classify.RuleTable
}

func (a Analytics) Rulebook() (Rulebook, error) {
	var rb Rulebook
	var err error
	if rb.RootCauses, err = CompileRules(a.RootCauses); err != nil {
		return rb, fmt.Errorf("root_causes: %w", err)
	}
	if rb.Applications, err = CompileRules(a.Applications); err != nil {
		return rb, fmt.Errorf("applications: %w", err)
	}
	if rb.ApplicationMode, err = classify.ParseMode(a.ApplicationMode); err != nil {
		return rb, fmt.Errorf("application_mode: %w", err)
	}
	rb.SubCategories = make(map[string]classify.RuleTable, len(a.SubCategories))
	for typ, specs := range a.SubCategories {
		t, err := CompileRules(specs)
		if err != nil {
			return rb, fmt.Errorf("sub_categories[%s]: %w", typ, err)
		}
		rb.SubCategories[typ] = t
	}
	return rb, nil
}

func CompileRules(specs []RuleSpec) (classify.RuleTable, error) {
	out := make(classify.RuleTable, 0, len(specs))
	for _, s := range specs {
		var (
			r   classify.Rule
			err error
		)
		switch {
		case s.Pattern != "":
			r, err = classify.Pattern(s.Label, s.Pattern)
		default:
			r, err = classify.Keywords(s.Label, s.Keywords...)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CapacityRules converts the YAML section into grouper rules.
func (a Analytics) CapacityRules() capacity.Rules {
	return capacity.Rules{
		Estimate:        a.Capacity.Estimate,
		ServiceProjects: a.Capacity.ServiceProjects,
		ServiceGroup:    a.Capacity.ServiceGroup,
	}
}
