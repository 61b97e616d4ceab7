/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
)

// OtherLabel is returned in FirstMatch mode when no rule matches.
const OtherLabel = "Other"

type Mode uint8

const (
	// FirstMatch yields the earliest matching rule's label, or OtherLabel.
	FirstMatch Mode = iota
	// AllMatches yields every matching label in table order.
	AllMatches
)

func (m Mode) String() string {
	if m == AllMatches {
		return "all-matches"
	}
	return "first-match"
}

// ParseMode accepts "first" / "first-match" and "all" / "all-matches".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first-match":
		return FirstMatch, nil
	case "all", "all-matches":
		return AllMatches, nil
	}
	return FirstMatch, fmt.Errorf("unknown classify mode %q", s)
}

type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

// RuleTable is evaluated in order.
type RuleTable []Rule

// Keywords builds a case-insensitive rule that matches any of words on word
// boundaries, so "ad" does not match inside "add". Words are quoted.
func Keywords(label string, words ...string) (Rule, error) {
	if len(words) == 0 {
		return Rule{}, fmt.Errorf("rule %q: no keywords", label)
	}
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	if len(quoted) == 0 {
		return Rule{}, fmt.Errorf("rule %q: no keywords", label)
	}
	return Pattern(label, `(?i)\b(?:`+strings.Join(quoted, "|")+`)\b`)
}

// Pattern compiles a raw expression into a rule.
func Pattern(label, expr string) (Rule, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", label, err)
	}
	return Rule{Label: label, Pattern: re}, nil
}

// Classify matches text against table. FirstMatch returns exactly one label,
// AllMatches returns zero or more labels without duplicates.
func Classify(text string, table RuleTable, mode Mode) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range table {
		if r.Pattern == nil || !r.Pattern.MatchString(text) {
			continue
		}
		if mode == FirstMatch {
			return []string{r.Label}
		}
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	if mode == FirstMatch {
		return []string{OtherLabel}
	}
	return out
}

// IssueText is the searchable text of an issue: summary then flattened description.
func IssueText(i domain.IssueRecord) string {
	desc := i.Description.Text()
	if desc == "" {
		return i.Summary
	}
	return i.Summary + " " + desc
}

// Tally classifies every issue and counts labels. Percentages are relative to
// the number of issues, so in AllMatches mode they can sum past 100.
// Buckets are sorted by count desc, then label.
func Tally(issues []domain.IssueRecord, table RuleTable, mode Mode, maxExamples int) []domain.CategoryBucket {
	idx := map[string]int{}
	var buckets []domain.CategoryBucket
	for _, is := range issues {
		for _, label := range Classify(IssueText(is), table, mode) {
			pos, ok := idx[label]
			if !ok {
				pos = len(buckets)
				idx[label] = pos
				buckets = append(buckets, domain.CategoryBucket{Label: label, Examples: []domain.IssueRef{}})
			}
			b := &buckets[pos]
			b.Count++
			if len(b.Examples) < maxExamples {
				b.Examples = append(b.Examples, domain.IssueRef{Key: is.Key, Summary: is.Summary})
			}
		}
	}
	for i := range buckets {
		buckets[i].Percentage = metrics.Percent(buckets[i].Count, len(issues))
	}
	sort.SliceStable(buckets, func(a, b int) bool {
		if buckets[a].Count != buckets[b].Count {
			return buckets[a].Count > buckets[b].Count
		}
		return buckets[a].Label < buckets[b].Label
	})
	if buckets == nil {
		return []domain.CategoryBucket{}
	}
	return buckets
}
