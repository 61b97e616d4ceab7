/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultCap bounds a fetch when the caller does not set a ceiling.
const DefaultCap = 1000

// Page is one batch returned by the issue source.
type Page struct {
	Issues    []domain.IssueRecord
	NextToken string
	IsLast    bool
	Total     int
}

// IssueSource is a paged search over the tracker.
type IssueSource interface {
	SearchPage(ctx context.Context, filter domain.Filter, fields []string, token string) (Page, error)
	Count(ctx context.Context, filter domain.Filter) (int, error)
}

// Query names one paginated fetch of a report.
type Query struct {
	Name   string
	Filter domain.Filter
	Fields []string
	Cap    int
}

func (q Query) sameFetch(o Query) bool {
	return q.Filter.Mergeable(o.Filter) && q.capOrDefault() == o.capOrDefault() &&
		strings.Join(q.Fields, ",") == strings.Join(o.Fields, ",")
}

func (q Query) capOrDefault() int {
	if q.Cap <= 0 {
		return DefaultCap
	}
	return q.Cap
}

type Paginator struct {
	src IssueSource
	log zerolog.Logger
}

func NewPaginator(src IssueSource, log zerolog.Logger) *Paginator {
	return &Paginator{src: src, log: log}
}

// FetchAll drains the source for q until the last page, an empty token, an
// empty page, or the cap. An issue repeated across pages is kept once. Any
// page error fails the whole fetch.
func (p *Paginator) FetchAll(ctx context.Context, q Query) ([]domain.IssueRecord, error) {
	limit := q.capOrDefault()
	var all []domain.IssueRecord
	seen := map[string]bool{}
	token := ""
	for {
		page, err := p.src.SearchPage(ctx, q.Filter, q.Fields, token)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", q.name(), err)
		}
		for _, is := range page.Issues {
			if is.Key != "" {
				if seen[is.Key] {
					continue
				}
				seen[is.Key] = true
			}
			all = append(all, is)
		}
		p.log.Debug().Str("query", q.name()).Int("page", len(page.Issues)).Int("total", len(all)).Bool("last", page.IsLast).Msg("fetched page")
		if page.IsLast || page.NextToken == "" || len(page.Issues) == 0 || len(all) >= limit {
			break
		}
		token = page.NextToken
	}
	if len(all) > limit {
		all = all[:limit]
	}
	p.log.Info().Str("query", q.name()).Int("issues", len(all)).Msg("fetch complete")
	return all, nil
}

// Count returns the number of issues matching filter.
func (p *Paginator) Count(ctx context.Context, filter domain.Filter) (int, error) {
	n, err := p.src.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Results holds the issues of each query of a FetchMany call, by query name.
type Results map[string][]domain.IssueRecord

// FetchMany runs the queries concurrently and returns only when all of them
// have finished. Queries with the same filter, fields and cap are fetched once.
// Names must be unique. The first failure cancels the others and is returned;
// no partial results.
func (p *Paginator) FetchMany(ctx context.Context, queries ...Query) (Results, error) {
	unique := make([]Query, 0, len(queries))
	alias := make(map[string]int, len(queries))
	for _, q := range queries {
		if _, dup := alias[q.name()]; dup {
			return nil, fmt.Errorf("fetch many: duplicate query name %q", q.name())
		}
		idx := -1
		for i, u := range unique {
			if u.sameFetch(q) {
				idx = i
				break
			}
		}
		if idx < 0 {
			unique = append(unique, q)
			idx = len(unique) - 1
		}
		alias[q.name()] = idx
	}

	fetched := make([][]domain.IssueRecord, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range unique {
		i, q := i, q
		g.Go(func() error {
			issues, err := p.FetchAll(gctx, q)
			if err != nil {
				return err
			}
			fetched[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(Results, len(queries))
	for name, idx := range alias {
		out[name] = fetched[idx]
	}
	return out, nil
}

func (q Query) name() string {
	if q.Name != "" {
		return q.Name
	}
	return "issues"
}
