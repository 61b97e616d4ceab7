package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/rs/zerolog"
)

// fakeSource serves fixed pages per filter; token "" is the first page.
type fakeSource struct {
	mu     sync.Mutex
	pages  map[domain.Filter][]Page
	fail   map[domain.Filter]error
	calls  map[domain.Filter]int
	fields [][]string
}

func (f *fakeSource) SearchPage(ctx context.Context, filter domain.Filter, fields []string, token string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[domain.Filter]int{}
	}
	f.calls[filter]++
	f.fields = append(f.fields, fields)
	if err := f.fail[filter]; err != nil {
		return Page{}, err
	}
	idx := 0
	if token != "" {
		fmt.Sscanf(token, "p%d", &idx)
	}
	pages := f.pages[filter]
	if idx >= len(pages) {
		return Page{}, nil
	}
	return pages[idx], nil
}

func (f *fakeSource) Count(ctx context.Context, filter domain.Filter) (int, error) {
	if err := f.fail[filter]; err != nil {
		return 0, err
	}
	return len(f.pages[filter]), nil
}

func issues(prefix string, n int) []domain.IssueRecord {
	out := make([]domain.IssueRecord, n)
	for i := range out {
		out[i] = domain.IssueRecord{Key: fmt.Sprintf("%s-%d", prefix, i+1)}
	}
	return out
}

func TestFetchAll_StopsOnLastPage(t *testing.T) {
	src := &fakeSource{pages: map[domain.Filter][]Page{
		"f": {
			{Issues: issues("A", 2), NextToken: "p1"},
			{Issues: issues("B", 2), NextToken: "p2", IsLast: true},
			{Issues: issues("C", 2)},
		},
	}}
	p := NewPaginator(src, zerolog.Nop())
	got, err := p.FetchAll(context.Background(), Query{Filter: "f", Fields: []string{"created"}})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 issues, got %d", len(got))
	}
	if src.calls["f"] != 2 {
		t.Fatalf("expected 2 page calls, got %d", src.calls["f"])
	}
	if strings.Join(src.fields[0], ",") != "created" {
		t.Fatalf("fields not forwarded: %v", src.fields[0])
	}
}

func TestFetchAll_TrimsToCap(t *testing.T) {
	src := &fakeSource{pages: map[domain.Filter][]Page{
		"f": {
			{Issues: issues("A", 3), NextToken: "p1"},
			{Issues: issues("B", 3), NextToken: "p2"},
			{Issues: issues("C", 3), NextToken: "p3"},
		},
	}}
	got, err := NewPaginator(src, zerolog.Nop()).FetchAll(context.Background(), Query{Filter: "f", Cap: 5})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 5 || got[4].Key != "B-2" {
		t.Fatalf("expected 5 issues ending at B-2, got %d", len(got))
	}
	if src.calls["f"] != 2 {
		t.Fatalf("cap reached after 2 pages, got %d calls", src.calls["f"])
	}
}

func TestFetchAll_EmptyPageAfterTokenIsExhaustion(t *testing.T) {
	src := &fakeSource{pages: map[domain.Filter][]Page{
		"f": {
			{Issues: issues("A", 2), NextToken: "p1"},
			{Issues: nil, NextToken: "p2"},
			{Issues: issues("C", 2)},
		},
	}}
	got, err := NewPaginator(src, zerolog.Nop()).FetchAll(context.Background(), Query{Filter: "f"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(got))
	}
}

func TestFetchAll_MissingTokenStops(t *testing.T) {
	src := &fakeSource{pages: map[domain.Filter][]Page{
		"f": {{Issues: issues("A", 2)}, {Issues: issues("B", 2)}},
	}}
	got, err := NewPaginator(src, zerolog.Nop()).FetchAll(context.Background(), Query{Filter: "f"})
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 issues and no error, got %d, %v", len(got), err)
	}
}

func TestFetchAll_RepeatedIssueKeptOnce(t *testing.T) {
	src := &fakeSource{pages: map[domain.Filter][]Page{
		"f": {
			{Issues: issues("A", 3), NextToken: "p1"},
			{Issues: append(issues("A", 3)[2:], issues("B", 1)...), IsLast: true},
		},
	}}
	got, err := NewPaginator(src, zerolog.Nop()).FetchAll(context.Background(), Query{Filter: "f"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 4 || got[2].Key != "A-3" || got[3].Key != "B-1" {
		t.Fatalf("expected A-1..A-3, B-1 once each, got %+v", got)
	}
}

func TestFetchAll_ErrorFailsWholeFetch(t *testing.T) {
	boom := &domain.SourceError{Op: "jira search", Status: 502}
	src := &fakeSource{fail: map[domain.Filter]error{"f": boom}}
	got, err := NewPaginator(src, zerolog.Nop()).FetchAll(context.Background(), Query{Name: "open", Filter: "f"})
	if got != nil {
		t.Fatalf("no partial result expected, got %d", len(got))
	}
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestFetchMany_JoinsAndDedups(t *testing.T) {
	src := &fakeSource{pages: map[domain.Filter][]Page{
		"open":    {{Issues: issues("O", 3), IsLast: true}},
		"created": {{Issues: issues("C", 2), IsLast: true}},
	}}
	p := NewPaginator(src, zerolog.Nop())
	res, err := p.FetchMany(context.Background(),
		Query{Name: "open", Filter: "open"},
		Query{Name: "created", Filter: "created"},
		Query{Name: "open-again", Filter: " open "},
	)
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	if len(res["open"]) != 3 || len(res["created"]) != 2 || len(res["open-again"]) != 3 {
		t.Fatalf("unexpected results: %d %d %d", len(res["open"]), len(res["created"]), len(res["open-again"]))
	}
	if src.calls["open"] != 1 {
		t.Fatalf("equal filters should be fetched once, got %d", src.calls["open"])
	}
}

func TestFetchMany_AnyFailureFailsAll(t *testing.T) {
	src := &fakeSource{
		pages: map[domain.Filter][]Page{"ok": {{Issues: issues("O", 1), IsLast: true}}},
		fail:  map[domain.Filter]error{"bad": &domain.SourceError{Op: "jira search", Err: errors.New("dial tcp: refused")}},
	}
	res, err := NewPaginator(src, zerolog.Nop()).FetchMany(context.Background(),
		Query{Name: "ok", Filter: "ok"}, Query{Name: "bad", Filter: "bad"})
	if err == nil || res != nil {
		t.Fatalf("expected failure with no results, got %v / %v", res, err)
	}
	if !strings.Contains(err.Error(), "fetch bad") {
		t.Fatalf("error should name failing query: %v", err)
	}
}

func TestFetchMany_DuplicateNamesRejected(t *testing.T) {
	src := &fakeSource{pages: map[domain.Filter][]Page{
		"a": {{Issues: issues("A", 1), IsLast: true}},
		"b": {{Issues: issues("B", 1), IsLast: true}},
	}}
	res, err := NewPaginator(src, zerolog.Nop()).FetchMany(context.Background(),
		Query{Name: "open", Filter: "a"}, Query{Name: "open", Filter: "b"})
	if err == nil || res != nil {
		t.Fatalf("two result sets under one name must fail, got %v / %v", res, err)
	}
	if len(src.calls) != 0 {
		t.Fatalf("nothing should be fetched, got %v", src.calls)
	}
}
