package query

import (
	"fmt"
	"strings"
	"time"
)

// Options carries the configuration the template builders need.
type Options struct {
	ArxivLookbackDays   int
	AuthorsLookbackDays int
}

// Concrete is one executable query produced by a variant. Exactly one
// of QID and Query is set: stored queries are executed by identifier,
// template expansions by query text.
type Concrete struct {
	Name  string
	QID   string
	Query string
	Sort  string
}

// Variant is one of the saved-query kinds. A single variant may expand
// into several concrete queries (e.g. the keyword template).
type Variant interface {
	Build(now time.Time) []Concrete
}

const (
	sortRecent    = "entry_date desc, bibcode desc"
	sortRelevance = "score desc, bibcode desc"
	sortCited     = "citation_count desc, bibcode desc"
)

// Stored is a persistent saved query executed directly by its QID.
type Stored struct {
	Name string
	QID  string
}

func (s Stored) Build(time.Time) []Concrete {
	return []Concrete{{Name: s.Name, QID: s.QID, Sort: sortRecent}}
}

// Arxiv matches recent preprint postings against keywords and category
// classes over a short entry-date window.
type Arxiv struct {
	Name         string
	Keywords     string
	Classes      []string
	LookbackDays int
}

func (a Arxiv) Build(now time.Time) []Concrete {
	var parts []string
	if len(a.Classes) > 0 {
		parts = append(parts, fmt.Sprintf("arxiv_class:(%s)", strings.Join(a.Classes, " OR ")))
	}
	if a.Keywords != "" {
		parts = append(parts, fmt.Sprintf("(%s)", a.Keywords))
	}
	q := fmt.Sprintf("bibstem:arxiv %s %s", strings.Join(parts, " "), entdateWindow(now, a.LookbackDays))
	return []Concrete{{Name: a.Name, Query: q, Sort: sortRelevance}}
}

// Citations finds new papers citing the subscriber's own papers.
type Citations struct {
	Name   string
	Author string
}

func (c Citations) Build(time.Time) []Concrete {
	return []Concrete{{
		Name:  fmt.Sprintf("%s - Citations", c.Name),
		Query: fmt.Sprintf("citations(%s)", c.Author),
		Sort:  sortRecent,
	}}
}

// Authors finds recent papers by followed authors.
type Authors struct {
	Name         string
	Terms        string
	LookbackDays int
}

func (a Authors) Build(now time.Time) []Concrete {
	return []Concrete{{
		Name:  a.Name,
		Query: fmt.Sprintf("%s %s", a.Terms, entdateWindow(now, a.LookbackDays)),
		Sort:  sortRecent,
	}}
}

// Keyword expands into three sub-queries over the same terms: recent
// papers, trending papers, and most-cited papers.
type Keyword struct {
	Name         string
	Terms        string
	LookbackDays int
}

func (k Keyword) Build(now time.Time) []Concrete {
	return []Concrete{
		{
			Name:  fmt.Sprintf("%s - Recent Papers", k.Name),
			Query: fmt.Sprintf("%s %s", k.Terms, entdateWindow(now, k.LookbackDays)),
			Sort:  sortRecent,
		},
		{
			Name:  fmt.Sprintf("%s - Trending Papers", k.Name),
			Query: fmt.Sprintf("trending(%s)", k.Terms),
			Sort:  sortRelevance,
		},
		{
			Name:  fmt.Sprintf("%s - Most Cited Papers", k.Name),
			Query: k.Terms,
			Sort:  sortCited,
		},
	}
}

func entdateWindow(now time.Time, lookbackDays int) string {
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	start := now.AddDate(0, 0, -lookbackDays)
	return fmt.Sprintf("entdate:[%s TO *]", start.UTC().Format("2006-01-02"))
}
