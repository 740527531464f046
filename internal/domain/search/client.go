package search

import (
	"context"
	"strings"

	"scholar_notification_pipeline/internal/domain/query"
)

// Document is a single bibliographic record as returned by the search
// service. Only the fields rendered into notifications are mapped.
type Document struct {
	Bibcode    string   `json:"bibcode"`
	Title      []string `json:"title"`
	AuthorNorm []string `json:"author_norm"`
	Year       string   `json:"year"`
	Bibstem    []string `json:"bibstem"`
}

// DisplayTitle returns the first title, or the bibcode when the record
// has none.
func (d Document) DisplayTitle() string {
	if len(d.Title) > 0 {
		return d.Title[0]
	}
	return d.Bibcode
}

// DisplayAuthors returns up to three normalized authors, with an
// "et al." suffix when more exist.
func (d Document) DisplayAuthors() string {
	const max = 3
	if len(d.AuthorNorm) == 0 {
		return ""
	}
	if len(d.AuthorNorm) <= max {
		return strings.Join(d.AuthorNorm, "; ")
	}
	return strings.Join(d.AuthorNorm[:max], "; ") + " et al."
}

// Result is the response to one executed query.
type Result struct {
	Docs     []Document
	NumFound int
	// Params echoes the query parameters the service actually matched,
	// including the fully expanded query string for stored queries.
	Params map[string]string
}

// Client is the upstream query/search service: stored saved-query
// execution, ad hoc search, and per-user saved-query setup retrieval.
type Client interface {
	// ExecuteStoredQuery runs a persistent saved query by its identifier.
	ExecuteStoredQuery(ctx context.Context, qid string, fields string, rows int, sort string) (*Result, error)
	// Search runs an ad hoc query string.
	Search(ctx context.Context, q, sort, fields string, rows int) (*Result, error)
	// FetchSetup returns the subscriber's saved query definitions.
	FetchSetup(ctx context.Context, userID int64) ([]query.Item, error)
}
