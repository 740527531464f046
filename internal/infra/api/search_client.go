package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"scholar_notification_pipeline/internal/domain/query"
	"scholar_notification_pipeline/internal/domain/search"
)

// SearchClient implements search.Client against the query service HTTP API.
type SearchClient struct {
	client
}

func NewSearchClient(baseURL, token string) *SearchClient {
	return &SearchClient{client: newClient(baseURL, token)}
}

type searchResponse struct {
	Response struct {
		Docs     []search.Document `json:"docs"`
		NumFound int               `json:"numFound"`
	} `json:"response"`
	ResponseHeader struct {
		Params map[string]string `json:"params"`
	} `json:"responseHeader"`
}

func (c *SearchClient) ExecuteStoredQuery(ctx context.Context, qid string, fields string, rows int, sort string) (*search.Result, error) {
	u := fmt.Sprintf("%s/v1/vault/execute_query/%s?fl=%s&rows=%d&sort=%s",
		c.baseURL, url.PathEscape(qid), url.QueryEscape(fields), rows, url.QueryEscape(sort))
	return c.runQuery(ctx, u)
}

func (c *SearchClient) Search(ctx context.Context, q, sort, fields string, rows int) (*search.Result, error) {
	u := fmt.Sprintf("%s/v1/search/query?q=%s&sort=%s&fl=%s&rows=%d",
		c.baseURL, url.QueryEscape(q), url.QueryEscape(sort), url.QueryEscape(fields), rows)
	return c.runQuery(ctx, u)
}

func (c *SearchClient) runQuery(ctx context.Context, u string) (*search.Result, error) {
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &search.Result{
		Docs:     parsed.Response.Docs,
		NumFound: parsed.Response.NumFound,
		Params:   parsed.ResponseHeader.Params,
	}, nil
}

func (c *SearchClient) FetchSetup(ctx context.Context, userID int64) ([]query.Item, error) {
	u := fmt.Sprintf("%s/v1/vault/notification-setup/%d", c.baseURL, userID)
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	var items []query.Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode setup response: %w", err)
	}
	return items, nil
}
