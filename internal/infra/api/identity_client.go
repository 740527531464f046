package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// IdentityClient implements identity.Client against the user-account service.
type IdentityClient struct {
	client
}

func NewIdentityClient(baseURL, token string) *IdentityClient {
	return &IdentityClient{client: newClient(baseURL, token)}
}

func (c *IdentityClient) UsersSince(ctx context.Context, since time.Time) ([]int64, error) {
	u := fmt.Sprintf("%s/v1/vault/notification-users/%s", c.baseURL, url.PathEscape(since.UTC().Format(time.RFC3339)))
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Users []int64 `json:"users"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", err)
	}
	return parsed.Users, nil
}

func (c *IdentityClient) UserEmail(ctx context.Context, userID int64) (string, error) {
	u := fmt.Sprintf("%s/v1/user/%d", c.baseURL, userID)
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode user response: %w", err)
	}
	return parsed.Email, nil
}

func (c *IdentityClient) UserIDByEmail(ctx context.Context, email string) (int64, error) {
	u := fmt.Sprintf("%s/v1/user/%s", c.baseURL, url.PathEscape(email))
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return 0, err
	}

	var parsed struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to decode user response: %w", err)
	}
	return parsed.ID, nil
}
