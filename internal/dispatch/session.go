package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Session is the part of a stored session needed to rebuild its viewer.
type Session struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Script string   `json:"script"`
	Modes  []string `json:"modes"`
	Images []string `json:"images"`
}

// Session fetches a stored session from the server.
func (c *Client) Session(ctx context.Context, id string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &errResp) == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("fetch session: %s", errResp.Detail)
		}
		return nil, fmt.Errorf("fetch session: status %d", resp.StatusCode)
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
