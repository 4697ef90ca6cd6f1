// Package client talks to a running `tig serve`.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tigdiff/shared/types"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// DiffQuery selects the two sides of a diff. Empty Old and New compare the
// working directory with the index.
type DiffQuery struct {
	Old          string
	New          string
	ContextLines int
	Patience     bool
	Reverse      bool
	Stat         bool
	Paths        []string
}

func (q DiffQuery) values(format string) url.Values {
	v := url.Values{}
	if q.Old != "" {
		v.Set("old", q.Old)
	}
	if q.New != "" {
		v.Set("new", q.New)
	}
	if format != "" {
		v.Set("format", format)
	}
	if q.ContextLines > 0 {
		v.Set("context", strconv.Itoa(q.ContextLines))
	}
	if q.Patience {
		v.Set("patience", "true")
	}
	if q.Reverse {
		v.Set("reverse", "true")
	}
	if q.Stat {
		v.Set("stat", "true")
	}
	for _, p := range q.Paths {
		v.Add("path", p)
	}
	return v
}

// Diff fetches the structured diff.
func (c *Client) Diff(ctx context.Context, q DiffQuery) (*types.DiffResponse, error) {
	var result types.DiffResponse
	if err := c.getJSON(ctx, "/api/diff", q.values("json"), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Patch fetches the diff rendered as a unified patch.
func (c *Client) Patch(ctx context.Context, q DiffQuery) (string, error) {
	return c.getText(ctx, "/api/diff", q.values("patch"))
}

// Compact fetches the diff in name-status form.
func (c *Client) Compact(ctx context.Context, q DiffQuery) (string, error) {
	return c.getText(ctx, "/api/diff", q.values("compact"))
}

func (c *Client) Status(ctx context.Context, paths ...string) (*types.StatusResponse, error) {
	v := url.Values{}
	for _, p := range paths {
		v.Add("path", p)
	}
	var result types.StatusResponse
	if err := c.getJSON(ctx, "/api/status", v, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var apiErr types.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("unexpected status: %s: %s", resp.Status, apiErr.Message)
		}
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) getText(ctx context.Context, path string, query url.Values) (string, error) {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
