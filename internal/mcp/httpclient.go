package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/movementmemory/internal/progression"
)

// HTTPClient implements DataSource by calling the REST API. Used by the
// stdio binary, which runs next to the assistant while the data lives on the
// server (reached over Tailscale). The server resolves the user from the
// connection, so the user ID of a key is not sent.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ DataSource = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// decode unmarshals body into v. It reports false when the server answered
// that there is no data.
func decode(body []byte, v any) (bool, error) {
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Status == "no_data" {
		return false, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, err
	}
	return true, nil
}

func exercisePath(key progression.Key, leaf string) string {
	return "/api/v1/exercises/" + url.PathEscape(key.ExerciseID) + "/" + leaf
}

func (c *HTTPClient) Memory(ctx context.Context, key progression.Key) (*progression.MovementMemory, error) {
	body, err := c.get(ctx, exercisePath(key, "memory"), nil)
	if err != nil {
		return nil, err
	}
	var mem progression.MovementMemory
	ok, err := decode(body, &mem)
	if err != nil {
		return nil, fmt.Errorf("httpclient: decode memory: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &mem, nil
}

func (c *HTTPClient) Suggestion(ctx context.Context, key progression.Key, sc *progression.SessionContext) (*progression.NextTimeSuggestion, error) {
	params := url.Values{}
	if sc != nil {
		if sc.Tag != "" {
			params.Set("context", sc.Tag)
		}
		if !sc.Date.IsZero() {
			params.Set("date", sc.Date.Format(time.RFC3339))
		}
	}

	body, err := c.get(ctx, exercisePath(key, "suggestion"), params)
	if err != nil {
		return nil, err
	}
	var sug progression.NextTimeSuggestion
	ok, err := decode(body, &sug)
	if err != nil {
		return nil, fmt.Errorf("httpclient: decode suggestion: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &sug, nil
}

func (c *HTTPClient) Memories(ctx context.Context, _ int) ([]progression.MovementMemory, error) {
	body, err := c.get(ctx, "/api/v1/memory", nil)
	if err != nil {
		return nil, err
	}
	var mems []progression.MovementMemory
	if err := json.Unmarshal(body, &mems); err != nil {
		return nil, fmt.Errorf("httpclient: decode memories: %w", err)
	}
	return mems, nil
}
