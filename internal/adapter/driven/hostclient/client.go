// Package hostclient implements the TabChannel port against a running
// content host's HTTP API.
package hostclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
)

// Compile-time interface satisfaction check.
var _ driven.TabChannel = (*Client)(nil)

var (
	// ErrTabNotFound is returned when the host does not know the tab.
	ErrTabNotFound = errors.New("tab not found on host")

	// ErrHost is returned for any other non-success host response.
	ErrHost = errors.New("content host error")
)

const maxResponseBytes = 4 << 20

// tabResponse mirrors the host's tab JSON.
type tabResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	ThreadKey string `json:"thread_key"`
	Active    bool   `json:"active"`
	OpenedAt  string `json:"opened_at"`
}

func (t tabResponse) toModel() model.Tab {
	opened, _ := time.Parse(time.RFC3339, t.OpenedAt)
	return model.Tab{
		ID:        t.ID,
		URL:       t.URL,
		Kind:      model.PageKind(t.Kind),
		ThreadKey: model.ThreadKey(t.ThreadKey),
		Active:    t.Active,
		OpenedAt:  opened,
	}
}

// Client talks to the content host.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for the host at baseURL. A nil httpClient uses
// a client with a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing host URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parsing host URL %q: scheme and host are required", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		base: strings.TrimRight(u.String(), "/") + "/api/v1",
		http: httpClient,
	}, nil
}

// Tabs lists the open tabs, oldest first.
func (c *Client) Tabs(ctx context.Context) ([]model.Tab, error) {
	var tabs []tabResponse
	if err := c.getJSON(ctx, "/tabs", &tabs); err != nil {
		return nil, err
	}
	out := make([]model.Tab, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, t.toModel())
	}
	return out, nil
}

// ActiveTab returns the host's active tab or driven.ErrNoActiveTab.
func (c *Client) ActiveTab(ctx context.Context) (model.Tab, error) {
	var tab tabResponse
	err := c.getJSON(ctx, "/tabs/active", &tab)
	if errors.Is(err, ErrTabNotFound) {
		return model.Tab{}, driven.ErrNoActiveTab
	}
	if err != nil {
		return model.Tab{}, err
	}
	return tab.toModel(), nil
}

// Send delivers req to the tab's content script.
func (c *Client) Send(ctx context.Context, tabID string, req protocol.Request) (protocol.Response, error) {
	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/messages", payload)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, fmt.Errorf("tab %s: %w", tabID, protocol.ErrNotHandled)
	default:
		return nil, hostError(status, body)
	}

	resp, err := protocol.DecodeResponse(req.Type(), body)
	if err != nil {
		return nil, fmt.Errorf("tab %s: %w", tabID, err)
	}
	return resp, nil
}

// Reload asks the host to rebuild the tab from its URL.
func (c *Client) Reload(ctx context.Context, tabID string) error {
	status, body, err := c.do(ctx, http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/reload", nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return hostError(status, body)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return hostError(status, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return resp.StatusCode, data, nil
}

func hostError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrTabNotFound, e.Error)
	}
	return fmt.Errorf("%w: %d %s", ErrHost, status, e.Error)
}
