package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/ports"
)

const (
	DefaultBaseURL = "https://offchain-manager.namespace.ninja"
	DefaultTimeout = 30 * time.Second

	// APIKeyHeader carries the naming service API key.
	APIKeyHeader = "x-auth-token"

	defaultPageSize = 50
)

// NamespaceClient is a NameDirectory backed by the offchain naming service.
type NamespaceClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  log.Logger
}

// Option configures NamespaceClient.
type Option func(*NamespaceClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *NamespaceClient) {
		c.client = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *NamespaceClient) {
		c.client.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(lg log.Logger) Option {
	return func(c *NamespaceClient) {
		c.logger = lg
	}
}

// NewNamespaceClient creates a client authenticating with apiKey.
func NewNamespaceClient(baseURL, apiKey string, opts ...Option) *NamespaceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &NamespaceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.NameDirectory = (*NamespaceClient)(nil)

// APIError is a non-success response from the naming service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("naming service error %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return core.ErrNotFound
	}
	return nil
}

func (c *NamespaceClient) IsSubnameAvailable(ctx context.Context, fullName string) (bool, error) {
	var out struct {
		IsAvailable bool `json:"isAvailable"`
	}
	path := "/api/v1/subnames/availability/" + url.PathEscape(fullName)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.IsAvailable, nil
}

func (c *NamespaceClient) FindSubnames(ctx context.Context, filter core.SubnameFilter) (*core.SubnamePage, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("size", strconv.Itoa(defaultPageSize))
	if filter.ParentName != "" {
		q.Set("parentName", filter.ParentName)
	}
	if filter.Owner != "" {
		q.Set("owner", filter.Owner.String())
	}

	var page core.SubnamePage
	if err := c.do(ctx, http.MethodGet, "/api/v1/subnames/search?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *NamespaceClient) CreateSubname(ctx context.Context, req core.NewSubname) (*core.Subname, error) {
	var out core.Subname
	if err := c.do(ctx, http.MethodPost, "/api/v1/subnames", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *NamespaceClient) SetTextRecord(ctx context.Context, fullName, key, value string) error {
	path := "/api/v1/records/" + url.PathEscape(fullName) + "/texts"
	return c.do(ctx, http.MethodPatch, path, core.Record{Key: key, Value: value}, nil)
}

func (c *NamespaceClient) DeleteTextRecord(ctx context.Context, fullName, key string) error {
	path := "/api/v1/records/" + url.PathEscape(fullName) + "/texts/" + url.PathEscape(key)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *NamespaceClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.Debug("naming service request failed", "method", method, "path", path, "status", resp.StatusCode)
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
