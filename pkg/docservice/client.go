package docservice

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/observability"
	"github.com/matzehuels/docmap/pkg/storage"
)

// APIPrefix is the path prefix of every versioned endpoint.
const APIPrefix = "/api/v1"

// DefaultTimeout bounds each request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client talks to a document service over HTTP. It implements the
// expansion controller's Fetcher. Requests are never retried: a failed
// expand leaves the node collapsed and the user retries by toggling again.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *log.Logger

	// Depth is the number of levels below the root requested on load.
	Depth int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds each request. Zero leaves the current timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithDepth sets the initial load depth.
func WithDepth(depth int) ClientOption {
	return func(c *Client) { c.Depth = depth }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.Default(),
		Depth:      DefaultDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchInitialTree loads the root and Depth levels of descendants.
func (c *Client) FetchInitialTree(ctx context.Context, documentID string) (mindmap.Tree, error) {
	q := url.Values{"depth": {strconv.Itoa(c.Depth)}}
	var t mindmap.Tree
	err := c.do(ctx, http.MethodGet, "/mindmap/"+url.PathEscape(documentID), q, nil, &t)
	return t, err
}

// FetchChildren expands one node, including its full content.
func (c *Client) FetchChildren(ctx context.Context, nodeID string) (mindmap.Expansion, error) {
	include := true
	var exp mindmap.Expansion
	err := c.do(ctx, http.MethodPost, "/nodes/"+url.PathEscape(nodeID)+"/expand", nil,
		ExpandRequest{IncludeContent: &include}, &exp)
	return exp, err
}

// Node fetches one node.
func (c *Client) Node(ctx context.Context, nodeID string) (mindmap.Node, error) {
	var n mindmap.Node
	err := c.do(ctx, http.MethodGet, "/nodes/"+url.PathEscape(nodeID), nil, nil, &n)
	return n, err
}

// UpdateNode patches a node's payload.
func (c *Client) UpdateNode(ctx context.Context, nodeID string, patch NodePatch) (mindmap.Node, error) {
	var n mindmap.Node
	err := c.do(ctx, http.MethodPatch, "/nodes/"+url.PathEscape(nodeID), nil, patch, &n)
	return n, err
}

// Documents lists persisted documents, newest first.
func (c *Client) Documents(ctx context.Context) ([]storage.DocumentInfo, error) {
	var resp DocumentsResponse
	if err := c.do(ctx, http.MethodGet, "/documents", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// Import uploads a tree for persistence.
func (c *Client) Import(ctx context.Context, req ImportRequest) (storage.DocumentInfo, error) {
	var info storage.DocumentInfo
	err := c.do(ctx, http.MethodPost, "/documents", nil, req, &info)
	return info, err
}

// LoadDocument asks the service to index a persisted document.
func (c *Client) LoadDocument(ctx context.Context, contentHash string) (LoadResponse, error) {
	var resp LoadResponse
	err := c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(contentHash)+"/load", nil, nil, &resp)
	return resp, err
}

// Audit returns a document's audit trail, newest first.
func (c *Client) Audit(ctx context.Context, contentHash string) ([]storage.AuditEntry, error) {
	var resp AuditResponse
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(contentHash)+"/audit", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Delete removes a persisted document.
func (c *Client) Delete(ctx context.Context, contentHash string) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(contentHash), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL.String() + APIPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	host, route := c.baseURL.Host, APIPrefix+path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, route)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, route, err)
		return transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, host, route, resp.StatusCode, time.Since(start))
	c.logger.Debug("document service", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s %s", method, path)
	}
	return nil
}

func transportError(ctx context.Context, method, path string, err error) error {
	var netErr net.Error
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "%s %s", method, path)
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path)
}

// responseError restores the service's error code, falling back to the
// status code when the body carries none.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body ErrorResponse
	_ = json.Unmarshal(data, &body)

	code := errors.Code(body.ErrorCode)
	if code == "" {
		code = errors.FromHTTPStatus(resp.StatusCode)
	}
	detail := body.Detail
	if detail == "" {
		detail = strings.TrimSpace(string(data))
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return errors.New(code, "%s", detail)
}
