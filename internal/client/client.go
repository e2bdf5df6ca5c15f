// Package client is the typed HTTP client for the inventory API. It talks to
// the admin server's /api proxy, or directly to a backend with the same surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/erazemk/invadmin/internal/model"
)

// DefaultTimeout bounds every call when no custom http.Client is given.
const DefaultTimeout = 10 * time.Second

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.Code)
}

// Client issues one HTTP call per inventory operation.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d, Transport: c.http.Transport} }
}

// WithHandler serves every call from h in-process instead of the network.
// The admin pages use it to reach the API through the proxy router.
func WithHandler(h http.Handler) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: c.http.Timeout, Transport: handlerTransport{h}}
	}
}

// handlerTransport is an http.RoundTripper backed by an http.Handler.
type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Handlers may modify the request they serve.
	in := req.Clone(req.Context())
	if in.Body == nil {
		in.Body = http.NoBody
	}
	in.RequestURI = req.URL.RequestURI()

	rw := &bufferedResponse{header: http.Header{}}
	t.h.ServeHTTP(rw, in)
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	code := rw.code
	if code == 0 {
		code = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        rw.header,
		Body:          io.NopCloser(&rw.body),
		ContentLength: int64(rw.body.Len()),
		Request:       req,
	}, nil
}

// bufferedResponse collects a handler's response in memory.
type bufferedResponse struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) {
	if b.code == 0 {
		b.code = code
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.code == 0 {
		b.code = http.StatusOK
	}
	return b.body.Write(p)
}

// New returns a client for the API rooted at baseURL (e.g. "http://localhost:3000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PurchaseOptions are the query parameters of a purchase call.
type PurchaseOptions struct {
	// Virtual defaults to true when nil.
	Virtual *bool `url:"virtual"`
}

// ListItems returns all items.
func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/api/items", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns one item.
func (c *Client) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, itemPath(id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem creates an item and returns it with its assigned id.
func (c *Client) CreateItem(ctx context.Context, item model.Item) (*model.Item, error) {
	var created model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items", nil, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateItem replaces an item's name and quantity.
func (c *Client) UpdateItem(ctx context.Context, id int64, item model.Item) (*model.Item, error) {
	var updated model.Item
	if err := c.do(ctx, http.MethodPut, itemPath(id), nil, item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, nil, nil)
}

// ListOrders returns all orders.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one order.
func (c *Client) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodGet, orderPath(id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder replaces the lines and address of an existing order.
func (c *Client) UpdateOrder(ctx context.Context, id int64, req model.OrderRequest) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPut, orderPath(id), nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// PurchaseOrder purchases an order. A nil opts purchases virtually.
func (c *Client) PurchaseOrder(ctx context.Context, id int64, opts *PurchaseOptions) (*model.Order, error) {
	virtual := true
	if opts != nil && opts.Virtual != nil {
		virtual = *opts.Virtual
	}
	params, err := query.Values(PurchaseOptions{Virtual: &virtual})
	if err != nil {
		return nil, fmt.Errorf("encoding purchase options: %w", err)
	}

	var order model.Order
	if err := c.do(ctx, http.MethodPost, orderPath(id)+"/purchase", params, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func itemPath(id int64) string  { return fmt.Sprintf("/api/items/%d", id) }
func orderPath(id int64) string { return fmt.Sprintf("/api/orders/%d", id) }

// do performs a single JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Best effort: a non-JSON error body leaves Message empty.
		var eb model.ErrorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb); err != nil {
			slog.Debug("undecodable error body", "method", method, "path", path, "status", resp.StatusCode, "error", err)
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: eb.Error}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
