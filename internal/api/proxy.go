package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBody bounds request and response bodies passing through the proxy.
const maxBody = 1 << 20

// Proxy forwards API calls to the inventory backend.
type Proxy struct {
	BaseURL string
	Client  *http.Client
	Metrics *Metrics
}

// NewProxy returns a proxy for the backend at baseURL.
func NewProxy(baseURL string, timeout time.Duration, metrics *Metrics) *Proxy {
	return &Proxy{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		Metrics: metrics,
	}
}

// route describes how one inbound endpoint maps to the backend.
type route struct {
	// name labels logs and metrics, e.g. "items.create".
	name string
	path string
	// query replaces the inbound query string when non-nil.
	query url.Values
	// created forces 201 on success.
	created bool
	// failure is the fixed message for non-2xx backend responses.
	failure string
}

// forward relays r to the backend according to rt. Backend failures become
// {"error": ...} bodies; nothing here panics or inspects the payload.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, rt route) {
	start := time.Now()
	status := p.relay(w, r, rt)
	p.Metrics.observe(rt.name, status, time.Since(start))
}

func (p *Proxy) relay(w http.ResponseWriter, r *http.Request, rt route) int {
	target := p.BaseURL + rt.path
	if rt.query != nil {
		if len(rt.query) > 0 {
			target += "?" + rt.query.Encode()
		}
	} else if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody {
		data, err := readLimited(r.Body)
		r.Body.Close()
		if errors.Is(err, errTooLarge) {
			slog.Warn("rejecting oversized request body", "route", rt.name)
			jsonError(w, http.StatusRequestEntityTooLarge, MsgTooLarge)
			return http.StatusRequestEntityTooLarge
		}
		if err != nil {
			return p.fail(w, rt, fmt.Errorf("reading request body: %w", err))
		}
		if len(data) > 0 {
			body = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		return p.fail(w, rt, fmt.Errorf("building backend request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return p.fail(w, rt, fmt.Errorf("calling backend: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		slog.Warn("backend rejected request", "route", rt.name, "status", resp.StatusCode)
		jsonError(w, resp.StatusCode, rt.failure)
		return resp.StatusCode
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return p.fail(w, rt, fmt.Errorf("reading backend response: %w", err))
	}
	if len(bytes.TrimSpace(data)) > 0 && !json.Valid(data) {
		return p.fail(w, rt, errors.New("backend returned malformed JSON"))
	}

	status := resp.StatusCode
	if rt.created {
		status = http.StatusCreated
	}
	rawJSON(w, status, data)
	return status
}

func (p *Proxy) fail(w http.ResponseWriter, rt route, err error) int {
	slog.Error("proxy request failed", "route", rt.name, "error", err)
	jsonError(w, http.StatusInternalServerError, MsgInternal)
	return http.StatusInternalServerError
}

var errTooLarge = fmt.Errorf("body exceeds %d bytes", maxBody)

// readLimited reads at most maxBody bytes and fails with errTooLarge when
// more are available.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBody+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBody {
		return nil, errTooLarge
	}
	return data, nil
}

// idPath joins prefix and the escaped {id} path value.
func idPath(r *http.Request, prefix string) string {
	return prefix + "/" + url.PathEscape(r.PathValue("id"))
}
