// Package client talks to a motionblend server over HTTP and follows its
// frame stream over WebSocket.
package client

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

	"github.com/teslashibe/go-motionblend/internal/httpc"
	"github.com/teslashibe/go-motionblend/pkg/api"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/store"
)

// Error is a non-2xx response from the server.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("motionblend: http %d", e.Status)
	}
	return fmt.Sprintf("motionblend: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the shared HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client is a motionblend API client.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("motionblend: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("motionblend: base url %q needs http or https", baseURL)
	}
	c := &Client{base: u, http: httpc.Client}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health reports the server's model.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EncodePhase encodes the phase trajectory of rec.
func (c *Client) EncodePhase(ctx context.Context, rec *motion.Record) (*api.PhaseResponse, error) {
	var out api.PhaseResponse
	if err := c.do(ctx, http.MethodPost, "/api/encode_phase", api.MotionRequest{Motion: rec}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EncodeStyle encodes the latent style of rec.
func (c *Client) EncodeStyle(ctx context.Context, rec *motion.Record) (*api.StyleResponse, error) {
	var out api.StyleResponse
	if err := c.do(ctx, http.MethodPost, "/api/encode_style", api.MotionRequest{Motion: rec}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTransition generates one transition.
func (c *Client) GenerateTransition(ctx context.Context, req api.TransitionRequest) (*api.TransitionResponse, error) {
	var out api.TransitionResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate_transition", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTransitions generates a batch. Per-entry failures are reported in
// the results, not as an error.
func (c *Client) GenerateTransitions(ctx context.Context, reqs []api.TransitionRequest) ([]api.BatchResult, error) {
	var out api.BatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate_transitions", api.BatchRequest{Requests: reqs}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ListTransitions lists stored transitions, newest first.
func (c *Client) ListTransitions(ctx context.Context, limit int) ([]store.Record, error) {
	var out []store.Record
	path := "/api/transitions?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionBVH downloads a stored transition as a BVH document.
func (c *Client) TransitionBVH(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/transitions/"+url.PathEscape(id)+"/bvh", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("motionblend: decode %s: %w", path, err)
	}
	return nil
}

// send performs a request and converts error responses to *Error.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("motionblend: encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("motionblend: %s %s: %w", method, path, err)
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &Error{Status: resp.StatusCode}
	var er api.ErrorResponse
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && json.Unmarshal(data, &er) == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return nil, apiErr
}
