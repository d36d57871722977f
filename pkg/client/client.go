// Package client is a typed HTTP client for the occupancy API. It keeps the
// session cookie in a jar, so Login followed by UpdateCount just works.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return fmt.Sprintf("%d %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. A jar is added when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

type envelope[T any] struct {
	Message string          `json:"message"`
	Data    T               `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (c *Client) ListBars(ctx context.Context) ([]entity.Bar, error) {
	var bars []entity.Bar
	if err := c.do(ctx, http.MethodGet, "/api/bars", nil, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (c *Client) GetBar(ctx context.Context, id int64) (*entity.Bar, error) {
	var b entity.Bar
	if err := c.do(ctx, http.MethodGet, "/api/bars/"+strconv.FormatInt(id, 10), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) SearchBars(ctx context.Context, q string, size int) ([]entity.Bar, error) {
	path := "/api/bars/search?q=" + url.QueryEscape(q)
	if size > 0 {
		path += "&size=" + strconv.Itoa(size)
	}
	var bars []entity.Bar
	if err := c.do(ctx, http.MethodGet, path, nil, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// UpdateCount needs a prior Login.
func (c *Client) UpdateCount(ctx context.Context, id int64, count int) (*entity.Bar, error) {
	var b entity.Bar
	body := map[string]int{"count": count}
	if err := c.do(ctx, http.MethodPatch, "/api/bars/"+strconv.FormatInt(id, 10)+"/count", body, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*entity.User, error) {
	var env envelope[entity.User]
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) Me(ctx context.Context) (*entity.User, error) {
	var env envelope[entity.User]
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeError(res, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError understands both the JSON error envelope and plain-text bodies.
func decodeError(res *http.Response, raw []byte) error {
	apiErr := &APIError{Status: res.StatusCode, Message: strings.TrimSpace(string(raw))}
	if !strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(res.StatusCode)
		}
		return apiErr
	}
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return apiErr
	}
	apiErr.Message = env.Message
	var fields map[string]string
	if json.Unmarshal(env.Error, &fields) == nil {
		apiErr.Fields = fields
	} else {
		var s string
		if json.Unmarshal(env.Error, &s) == nil && s != "" {
			apiErr.Message += ": " + s
		}
	}
	return apiErr
}
