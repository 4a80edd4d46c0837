package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// RequestOption adjusts a single outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a request header, overriding transport defaults such as the
// JSON content type.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQuery merges values into the request query string. Empty values are dropped.
func WithQuery(values url.Values) RequestOption {
	return func(r *http.Request) {
		if len(values) == 0 {
			return
		}
		q := r.URL.Query()
		for k, vs := range values {
			for _, v := range vs {
				if v == "" {
					continue
				}
				q.Add(k, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Client issues JSON requests against the service base URL through a [Transport].
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	transport *Transport
}

// NewClient creates a [Client]. A zero timeout leaves the http.Client default.
func NewClient(baseURL string, t *Transport, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("transport: base url %q must be absolute", baseURL)
	}
	if t == nil {
		return nil, errors.New("transport: nil transport")
	}
	return &Client{
		baseURL:   u,
		http:      &http.Client{Transport: t, Timeout: timeout},
		transport: t,
	}, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Transport returns the authenticated transport.
func (c *Client) Transport() *Transport {
	return c.transport
}

// HTTPClient returns the underlying http.Client. Requests made with it still get
// credential injection and 401 handling.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get issues a GET with optional query parameters and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, WithQuery(query))
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// PostMultipart uploads r as the form field named field.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPost, path, &buf, out, WithHeader("Content-Type", mw.FormDataContentType()))
}

// Download issues a request and returns the raw response body for streaming, e.g.
// generated exports. The caller must close the body.
func (c *Client) Download(ctx context.Context, method, path string, body any, opts ...RequestOption) (io.ReadCloser, http.Header, error) {
	req, err := c.newRequest(ctx, method, path, body, opts...)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, nil, newAPIError(req, resp)
	}
	return resp.Body, resp.Header, nil
}

// Do sends a request. body may be nil, an io.Reader (sent as is), or any value
// encoded as JSON. out, when non-nil, receives the decoded JSON response; an empty
// response body leaves it untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	req, err := c.newRequest(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(req, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("transport: decode %s %s: %w", method, req.URL.Redacted(), err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, opts ...RequestOption) (*http.Request, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("transport: encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}
