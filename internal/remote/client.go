package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/five82/remedit/internal/credential"
	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/logging"
)

// Fetcher defines the program operations offered by an endpoint.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	ListPrograms(ctx context.Context) ([]Program, error)
	GetProgram(ctx context.Context, id string) (Program, error)
	SaveProgram(ctx context.Context, p Program) (Program, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Observer receives one call per completed request.
type Observer interface {
	ObserveRequest(op string, err error, elapsed time.Duration)
}

// Client talks to one endpoint's program API. It holds no mutable state and
// is safe for concurrent use.
type Client struct {
	endpoint  endpoint.Endpoint
	baseURL   string
	creds     credential.Getter
	http      *http.Client
	userAgent string
	observer  Observer
}

const (
	defaultUserAgent = "remedit/0.1"
	// DefaultTimeout bounds every request, connect and read included.
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithObserver registers a request observer, typically the metrics recorder.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient builds a Client for ep. creds may be nil, in which case requests
// are sent unauthenticated.
func NewClient(ep endpoint.Endpoint, creds credential.Getter, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(ep.URL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint: ep,
		baseURL:  base,
		creds:    creds,
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the endpoint this client is bound to.
func (c *Client) Endpoint() endpoint.Endpoint {
	return c.endpoint
}

// ListPrograms retrieves program metadata from GET <base>/.
func (c *Client) ListPrograms(ctx context.Context) ([]Program, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	start := time.Now()
	programs, err := c.listPrograms(ctx)
	c.observe("list", err, start)
	return programs, err
}

func (c *Client) listPrograms(ctx context.Context) ([]Program, error) {
	reqURL := c.baseURL + "/"
	var payload struct {
		Programs *[]Program `json:"programs"`
	}
	if err := c.do(ctx, http.MethodGet, reqURL, nil, &payload); err != nil {
		return nil, err
	}
	if payload.Programs == nil {
		return nil, c.protocolError(reqURL, "'programs' field not found", nil)
	}
	return *payload.Programs, nil
}

// GetProgram retrieves a program with its content from GET <base>/<id>.
func (c *Client) GetProgram(ctx context.Context, id string) (Program, error) {
	if c == nil {
		return Program{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return Program{}, fmt.Errorf("program id required")
	}
	start := time.Now()
	program, err := c.fetchProgram(ctx, http.MethodGet, id, nil)
	c.observe("get", err, start)
	return program, err
}

// SaveProgram stores p's content with PUT <base>/<id> and returns the server's
// canonical copy.
func (c *Client) SaveProgram(ctx context.Context, p Program) (Program, error) {
	if c == nil {
		return Program{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return Program{}, fmt.Errorf("program id required")
	}
	body, err := json.Marshal(saveRequest{Content: p.ContentString()})
	if err != nil {
		return Program{}, fmt.Errorf("encode request: %w", err)
	}
	start := time.Now()
	program, err := c.fetchProgram(ctx, http.MethodPut, p.ID, body)
	c.observe("save", err, start)
	return program, err
}

func (c *Client) fetchProgram(ctx context.Context, method, id string, body []byte) (Program, error) {
	reqURL := c.baseURL + "/" + url.PathEscape(id)
	var payload struct {
		Program *Program `json:"program"`
	}
	if err := c.do(ctx, method, reqURL, body, &payload); err != nil {
		return Program{}, err
	}
	if payload.Program == nil {
		return Program{}, c.protocolError(reqURL, "'program' field not found", nil)
	}
	program := *payload.Program
	switch program.ID {
	case "":
		program.ID = id
	case id:
	default:
		return Program{}, c.protocolError(reqURL, fmt.Sprintf("program id %q does not match %q", program.ID, id), nil)
	}
	return program, nil
}

func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	c.applyAuth(req)

	logging.Debug("sending request",
		logging.String("method", method),
		logging.String("url", reqURL),
		logging.String("endpoint", c.endpoint.Name))

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(reqURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	logging.Debug("received response",
		logging.Int("status", resp.StatusCode),
		logging.String("url", reqURL))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The error body is best effort; an unreadable body becomes an empty message.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Endpoint:   c.endpoint.Name,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
		logging.Warn("api request rejected",
			logging.String("endpoint", c.endpoint.Name),
			logging.String("url", reqURL),
			logging.Int("status", resp.StatusCode))
		return apiErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(reqURL, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return c.protocolError(reqURL, "decode response", err)
	}
	return nil
}

// applyAuth attaches Basic credentials when both a username and a password
// are available. Missing credentials are not an error: the server decides.
func (c *Client) applyAuth(req *http.Request) {
	username := c.endpoint.Username
	if username == "" || c.creds == nil {
		if username != "" {
			logging.Warn("missing credentials", logging.String("endpoint", c.endpoint.Name))
		}
		return
	}
	password, ok, err := c.creds.Password(c.endpoint.ID)
	if err != nil {
		logging.Warn("credential lookup failed",
			logging.String("endpoint", c.endpoint.Name),
			logging.Err(err))
		return
	}
	if !ok {
		logging.Warn("missing credentials", logging.String("endpoint", c.endpoint.Name))
		return
	}
	req.SetBasicAuth(username, password)
}

func (c *Client) transportError(reqURL string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	logging.Warn("transport failure",
		logging.String("endpoint", c.endpoint.Name),
		logging.String("url", reqURL),
		logging.Err(err))
	return &TransportError{Endpoint: c.endpoint.Name, URL: reqURL, Err: err}
}

func (c *Client) protocolError(reqURL, reason string, err error) error {
	logging.Warn("unexpected response shape",
		logging.String("endpoint", c.endpoint.Name),
		logging.String("url", reqURL),
		logging.String("reason", reason))
	return &ProtocolError{Endpoint: c.endpoint.Name, URL: reqURL, Reason: reason, Err: err}
}

func (c *Client) observe(op string, err error, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, err, time.Since(start))
	}
}

func parseBaseURL(raw string) (string, error) {
	u, err := endpoint.ParseURL(raw)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
