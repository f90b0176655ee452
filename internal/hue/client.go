package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxConcurrent = 6
	DefaultTimeout       = time.Second
	DefaultPollTimeout   = 4800 * time.Millisecond
)

// ClientConfig tunes the request gate of a Client.
type ClientConfig struct {
	MaxConcurrent int           // in-flight request cap, FIFO beyond it
	Timeout       time.Duration // per-request timeout
	PollTimeout   time.Duration // timeout for the full-state request
	RateLimit     float64       // requests per second, 0 = unlimited
}

// Request describes one call to the bridge REST API.
type Request struct {
	Method   string
	Path     string // relative to the bridge root, e.g. "api/<key>/lights"
	Body     any
	Timeout  time.Duration
	Multiple bool // return every success payload instead of the first
}

// Client talks to the bridge REST API. At most MaxConcurrent requests are
// in flight; callers beyond that queue in arrival order.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	gate        *semaphore.Weighted
	limiter     *rate.Limiter
	timeout     time.Duration
	pollTimeout time.Duration

	mu  sync.RWMutex
	key string
}

// NewClient creates a client for the bridge at host, which may be a bare
// address, host:port or a full URL.
func NewClient(host string, cfg ClientConfig) *Client {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	c := &Client{
		baseURL:     normalizeBaseURL(host),
		httpClient:  &http.Client{},
		gate:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		timeout:     cfg.Timeout,
		pollTimeout: cfg.PollTimeout,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

func normalizeBaseURL(host string) string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// Hostname returns the bridge host without scheme or port.
func (c *Client) Hostname() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// SetKey sets the authorization key used for every keyed request.
func (c *Client) SetKey(key string) {
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
}

// Key returns the current authorization key.
func (c *Client) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) apiPath(parts ...string) string {
	segments := append([]string{"api", url.PathEscape(c.Key())}, parts...)
	return strings.Join(segments, "/")
}

// Do sends req and decodes the reply into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	payload, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req Request) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.gate.Release(1)

	requestsInFlight.Inc()
	defer requestsInFlight.Dec()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+"/"+req.Path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	payload, err := c.roundTrip(httpReq, req.Multiple)
	requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	if err != nil {
		if isTimeout(err) {
			err = fmt.Errorf("%w: %s %s after %s", ErrTimeout, req.Method, redact(req.Path), timeout)
		}
		requestsTotal.WithLabelValues(req.Method, outcome(err)).Inc()
		log.Debug().Err(err).Str("method", req.Method).Str("path", redact(req.Path)).Msg("Bridge request failed")
		return nil, err
	}

	requestsTotal.WithLabelValues(req.Method, "success").Inc()
	return payload, nil
}

func (c *Client) roundTrip(req *http.Request, multiple bool) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return parseReply(data, multiple)
}

type result struct {
	Success json.RawMessage `json:"success"`
	Error   *APIError       `json:"error"`
}

// parseReply unwraps a bridge result list. Bodies that are not lists are
// returned as they are.
func parseReply(data []byte, multiple bool) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return data, nil
	}

	var results []result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode bridge reply: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoReply
	}

	successes := make([]json.RawMessage, 0, len(results))
	for i, r := range results {
		if r.Error != nil {
			return nil, &OperationError{Index: i, APIError: *r.Error}
		}
		successes = append(successes, r.Success)
	}

	if multiple {
		return json.Marshal(successes)
	}
	return successes[0], nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrPartialOperationFailed):
		return "bridge_error"
	case errors.Is(err, ErrNoReply):
		return "no_reply"
	default:
		return "error"
	}
}

// redact hides the key segment of an API path.
func redact(path string) string {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) >= 2 && parts[0] == "api" && parts[1] != "" {
		parts[1] = "***"
	}
	return strings.Join(parts, "/")
}

// CreateUser asks the bridge for a new authorization key. It fails with a
// bridge error of type 101 until the link button is pressed.
func (c *Client) CreateUser(ctx context.Context, deviceType string) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "api",
		Body:   map[string]string{"devicetype": deviceType},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Username == "" {
		return "", ErrNoReply
	}
	return out.Username, nil
}

// FullState fetches the complete bridge state.
func (c *Client) FullState(ctx context.Context) (*FullState, error) {
	var fs FullState
	err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    c.apiPath(),
		Timeout: c.pollTimeout,
	}, &fs)
	if err != nil {
		return nil, err
	}

	for id, l := range fs.Lights {
		l.InternalID = id
		fs.Lights[id] = l
	}
	for id, s := range fs.Sensors {
		s.InternalID = id
		fs.Sensors[id] = s
	}
	return &fs, nil
}

// SetLightState applies update to a light.
func (c *Client) SetLightState(ctx context.Context, id string, update StateUpdate) error {
	return c.Do(ctx, Request{
		Method:   http.MethodPut,
		Path:     c.apiPath(string(ResourceLights), url.PathEscape(id), "state"),
		Body:     update,
		Multiple: true,
	}, nil)
}

// RenameLight changes the name of a light.
func (c *Client) RenameLight(ctx context.Context, id, name string) error {
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   c.apiPath(string(ResourceLights), url.PathEscape(id)),
		Body:   huego.Light{Name: name},
	}, nil)
}

// RenameSensor changes the name of a sensor.
func (c *Client) RenameSensor(ctx context.Context, id, name string) error {
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   c.apiPath(string(ResourceSensors), url.PathEscape(id)),
		Body:   huego.Sensor{Name: name},
	}, nil)
}
