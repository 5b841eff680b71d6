// Package remote is the HTTP client for the itinerary backend: the place
// catalog and the itinerary store the planner saves into.
//
// The client is safe for concurrent use.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pkordes/trip-planner/internal/domain"
)

// StatusError is a non-2xx response the client could not map to a domain
// error.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: status %d: %s", e.Code, e.Body)
}

// Message returns the server's error message when the body is a JSON error
// envelope, otherwise the raw body.
func (e *StatusError) Message() string {
	var env struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &env); err == nil {
		if env.Error.Message != "" {
			return env.Error.Message
		}
		if env.Message != "" {
			return env.Message
		}
	}
	if e.Body == "" {
		return http.StatusText(e.Code)
	}
	return e.Body
}

// Client talks to the itinerary backend.
type Client struct {
	http        *http.Client
	baseURL     string
	token       string
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client (10s timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables the
// limiter.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithRetry sets the attempt count and the initial backoff, which doubles on
// each retry.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = max(1, attempts)
		c.backoff = backoff
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote.New: invalid base URL %q", baseURL)
	}
	c := &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ---- places ----------------------------------------------------------------

// CreatePlace registers p in the remote catalog. It returns
// domain.ErrPlaceExists when the external ID is already registered.
func (c *Client) CreatePlace(ctx context.Context, p domain.Place) error {
	err := c.call(ctx, http.MethodPost, "/places", nil, p, nil, true)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return domain.ErrPlaceExists
	}
	if err != nil {
		return fmt.Errorf("remote.Client.CreatePlace %s: %w", p.ExternalID, err)
	}
	return nil
}

// GetPlace fetches one place by external ID.
func (c *Client) GetPlace(ctx context.Context, externalID string) (domain.Place, error) {
	var p domain.Place
	if err := c.call(ctx, http.MethodGet, "/places/"+url.PathEscape(externalID), nil, nil, &p, true); err != nil {
		return domain.Place{}, fmt.Errorf("remote.Client.GetPlace %s: %w", externalID, err)
	}
	return p, nil
}

// ListPlaces returns the catalog places of the given regions.
func (c *Client) ListPlaces(ctx context.Context, regions []string) ([]domain.Place, error) {
	q := url.Values{}
	for _, r := range regions {
		q.Add("region", r)
	}
	var places []domain.Place
	if err := c.call(ctx, http.MethodGet, "/places", q, nil, &places, true); err != nil {
		return nil, fmt.Errorf("remote.Client.ListPlaces: %w", err)
	}
	return places, nil
}

// Regions returns every region known to the catalog.
func (c *Client) Regions(ctx context.Context) ([]domain.Region, error) {
	var regions []domain.Region
	if err := c.call(ctx, http.MethodGet, "/regions", nil, nil, &regions, true); err != nil {
		return nil, fmt.Errorf("remote.Client.Regions: %w", err)
	}
	return regions, nil
}

// ---- itineraries -----------------------------------------------------------

// CreateItinerary stores a new itinerary.
func (c *Client) CreateItinerary(ctx context.Context, payload domain.ItineraryPayload) (domain.ItinerarySummary, error) {
	var out domain.ItinerarySummary
	if err := c.call(ctx, http.MethodPost, "/itineraries", nil, payload, &out, false); err != nil {
		return domain.ItinerarySummary{}, fmt.Errorf("remote.Client.CreateItinerary: %w", err)
	}
	return out, nil
}

// UpdateItinerary replaces the itinerary with the given ID.
func (c *Client) UpdateItinerary(ctx context.Context, id string, payload domain.ItineraryPayload) (domain.ItinerarySummary, error) {
	var out domain.ItinerarySummary
	if err := c.call(ctx, http.MethodPut, "/itineraries/"+url.PathEscape(id), nil, payload, &out, true); err != nil {
		return domain.ItinerarySummary{}, fmt.Errorf("remote.Client.UpdateItinerary %s: %w", id, err)
	}
	return out, nil
}

// GetItinerary fetches a saved itinerary.
func (c *Client) GetItinerary(ctx context.Context, id string) (domain.Itinerary, error) {
	var out domain.Itinerary
	if err := c.call(ctx, http.MethodGet, "/itineraries/"+url.PathEscape(id), nil, nil, &out, true); err != nil {
		return domain.Itinerary{}, fmt.Errorf("remote.Client.GetItinerary %s: %w", id, err)
	}
	return out, nil
}

// ---- transport -------------------------------------------------------------

// call sends one JSON request and decodes the response into out (if non-nil).
// A 404 becomes domain.ErrNotFound; any other status >= 400 a *StatusError.
// Non-idempotent requests are only retried when the server refused them
// outright (429, 503).
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any, idempotent bool) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = b
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.doWithRetry(ctx, idempotent, func() (*http.Request, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		return c.newRequest(ctx, method, endpoint, r)
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return domain.ErrNotFound
		}
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries transient failures with exponential backoff while
// respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, idempotent bool, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.backoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err, idempotent) || attempt == c.maxAttempts {
			return nil, lastErr
		}
		c.logger.DebugContext(ctx, "remote request failed, retrying",
			"method", req.Method, "url", req.URL.Path, "attempt", attempt, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func retryable(err error, idempotent bool) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
			return idempotent
		}
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return idempotent && errors.As(err, &netErr)
}
