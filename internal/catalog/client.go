package catalog

//go:generate mockgen -destination=mock/client.go -package=mock animetracker/internal/catalog Client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidRequest      = errors.New("invalid catalog request")
	ErrUpstreamUnavailable = errors.New("catalog upstream unavailable")
)

const (
	DefaultBaseURL = "https://api.jikan.moe/v4"
	DefaultLimit   = 20
	searchLimit    = 10
)

// Client relays catalog payloads without reshaping them.
type Client interface {
	Search(ctx context.Context, q string) (json.RawMessage, error)
	Top(ctx context.Context, limit int) (json.RawMessage, error)
	Seasonal(ctx context.Context, limit int) (json.RawMessage, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
}

func (c *HTTPClient) Search(ctx context.Context, q string) (json.RawMessage, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: query parameter q is required", ErrInvalidRequest)
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", strconv.Itoa(searchLimit))
	return c.get(ctx, "/anime", params)
}

func (c *HTTPClient) Top(ctx context.Context, limit int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(normalizeLimit(limit)))
	return c.get(ctx, "/top/anime", params)
}

// Seasonal lists the season containing the client's current local date.
func (c *HTTPClient) Seasonal(ctx context.Context, limit int) (json.RawMessage, error) {
	now := c.now()
	params := url.Values{}
	params.Set("limit", strconv.Itoa(normalizeLimit(limit)))
	return c.get(ctx, fmt.Sprintf("/seasons/%d/%s", now.Year(), SeasonFor(now)), params)
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "catalog request failed", slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "catalog response read failed", slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "catalog returned non-success status",
			slog.String("path", path), slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %s", ErrUpstreamUnavailable, resp.Status)
	}
	if !json.Valid(raw) {
		c.logger.WarnContext(ctx, "catalog returned invalid json", slog.String("path", path))
		return nil, fmt.Errorf("%w: invalid json body", ErrUpstreamUnavailable)
	}

	c.logger.DebugContext(ctx, "catalog request",
		slog.String("path", path), slog.Int("status", resp.StatusCode), slog.Duration("latency", time.Since(start)))
	return json.RawMessage(raw), nil
}

// ParseLimit turns a query value into a limit; anything that is not a positive integer yields DefaultLimit.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultLimit
	}
	return normalizeLimit(n)
}

func normalizeLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
