// Package vk reads community wall posts through the VK API wall.get method.
package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/meowafisha/eventmap/internal/resilience"
)

const (
	defaultBaseURL    = "https://api.vk.ru/method"
	defaultAPIVersion = "5.199"

	// MaxPageSize is the largest count wall.get accepts.
	MaxPageSize = 100

	codeAuthFailed = 5
)

// ErrUnauthorized means the access token was rejected. Retrying cannot help.
var ErrUnauthorized = errors.New("vk: authorization failed")

// Post is a single wall post.
type Post struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Date    int64  `json:"date"`
	Text    string `json:"text"`
}

// Time returns the publication time of the post.
func (p Post) Time() time.Time { return time.Unix(p.Date, 0).UTC() }

// APIError is an error object returned in a 200 response body.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk: api error %d: %s", e.Code, e.Message)
}

type wallResponse struct {
	Response *struct {
		Count int    `json:"count"`
		Items []Post `json:"items"`
	} `json:"response"`
	Error *APIError `json:"error"`
}

// Client fetches wall pages for one community.
type Client struct {
	http    *resty.Client
	token   string
	domain  string
	version string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (useful for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.http.SetBaseURL(u)
		}
	}
}

// WithAPIVersion sets the v parameter sent with every call.
func WithAPIVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithPageDelay spaces consecutive wall.get calls at least d apart and uses
// d as the linear retry backoff step.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
		c.retry.Backoff = d
	}
}

// WithAttempts sets the retry budget per page.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retry.MaxAttempts = n
		}
	}
}

// WithRetryConfig replaces the retry policy wholesale.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a wall.get client for domain authenticated by token.
func NewClient(token, domain string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(20*time.Second).
			SetHeader("Accept", "application/json"),
		token:   token,
		domain:  domain,
		version: defaultAPIVersion,
		limiter: rate.NewLimiter(rate.Every(1100*time.Millisecond), 1),
		retry:   resilience.LinearRetry(3, 1100*time.Millisecond),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.ShouldRetry == nil {
		c.retry.ShouldRetry = resilience.IsTransient
	}
	c.retry.OnRetry = resilience.RetryLogger("vk", "wall.get")
	return c
}

// WallGet returns up to count posts starting at offset, newest first.
// Authorization failures are returned immediately as ErrUnauthorized.
// Network failures, retryable statuses, malformed or incomplete bodies and
// other API errors are retried within the attempt budget.
func (c *Client) WallGet(ctx context.Context, offset, count int) ([]Post, error) {
	if count <= 0 {
		return nil, nil
	}
	if count > MaxPageSize {
		count = MaxPageSize
	}

	posts, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]Post, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, resilience.Permanent(err)
		}
		return c.wallGet(ctx, offset, count)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "vk: wall.get offset=%d", offset)
	}
	return posts, nil
}

func (c *Client) wallGet(ctx context.Context, offset, count int) ([]Post, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"domain":       c.domain,
			"offset":       strconv.Itoa(offset),
			"count":        strconv.Itoa(count),
			"access_token": c.token,
			"v":            c.version,
		}).
		Get("/wall.get")
	if err != nil {
		wrapped := eris.Wrap(err, "vk: request")
		if resilience.IsTransient(err) {
			return nil, resilience.NewTransientError(wrapped, 0)
		}
		return nil, wrapped
	}

	status := resp.StatusCode()
	if status != http.StatusOK {
		statusErr := eris.Errorf("vk: unexpected status %d", status)
		if resilience.IsTransientHTTPStatus(status) {
			return nil, resilience.NewTransientError(statusErr, status)
		}
		return nil, statusErr
	}

	var body wallResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "vk: decode response"), status)
	}

	if body.Error != nil {
		if body.Error.Code == codeAuthFailed {
			return nil, resilience.Permanent(fmt.Errorf("%w: %s", ErrUnauthorized, body.Error.Message))
		}
		return nil, resilience.NewTransientError(body.Error, status)
	}
	if body.Response == nil {
		return nil, resilience.NewTransientError(eris.New("vk: response without items"), status)
	}
	return body.Response.Items, nil
}
