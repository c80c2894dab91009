package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// ErrUnknownPlayer is returned when no profile matches a display name.
var ErrUnknownPlayer = errors.New("unknown player")

// Client talks to the user-profile service, which owns accounts,
// display names and friendships.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 32},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type userResponse struct {
	UserID string `json:"userId"`
}

type friendsResponse struct {
	Friends []string `json:"friends"`
}

// ResolveUserIDByDisplayName maps a display name to a user id.
// Returns ErrUnknownPlayer when the profile service has no such name.
func (c *Client) ResolveUserIDByDisplayName(ctx context.Context, nick string) (string, error) {
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return "", ErrUnknownPlayer
	}
	var resp userResponse
	err := c.getJSON(ctx, "/users/by-nick/"+url.PathEscape(nick), &resp)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUnknownPlayer, nick)
		}
		return "", err
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlayer, nick)
	}
	return resp.UserID, nil
}

// FriendsOf returns the user ids of userID's friends.
func (c *Client) FriendsOf(ctx context.Context, userID string) ([]string, error) {
	var resp friendsResponse
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/friends", &resp); err != nil {
		return nil, err
	}
	return resp.Friends, nil
}

var errNotFound = errors.New("not found")

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("profile request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status == fasthttp.StatusNotFound {
			return errNotFound
		}
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("profile api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode profile response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
