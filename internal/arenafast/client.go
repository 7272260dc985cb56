package arenafast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

const (
	pathStartBattle = "/api/start_battle"
	pathStopBattle  = "/api/stop_battle"
	pathStatus      = "/api/get_battle_status"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client calls the orchestrator's control surface.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartBattle validates both configs before any network call and then asks the orchestrator to start.
// A reply with a non-success status is returned as *arenadto.ControlFailure.
func (c *Client) StartBattle(ctx context.Context, req arenadto.StartBattleRequest) (arenadto.ControlResult, error) {
	if err := req.Validate(); err != nil {
		return arenadto.ControlResult{}, err
	}
	var res arenadto.ControlResult
	if err := c.doJSON(ctx, fasthttp.MethodPost, pathStartBattle, req.Normalized(), &res, false); err != nil {
		return res, err
	}
	if !res.OK() {
		return res, &arenadto.ControlFailure{Message: res.Message}
	}
	return res, nil
}

func (c *Client) StopBattle(ctx context.Context) (arenadto.ControlResult, error) {
	var res arenadto.ControlResult
	if err := c.doJSON(ctx, fasthttp.MethodPost, pathStopBattle, nil, &res, false); err != nil {
		return res, err
	}
	if !res.OK() {
		return res, &arenadto.ControlFailure{Message: res.Message}
	}
	return res, nil
}

// Status is idempotent and retried on 5xx.
func (c *Client) Status(ctx context.Context) (arenadto.BattleStatus, error) {
	var st arenadto.BattleStatus
	if err := c.doJSON(ctx, fasthttp.MethodGet, pathStatus, nil, &st, true); err != nil {
		return arenadto.BattleStatus{}, err
	}
	return st, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = &TransportError{Op: path, Err: err}
			if attempt == attempts {
				return lastErr
			}
			obslog.L().Debug("arena_http_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			// a JSON control reply on an error status still carries the orchestrator's message
			var cr arenadto.ControlResult
			if jerr := json.Unmarshal(resp.Body(), &cr); jerr == nil && cr.Status == arenadto.StatusError {
				return &arenadto.ControlFailure{Message: cr.Message}
			}
			lastErr = &TransportError{Op: path, Status: status, Err: fmt.Errorf("body=%s", truncate(string(resp.Body()), 512))}
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return &TransportError{Op: path, Status: status, Err: fmt.Errorf("decode response: %w", err)}
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
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

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
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
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
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
