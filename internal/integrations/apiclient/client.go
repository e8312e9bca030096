package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BearBump/BrickSync/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxResponseSize caps how much of a response body is read (10MB).
const maxResponseSize = 10 * 1024 * 1024

const maxErrorBody = 512

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool { return r.StatusCode/100 == 2 }

// Client is the HTTP plumbing shared by platform adapters: throttling,
// body limits and TransportError mapping.
type Client struct {
	source models.Source
	httpc  *http.Client

	rl        RateLimiter
	perMinute int64
	wait      time.Duration

	logger *zap.Logger
}

func New(source models.Source, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		source: source,
		httpc:  httpc,
		wait:   500 * time.Millisecond,
		logger: zap.NewNop(),
	}
}

func (c *Client) WithRateLimit(rl RateLimiter, perMinute int64) *Client {
	c.rl = rl
	c.perMinute = perMinute
	return c
}

func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *Client) Source() models.Source { return c.source }

// Do sends req and reads the whole body. Non-2xx responses are returned as is;
// the error is only set when no response was received.
func (c *Client) Do(req *http.Request, op string) (*Response, error) {
	if err := c.throttle(req.Context()); err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &models.TransportError{Source: c.source, Op: op, Body: errors.Wrap(err, "do request").Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &models.TransportError{Source: c.source, Op: op, StatusCode: resp.StatusCode, Body: errors.Wrap(err, "read body").Error()}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// Fail builds the TransportError for an unexpected response.
func (c *Client) Fail(op string, resp *Response) error {
	body := string(resp.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &models.TransportError{Source: c.source, Op: op, StatusCode: resp.StatusCode, Body: body}
}

func (c *Client) throttle(ctx context.Context) error {
	if c.rl == nil || c.perMinute <= 0 {
		return nil
	}
	minuteKey := fmt.Sprintf("rl:api:%s:%s", c.source, time.Now().UTC().Format("200601021504"))
	allowed, n, err := c.rl.Allow(ctx, minuteKey, c.perMinute, 70*time.Second)
	if err != nil {
		// Лимитер недоступен: не блокируем вызовы API.
		c.logger.Warn("rate limiter unavailable", zap.String("source", c.source.String()), zap.Error(err))
		return nil
	}
	if allowed {
		return nil
	}
	c.logger.Warn("rate limit exceeded", zap.String("source", c.source.String()), zap.Int64("count", n))
	t := time.NewTimer(c.wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
