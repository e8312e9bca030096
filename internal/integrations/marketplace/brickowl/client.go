package brickowl

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/BrickSync/internal/integrations/apiclient"
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/BearBump/BrickSync/internal/normalize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.brickowl.com/v1"

// statusIDShipped is the numeric Brick Owl status for "Shipped".
const statusIDShipped = "5"

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Policy  models.StatusPolicy
}

func DefaultPolicy() models.StatusPolicy {
	return models.StatusPolicy{
		Ready:   models.NewStatusSet("Processed"),
		PreShip: models.NewStatusSet("Processed"),
	}
}

// Client talks to the Brick Owl store API. The key travels as a query
// parameter on GETs and as a form field on POSTs.
type Client struct {
	baseURL string
	key     string
	policy  models.StatusPolicy
	api     *apiclient.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	def := DefaultPolicy()
	if cfg.Policy.Ready == nil {
		cfg.Policy.Ready = def.Ready
	}
	if cfg.Policy.PreShip == nil {
		cfg.Policy.PreShip = def.PreShip
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.APIKey,
		policy:  cfg.Policy,
		api:     apiclient.New(models.SourceBrickOwl, &http.Client{Timeout: cfg.Timeout}),
	}
}

func (c *Client) WithRateLimit(rl apiclient.RateLimiter, perMinute int64) *Client {
	c.api.WithRateLimit(rl, perMinute)
	return c
}

func (c *Client) WithLogger(l *zap.Logger) *Client {
	c.api.WithLogger(l)
	return c
}

func (c *Client) Source() models.Source       { return models.SourceBrickOwl }
func (c *Client) Policy() models.StatusPolicy { return c.policy }

func (c *Client) ListOrderStubs(ctx context.Context) ([]models.OrderStub, error) {
	q := url.Values{}
	q.Set("list_type", "store")
	q.Set("limit", "1000000")
	body, err := c.get(ctx, "list orders", "/order/list", q)
	if err != nil {
		return nil, err
	}
	raw, err := normalize.Decode(body)
	if err != nil {
		return nil, errors.Wrap(err, "brickowl list orders")
	}
	return normalize.Stubs(models.SourceBrickOwl, raw)
}

func (c *Client) FetchOrderDetails(ctx context.Context, id string) (*models.OrderRecord, error) {
	q := url.Values{}
	q.Set("order_id", id)
	body, err := c.get(ctx, "view order", "/order/view", q)
	if err != nil {
		return nil, err
	}
	raw, err := normalize.DecodeObject(body)
	if err != nil {
		return nil, errors.Wrap(err, "brickowl view order")
	}
	return normalize.BrickOwlOrder(raw, nil)
}

func (c *Client) FetchOrderItems(ctx context.Context, id string) ([]models.LineItem, error) {
	q := url.Values{}
	q.Set("order_id", id)
	body, err := c.get(ctx, "order items", "/order/items", q)
	if err != nil {
		return nil, err
	}
	raw, err := normalize.Decode(body)
	if err != nil {
		return nil, errors.Wrap(err, "brickowl order items")
	}
	return normalize.BrickOwlItems(raw)
}

func (c *Client) MarkShipped(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("order_id", id)
	form.Set("status_id", statusIDShipped)
	return c.post(ctx, "set status", "/order/set_status", form)
}

func (c *Client) AttachTracking(ctx context.Context, id, trackingNumber string) error {
	form := url.Values{}
	form.Set("order_id", id)
	form.Set("tracking_id", trackingNumber)
	return c.post(ctx, "set tracking", "/order/tracking", form)
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	q.Set("key", c.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req, op)
	if err != nil {
		return nil, err
	}
	// Brick Owl answers an unknown order_id with 404, or with 400 and a message
	// about the order. Any other 400 (bad key, bad parameter) is a transport error.
	if resp.StatusCode == http.StatusNotFound ||
		(resp.StatusCode == http.StatusBadRequest && q.Has("order_id") && unknownOrder(resp.Body)) {
		return nil, models.ErrNotFound
	}
	if !resp.OK() {
		return nil, c.api.Fail(op, resp)
	}
	return resp.Body, nil
}

var unknownOrderPhrases = []string{"not found", "invalid order", "no such order", "does not exist", "unknown order"}

func unknownOrder(body []byte) bool {
	b := strings.ToLower(string(body))
	if !strings.Contains(b, "order") {
		return false
	}
	for _, p := range unknownOrderPhrases {
		if strings.Contains(b, p) {
			return true
		}
	}
	return false
}

func (c *Client) post(ctx context.Context, op, path string, form url.Values) error {
	form.Set("key", c.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req, op)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return c.api.Fail(op, resp)
	}
	return nil
}
