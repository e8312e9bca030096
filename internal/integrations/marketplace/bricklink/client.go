package bricklink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/BrickSync/internal/integrations/apiclient"
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/BearBump/BrickSync/internal/normalize"
	"github.com/dghubble/oauth1"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.bricklink.com/api/store/v1"

const statusShipped = "SHIPPED"

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
	Timeout        time.Duration

	// ListStatuses filters the order listing, e.g. PAID,PACKED. Empty lists all.
	ListStatuses []string
	Policy       models.StatusPolicy
}

func DefaultPolicy() models.StatusPolicy {
	return models.StatusPolicy{
		Ready:   models.NewStatusSet("PACKED"),
		PreShip: models.NewStatusSet("PACKED"),
	}
}

// Client talks to the BrickLink store API. Every request is OAuth1 signed.
type Client struct {
	baseURL      string
	listStatuses []string
	policy       models.StatusPolicy
	api          *apiclient.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpc := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).
		Client(oauth1.NoContext, oauth1.NewToken(cfg.Token, cfg.TokenSecret))
	httpc.Timeout = cfg.Timeout
	return newWithHTTPClient(cfg, httpc)
}

func newWithHTTPClient(cfg Config, httpc *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Policy.Ready == nil || cfg.Policy.PreShip == nil {
		def := DefaultPolicy()
		if cfg.Policy.Ready == nil {
			cfg.Policy.Ready = def.Ready
		}
		if cfg.Policy.PreShip == nil {
			cfg.Policy.PreShip = def.PreShip
		}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		listStatuses: cfg.ListStatuses,
		policy:       cfg.Policy,
		api:          apiclient.New(models.SourceBrickLink, httpc),
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

func (c *Client) Source() models.Source       { return models.SourceBrickLink }
func (c *Client) Policy() models.StatusPolicy { return c.policy }

type meta struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

type envelope struct {
	Meta meta            `json:"meta"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) ListOrderStubs(ctx context.Context) ([]models.OrderStub, error) {
	q := url.Values{}
	q.Set("direction", "in")
	if len(c.listStatuses) > 0 {
		q.Set("status", strings.Join(c.listStatuses, ","))
	}
	data, err := c.call(ctx, "list orders", http.MethodGet, "/orders", q, nil)
	if err != nil {
		return nil, err
	}
	raw, err := normalize.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "bricklink list orders")
	}
	return normalize.Stubs(models.SourceBrickLink, raw)
}

func (c *Client) FetchOrderDetails(ctx context.Context, id string) (*models.OrderRecord, error) {
	data, err := c.call(ctx, "view order", http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	raw, err := normalize.DecodeObject(data)
	if err != nil {
		return nil, errors.Wrap(err, "bricklink view order")
	}
	return normalize.BrickLinkOrder(raw, nil)
}

func (c *Client) FetchOrderItems(ctx context.Context, id string) ([]models.LineItem, error) {
	data, err := c.call(ctx, "order items", http.MethodGet, "/orders/"+url.PathEscape(id)+"/items", nil, nil)
	if err != nil {
		return nil, err
	}
	raw, err := normalize.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "bricklink order items")
	}
	return normalize.BrickLinkItems(raw)
}

func (c *Client) MarkShipped(ctx context.Context, id string) error {
	body := map[string]string{"field": "status", "value": statusShipped}
	_, err := c.call(ctx, "update status", http.MethodPut, "/orders/"+url.PathEscape(id)+"/status", nil, body)
	return err
}

func (c *Client) AttachTracking(ctx context.Context, id, trackingNumber string) error {
	body := map[string]any{"shipping": map[string]string{"tracking_no": trackingNumber}}
	_, err := c.call(ctx, "update order", http.MethodPut, "/orders/"+url.PathEscape(id), nil, body)
	return err
}

// call returns the "data" member of the response envelope. BrickLink reports
// errors both as HTTP statuses and as meta.code inside a 200 response.
func (c *Client) call(ctx context.Context, op, method, path string, q url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal body")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req, op)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrNotFound
	}
	if !resp.OK() {
		return nil, c.api.Fail(op, resp)
	}

	var env envelope
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return nil, errors.Wrap(err, "decode envelope")
		}
	}
	switch {
	case env.Meta.Code == http.StatusNotFound:
		return nil, models.ErrNotFound
	case env.Meta.Code != 0 && env.Meta.Code/100 != 2:
		return nil, &models.TransportError{
			Source:     models.SourceBrickLink,
			Op:         op,
			StatusCode: env.Meta.Code,
			Body:       strings.TrimSpace(env.Meta.Message + " " + env.Meta.Description),
		}
	}
	return env.Data, nil
}
