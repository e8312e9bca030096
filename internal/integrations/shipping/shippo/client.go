package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/BrickSync/internal/integrations/apiclient"
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.goshippo.com"

// maxPages bounds the listing walk in case the API keeps returning a next link.
const maxPages = 1000

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	token   string
	api     *apiclient.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIKey,
		api:     apiclient.New(models.SourceShippo, &http.Client{Timeout: cfg.Timeout}),
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

type order struct {
	ObjectID     string        `json:"object_id"`
	OrderNumber  string        `json:"order_number"`
	OrderStatus  string        `json:"order_status"`
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	ObjectID       string `json:"object_id"`
	TrackingNumber string `json:"tracking_number"`
}

type orderPage struct {
	Next    *string `json:"next"`
	Results []order `json:"results"`
}

// ListOrderStubs walks every page of the order listing. Stub.ID is the order
// number; Origin is set when that number is a marketplace cross-platform id.
func (c *Client) ListOrderStubs(ctx context.Context) ([]models.OrderStub, error) {
	next := c.baseURL + "/orders/"
	var out []models.OrderStub
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return nil, errors.Errorf("shippo list orders: more than %d pages", maxPages)
		}
		resp, err := c.do(ctx, "list orders", http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, c.api.Fail("list orders", resp)
		}
		var p orderPage
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return nil, errors.Wrap(err, "shippo list orders: decode page")
		}
		for _, o := range p.Results {
			out = append(out, stub(o))
		}
		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}
	return out, nil
}

func stub(o order) models.OrderStub {
	s := models.OrderStub{
		Source:           models.SourceShippo,
		ID:               o.OrderNumber,
		Status:           o.OrderStatus,
		ShippingObjectID: o.ObjectID,
	}
	if ref, ok := models.ParseCrossPlatformID(o.OrderNumber); ok {
		s.Origin = &ref
	}
	return s
}

type toAddress struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	Zip     string `json:"zip"`
}

type createOrderRequest struct {
	ToAddress   toAddress         `json:"to_address"`
	OrderNumber string            `json:"order_number"`
	OrderStatus string            `json:"order_status"`
	PlacedAt    string            `json:"placed_at"`
	Weight      string            `json:"weight"`
	WeightUnit  string            `json:"weight_unit"`
	LineItems   []models.LineItem `json:"line_items"`
}

func newCreateOrderRequest(rec *models.OrderRecord) createOrderRequest {
	items := rec.Items
	if items == nil {
		items = []models.LineItem{}
	}
	return createOrderRequest{
		ToAddress: toAddress{
			City:    rec.Address.City,
			Country: rec.Address.CountryCode,
			Name:    rec.Address.FullName(),
			State:   rec.Address.State,
			Street1: rec.Address.Street1,
			Street2: rec.Address.Street2,
			Zip:     rec.Address.PostalCode,
		},
		OrderNumber: rec.CrossPlatformID,
		OrderStatus: "PAID",
		PlacedAt:    rec.CreatedAt,
		Weight:      rec.Weight,
		WeightUnit:  models.WeightUnitOunce,
		LineItems:   items,
	}
}

// CreateOrder submits rec under its cross-platform id. A rejected duplicate
// order number is reported as models.ErrDuplicateSubmission.
func (c *Client) CreateOrder(ctx context.Context, rec *models.OrderRecord) error {
	const op = "create order"
	resp, err := c.do(ctx, op, http.MethodPost, c.baseURL+"/orders/", newCreateOrderRequest(rec))
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusConflict, isDuplicateBody(resp):
		return errors.Wrapf(models.ErrDuplicateSubmission, "shippo order %s", rec.CrossPlatformID)
	default:
		return c.api.Fail(op, resp)
	}
}

func isDuplicateBody(resp *apiclient.Response) bool {
	if resp.StatusCode != http.StatusBadRequest {
		return false
	}
	body := strings.ToLower(string(resp.Body))
	return strings.Contains(body, "order_number") && (strings.Contains(body, "already exists") || strings.Contains(body, "duplicate"))
}

// FetchOrderByObjectID returns the order with the tracking number of its last
// transaction. models.ErrNoTracking means no label has been bought yet.
func (c *Client) FetchOrderByObjectID(ctx context.Context, objectID string) (*models.Shipment, error) {
	const op = "view order"
	resp, err := c.do(ctx, op, http.MethodGet, c.baseURL+"/orders/"+url.PathEscape(objectID), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrNotFound
	}
	if !resp.OK() {
		return nil, c.api.Fail(op, resp)
	}
	var o order
	if err := json.Unmarshal(resp.Body, &o); err != nil {
		return nil, errors.Wrap(err, "shippo view order: decode")
	}

	sh := &models.Shipment{ObjectID: o.ObjectID, OrderNumber: o.OrderNumber, Status: o.OrderStatus}
	if n := len(o.Transactions); n > 0 {
		sh.TrackingNumber = o.Transactions[n-1].TrackingNumber
	}
	if sh.TrackingNumber == "" {
		return nil, errors.Wrapf(models.ErrNoTracking, "shippo order %s", o.OrderNumber)
	}
	return sh, nil
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, body any) (*apiclient.Response, error) {
	var req *http.Request
	var err error
	if body != nil {
		b, mErr := json.Marshal(body)
		if mErr != nil {
			return nil, errors.Wrap(mErr, "marshal body")
		}
		req, err = http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(b))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "ShippoToken "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.api.Do(req, op)
}
