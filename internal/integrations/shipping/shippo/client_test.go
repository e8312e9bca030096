package shippo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/BrickSync/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, APIKey: "shippo_test_abc"}), srv
}

func TestListOrderStubs_Pagination(t *testing.T) {
	var srvURL string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ShippoToken shippo_test_abc", r.Header.Get("Authorization"))
		require.Equal(t, "/orders/", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"next": null, "results": [
				{"object_id": "o3", "order_number": "manual-17", "order_status": "PAID"}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{"next": "` + srvURL + `/orders/?page=2", "results": [
			{"object_id": "o1", "order_number": "bricklink_18332181", "order_status": "PAID"},
			{"object_id": "o2", "order_number": "brickowl_500", "order_status": "SHIPPED"}
		]}`))
	})
	srvURL = srv.URL

	stubs, err := c.ListOrderStubs(context.Background())
	require.NoError(t, err)
	require.Len(t, stubs, 3)

	require.Equal(t, "bricklink_18332181", stubs[0].ID)
	require.Equal(t, "o1", stubs[0].ShippingObjectID)
	require.Equal(t, &models.OrderRef{Source: models.SourceBrickLink, NativeID: "18332181"}, stubs[0].Origin)

	require.Equal(t, models.ShippingStatusShipped, stubs[1].Status)
	require.Equal(t, &models.OrderRef{Source: models.SourceBrickOwl, NativeID: "500"}, stubs[1].Origin)

	require.Equal(t, "manual-17", stubs[2].ID)
	require.Nil(t, stubs[2].Origin)
}

func TestListOrderStubs_Error(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ListOrderStubs(context.Background())
	require.ErrorIs(t, err, models.ErrTransport)
}

func testRecord() *models.OrderRecord {
	return &models.OrderRecord{
		Source:          models.SourceBrickLink,
		NativeID:        "18332181",
		CrossPlatformID: "bricklink_18332181",
		Address: models.Address{
			FirstName: "Ann", LastName: "Lee", CountryCode: "US", PostalCode: "62701",
			Street1: "1 Main St", City: "Springfield", State: "IL",
		},
		Status:     "PACKED",
		CreatedAt:  "2022-01-10 17:35:09",
		Weight:     "8.845",
		WeightUnit: "oz",
		Items:      []models.LineItem{{Title: "Brick 2 x 4", Quantity: 4, SKU: "3001", Weight: "0.327", WeightUnit: "oz"}},
	}
}

func TestCreateOrder_Payload(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders/", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"object_id": "new"}`))
	})

	require.NoError(t, c.CreateOrder(context.Background(), testRecord()))

	require.Equal(t, "bricklink_18332181", got["order_number"])
	require.Equal(t, "PAID", got["order_status"])
	require.Equal(t, "2022-01-10 17:35:09", got["placed_at"])
	require.Equal(t, "8.845", got["weight"])
	require.Equal(t, "oz", got["weight_unit"])
	require.Equal(t, map[string]any{
		"city": "Springfield", "country": "US", "name": "Ann Lee", "state": "IL",
		"street1": "1 Main St", "street2": "", "zip": "62701",
	}, got["to_address"])
	items := got["line_items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, "3001", items[0].(map[string]any)["sku"])
}

func TestCreateOrder_EmptyItemsSentAsList(t *testing.T) {
	var body string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	rec := testRecord()
	rec.Items = nil
	require.NoError(t, c.CreateOrder(context.Background(), rec))
	require.Contains(t, body, `"line_items":[]`)
}

func TestCreateOrder_Duplicate(t *testing.T) {
	cases := map[string]struct {
		code int
		body string
	}{
		"conflict":       {http.StatusConflict, `{}`},
		"already exists": {http.StatusBadRequest, `{"order_number": ["Order with this order_number already exists."]}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			})
			err := c.CreateOrder(context.Background(), testRecord())
			require.ErrorIs(t, err, models.ErrDuplicateSubmission)
		})
	}
}

func TestCreateOrder_BadRequest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"to_address": ["zip is invalid"]}`))
	})

	err := c.CreateOrder(context.Background(), testRecord())
	require.ErrorIs(t, err, models.ErrTransport)
	require.NotErrorIs(t, err, models.ErrDuplicateSubmission)
}

func TestFetchOrderByObjectID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/o2", r.URL.Path)
		_, _ = w.Write([]byte(`{"object_id": "o2", "order_number": "brickowl_500", "order_status": "SHIPPED",
			"transactions": [{"object_id": "t1", "tracking_number": "OLD"}, {"object_id": "t2", "tracking_number": "9400111"}]}`))
	})

	sh, err := c.FetchOrderByObjectID(context.Background(), "o2")
	require.NoError(t, err)
	require.Equal(t, &models.Shipment{ObjectID: "o2", OrderNumber: "brickowl_500", Status: "SHIPPED", TrackingNumber: "9400111"}, sh)
}

func TestFetchOrderByObjectID_NoTracking(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object_id": "o2", "order_number": "brickowl_500", "order_status": "SHIPPED", "transactions": []}`))
	})

	_, err := c.FetchOrderByObjectID(context.Background(), "o2")
	require.ErrorIs(t, err, models.ErrNoTracking)
}

func TestFetchOrderByObjectID_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.FetchOrderByObjectID(context.Background(), "gone")
	require.ErrorIs(t, err, models.ErrNotFound)
}
