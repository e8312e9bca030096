package normalize

import (
	"testing"

	"github.com/BearBump/BrickSync/internal/models"
	"github.com/stretchr/testify/require"
)

const brickLinkOrderJSON = `{
  "order_id": 18332181,
  "date_ordered": "2022-01-10T17:35:09.947Z",
  "date_status_changed": "2022-01-11T08:00:00.000Z",
  "status": "PACKED",
  "total_weight": "250.75",
  "shipping": {
    "address": {
      "name": {"full": "Ann Lee", "first": "Ann", "last": "Lee"},
      "full": "",
      "address1": "1 Main St",
      "address2": null,
      "country_code": "US",
      "city": "Springfield",
      "state": "IL",
      "postal_code": "62701"
    }
  }
}`

const brickLinkItemsJSON = `[
  [
    {"inventory_id": 1, "item": {"no": "3001", "name": "Brick 2 x 4", "type": "PART"}, "quantity": 4, "weight": "9.28"},
    {"inventory_id": 2, "item": {"no": "3003", "name": "Brick 2 x 2", "type": "PART"}, "quantity": 10, "weight": "100"}
  ]
]`

const brickOwlOrderJSON = `{
  "order_id": "500",
  "order_time": "1642435200",
  "status": "Processed",
  "status_id": "4",
  "weight": "12.34",
  "ship_first_name": "Bo",
  "ship_last_name": "Owl",
  "ship_country_code": "GB",
  "ship_post_code": "SW1A 1AA",
  "ship_street_1": "10 Downing St",
  "ship_street_2": "",
  "ship_city": "London",
  "ship_region": "London"
}`

const brickOwlItemsJSON = `[
  {"name": "Plate 1 x 2", "ordered_quantity": "12", "lot_id": "778", "weight": "0.02"}
]`

func mustObject(t *testing.T, s string) map[string]any {
	t.Helper()
	m, err := DecodeObject([]byte(s))
	require.NoError(t, err)
	return m
}

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func TestBrickLinkOrder(t *testing.T) {
	rec, err := BrickLinkOrder(mustObject(t, brickLinkOrderJSON), mustDecode(t, brickLinkItemsJSON))
	require.NoError(t, err)

	require.Equal(t, models.SourceBrickLink, rec.Source)
	require.Equal(t, "18332181", rec.NativeID)
	require.Equal(t, "bricklink_18332181", rec.CrossPlatformID)
	require.Equal(t, "PACKED", rec.Status)
	require.Nil(t, rec.StatusCode)
	require.Equal(t, "2022-01-10 17:35:09", rec.CreatedAt)
	require.NotNil(t, rec.StatusChangedAt)
	require.Equal(t, "2022-01-11 08:00:00", *rec.StatusChangedAt)
	require.Equal(t, "8.845", rec.Weight)
	require.Equal(t, "oz", rec.WeightUnit)
	require.Equal(t, models.Address{
		FirstName: "Ann", LastName: "Lee", CountryCode: "US", PostalCode: "62701",
		Street1: "1 Main St", Street2: "", City: "Springfield", State: "IL",
	}, rec.Address)

	require.Len(t, rec.Items, 2)
	require.Equal(t, models.LineItem{Title: "Brick 2 x 4", Quantity: 4, SKU: "3001", Weight: "0.327", WeightUnit: "oz"}, rec.Items[0])
	require.Equal(t, "3.527", rec.Items[1].Weight)
}

func TestBrickLinkOrder_Deterministic(t *testing.T) {
	a, err := BrickLinkOrder(mustObject(t, brickLinkOrderJSON), nil)
	require.NoError(t, err)
	b, err := BrickLinkOrder(mustObject(t, brickLinkOrderJSON), nil)
	require.NoError(t, err)
	require.Equal(t, a.CrossPlatformID, b.CrossPlatformID)
	require.Equal(t, a, b)
}

func TestBrickLinkOrder_MissingAddressField(t *testing.T) {
	raw := mustObject(t, brickLinkOrderJSON)
	addr := raw["shipping"].(map[string]any)["address"].(map[string]any)
	delete(addr, "postal_code")

	_, err := BrickLinkOrder(raw, nil)
	require.ErrorIs(t, err, models.ErrMissingField)
	var mf *models.MissingFieldError
	require.ErrorAs(t, err, &mf)
	require.Equal(t, "shipping.address.postal_code", mf.Key)
	require.Equal(t, models.SourceBrickLink, mf.Source)
}

func TestBrickLinkOrder_OptionalStatusChanged(t *testing.T) {
	raw := mustObject(t, brickLinkOrderJSON)
	delete(raw, "date_status_changed")
	rec, err := BrickLinkOrder(raw, nil)
	require.NoError(t, err)
	require.Nil(t, rec.StatusChangedAt)
	require.Empty(t, rec.Items)
	require.NotNil(t, rec.Items)
}

func TestBrickLinkOrder_BadItemsLeaveItemsEmpty(t *testing.T) {
	rec, err := BrickLinkOrder(mustObject(t, brickLinkOrderJSON), mustDecode(t, `[{"quantity": 1}]`))
	require.NoError(t, err)
	require.Empty(t, rec.Items)
}

func TestBrickLinkItems_FlatList(t *testing.T) {
	items, err := BrickLinkItems(mustDecode(t, `[{"item": {"no": "x", "name": "X"}, "quantity": "2", "weight": "12.5"}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)
	require.Equal(t, "0.441", items[0].Weight)
}

func TestBrickOwlOrder(t *testing.T) {
	rec, err := BrickOwlOrder(mustObject(t, brickOwlOrderJSON), mustDecode(t, brickOwlItemsJSON))
	require.NoError(t, err)

	require.Equal(t, models.SourceBrickOwl, rec.Source)
	require.Equal(t, "500", rec.NativeID)
	require.Equal(t, "brickowl_500", rec.CrossPlatformID)
	require.Equal(t, "Processed", rec.Status)
	require.NotNil(t, rec.StatusCode)
	require.Equal(t, 4, *rec.StatusCode)
	require.Nil(t, rec.StatusChangedAt)
	require.Equal(t, "2022-01-17 16:00:00", rec.CreatedAt)
	require.Equal(t, "12.34", rec.Weight)
	require.Equal(t, "oz", rec.WeightUnit)
	require.Equal(t, "SW1A 1AA", rec.Address.PostalCode)
	require.Equal(t, "London", rec.Address.State)

	require.Equal(t, []models.LineItem{{Title: "Plate 1 x 2", Quantity: 12, SKU: "778", Weight: "0.02", WeightUnit: "oz"}}, rec.Items)
}

func TestBrickOwlOrder_NumericFields(t *testing.T) {
	raw := mustObject(t, brickOwlOrderJSON)
	raw2 := mustObject(t, `{"order_id": 500, "status_id": 4, "order_time": 1642435200, "weight": 3}`)
	for k, v := range raw2 {
		raw[k] = v
	}
	rec, err := BrickOwlOrder(raw, nil)
	require.NoError(t, err)
	require.Equal(t, "500", rec.NativeID)
	require.Equal(t, 4, *rec.StatusCode)
	require.Equal(t, "2022-01-17 16:00:00", rec.CreatedAt)
	require.Equal(t, "3", rec.Weight)
}

func TestBrickOwlOrder_MissingField(t *testing.T) {
	for _, key := range []string{"order_id", "status", "weight", "ship_region", "ship_street_2"} {
		raw := mustObject(t, brickOwlOrderJSON)
		delete(raw, key)
		_, err := BrickOwlOrder(raw, nil)
		var mf *models.MissingFieldError
		require.ErrorAs(t, err, &mf, key)
		require.Equal(t, key, mf.Key)
	}
}

func TestStubs_SkipsMalformedEntries(t *testing.T) {
	raw := mustDecode(t, `[
		{"order_id": "500", "status": "Processed"},
		{"order_id": "501"},
		"garbage",
		{"order_id": 502, "status": "Pending"}
	]`)

	stubs, err := Stubs(models.SourceBrickOwl, raw)
	require.Equal(t, []models.OrderStub{
		{Source: models.SourceBrickOwl, ID: "500", Status: "Processed"},
		{Source: models.SourceBrickOwl, ID: "502", Status: "Pending"},
	}, stubs)

	var skipped *models.SkippedEntriesError
	require.ErrorAs(t, err, &skipped)
	require.ErrorIs(t, err, models.ErrSkippedEntries)
	require.Equal(t, models.SourceBrickOwl, skipped.Source)
	require.Len(t, skipped.Entries, 2)

	var mf *models.MissingFieldError
	require.ErrorAs(t, skipped.Entries[0], &mf)
	require.Equal(t, "status", mf.Key)
	require.Contains(t, skipped.Entries[0].Error(), "entry 1")
}

func TestStubs_AllValid(t *testing.T) {
	stubs, err := Stubs(models.SourceBrickLink, mustDecode(t, `[{"order_id": 7, "status": "PAID"}]`))
	require.NoError(t, err)
	require.Len(t, stubs, 1)

	_, err = Stubs(models.SourceBrickLink, mustDecode(t, `{"order_id": 7}`))
	require.Error(t, err)
}

func TestGramsToOunces(t *testing.T) {
	cases := map[string]string{
		"100":    "3.527",
		"12.5":   "0.441",
		"0":      "0.000",
		"":       "0.000",
		"250.75": "8.845",
	}
	for in, want := range cases {
		got, err := GramsToOunces(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := GramsToOunces("heavy")
	require.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "2013-12-15 13:35:54", FormatDate("2013-12-15T13:35:54.487Z"))
	require.Equal(t, "2013-12-15 13:35:54", FormatDate("2013-12-15T13:35:54Z"))
	require.Equal(t, "2013-12-15 11:35:54", FormatDate("2013-12-15T13:35:54+02:00"))
	require.Equal(t, "2013-12-15 13:35:54", FormatDate("2013-12-15 13:35:54"))
	require.Equal(t, "last tuesday", FormatDate("last tuesday"))
}

func TestFormatEpoch(t *testing.T) {
	require.Equal(t, "2022-01-17 16:00:00", FormatEpoch("1642435200"))
	require.Equal(t, "1970-01-01 00:00:00", FormatEpoch("0"))
	require.Equal(t, "2022-01-17 16:00:00", FormatEpoch("2022-01-17 16:00:00"))
}
