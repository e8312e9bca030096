package models

import (
	"strings"
)

type Source string

const (
	SourceBrickLink Source = "bricklink"
	SourceBrickOwl  Source = "brickowl"
	SourceShippo    Source = "shippo"
)

const WeightUnitOunce = "oz"

// Статус заказа в Shippo, после которого статус нужно отправить обратно на площадку.
const ShippingStatusShipped = "SHIPPED"

func (s Source) IsMarketplace() bool {
	return s == SourceBrickLink || s == SourceBrickOwl
}

func (s Source) String() string { return string(s) }

// OrderRef identifies an order on its origin marketplace.
type OrderRef struct {
	Source   Source
	NativeID string
}

func (r OrderRef) CrossPlatformID() string {
	return CrossPlatformID(r.Source, r.NativeID)
}

// CrossPlatformID builds the order number used on the shipping platform.
func CrossPlatformID(source Source, nativeID string) string {
	return string(source) + "_" + nativeID
}

// ParseCrossPlatformID is the inverse of CrossPlatformID. Only marketplace
// prefixes are accepted.
func ParseCrossPlatformID(id string) (OrderRef, bool) {
	prefix, native, ok := strings.Cut(id, "_")
	if !ok || native == "" {
		return OrderRef{}, false
	}
	src := Source(prefix)
	if !src.IsMarketplace() {
		return OrderRef{}, false
	}
	return OrderRef{Source: src, NativeID: native}, true
}

// OrderStub is the identity+status record returned by listing calls.
type OrderStub struct {
	Source Source
	ID     string
	Status string

	// Only set for shipping platform stubs.
	ShippingObjectID string
	Origin           *OrderRef
}

type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CountryCode string `json:"country_code"`
	PostalCode  string `json:"postal_code"`
	Street1     string `json:"street_1"`
	Street2     string `json:"street_2"`
	City        string `json:"city"`
	State       string `json:"state"`
}

func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type LineItem struct {
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	SKU        string `json:"sku"`
	Weight     string `json:"weight"`
	WeightUnit string `json:"weight_unit"`
}

// OrderRecord is the normalized order. Weight is always in ounces.
type OrderRecord struct {
	Source          Source     `json:"source"`
	NativeID        string     `json:"native_id"`
	CrossPlatformID string     `json:"cross_platform_id"`
	Address         Address    `json:"address"`
	Status          string     `json:"status"`
	StatusCode      *int       `json:"status_code,omitempty"`
	CreatedAt       string     `json:"created_at"`
	StatusChangedAt *string    `json:"status_changed_at,omitempty"`
	Weight          string     `json:"weight"`
	WeightUnit      string     `json:"weight_unit"`
	Items           []LineItem `json:"items"`
}

func (o *OrderRecord) Ref() OrderRef {
	return OrderRef{Source: o.Source, NativeID: o.NativeID}
}

// Shipment is what the shipping platform reports for one of its orders.
type Shipment struct {
	ObjectID       string
	OrderNumber    string
	Status         string
	TrackingNumber string
}
