package fake

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/BearBump/BrickSync/internal/models"
)

// Marketplace: in-memory площадка для тестов и sandbox-режима.
// Ошибки можно подставить на любую операцию через поля *Err.
type Marketplace struct {
	source        models.Source
	policy        models.StatusPolicy
	shippedStatus string

	mu     sync.Mutex
	orders map[string]*models.OrderRecord
	items  map[string][]models.LineItem

	ListErr    error
	DetailsErr map[string]error
	ItemsErr   map[string]error
	MarkErr    map[string]error
	AttachErr  map[string]error

	// Malformed is reported as skipped listing entries next to the stubs.
	Malformed []error

	DetailsCalls []string
	Marked       []string
	Tracking     map[string]string
}

func New(source models.Source, policy models.StatusPolicy, shippedStatus string) *Marketplace {
	return &Marketplace{
		source:        source,
		policy:        policy,
		shippedStatus: shippedStatus,
		orders:        make(map[string]*models.OrderRecord),
		items:         make(map[string][]models.LineItem),
		DetailsErr:    make(map[string]error),
		ItemsErr:      make(map[string]error),
		MarkErr:       make(map[string]error),
		AttachErr:     make(map[string]error),
		Tracking:      make(map[string]string),
	}
}

// Put stores a copy of rec; its items are served by FetchOrderItems.
func (m *Marketplace) Put(rec models.OrderRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Source = m.source
	rec.CrossPlatformID = models.CrossPlatformID(m.source, rec.NativeID)
	m.items[rec.NativeID] = rec.Items
	rec.Items = nil
	m.orders[rec.NativeID] = &rec
}

// SetStatus changes the status of a stored order.
func (m *Marketplace) SetStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
}

func (m *Marketplace) Status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		return o.Status
	}
	return ""
}

func (m *Marketplace) Source() models.Source       { return m.source }
func (m *Marketplace) Policy() models.StatusPolicy { return m.policy }

func (m *Marketplace) ListOrderStubs(ctx context.Context) ([]models.OrderStub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]models.OrderStub, 0, len(m.orders))
	for id, o := range m.orders {
		out = append(out, models.OrderStub{Source: m.source, ID: id, Status: o.Status})
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	if len(m.Malformed) > 0 {
		return out, &models.SkippedEntriesError{Source: m.source, Entries: m.Malformed}
	}
	return out, nil
}

func (m *Marketplace) FetchOrderDetails(ctx context.Context, id string) (*models.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DetailsCalls = append(m.DetailsCalls, id)
	if err := m.DetailsErr[id]; err != nil {
		return nil, err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *Marketplace) FetchOrderItems(ctx context.Context, id string) ([]models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ItemsErr[id]; err != nil {
		return nil, err
	}
	items := m.items[id]
	out := make([]models.LineItem, len(items))
	copy(out, items)
	return out, nil
}

func (m *Marketplace) MarkShipped(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.MarkErr[id]; err != nil {
		return err
	}
	o, ok := m.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	o.Status = m.shippedStatus
	m.Marked = append(m.Marked, id)
	return nil
}

func (m *Marketplace) AttachTracking(ctx context.Context, id, trackingNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.AttachErr[id]; err != nil {
		return err
	}
	if _, ok := m.orders[id]; !ok {
		return models.ErrNotFound
	}
	m.Tracking[id] = trackingNumber
	return nil
}

// lessID orders numeric ids numerically, everything else lexically.
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
