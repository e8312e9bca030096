package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/BearBump/BrickSync/internal/models"
)

type order struct {
	objectID string
	record   models.OrderRecord
	status   string
	tracking string
}

// Shipping is an in-memory shipping platform. With AutoShip set, every order
// created is reported as SHIPPED (with a hash-derived tracking number) on the
// next listing, which lets the sandbox walk a full cycle without a real
// warehouse.
type Shipping struct {
	AutoShip bool

	mu      sync.Mutex
	orders  map[string]*order // by order number
	byObj   map[string]*order
	counter int

	ListErr   error
	CreateErr map[string]error
	FetchErr  map[string]error

	Created []string
}

func New() *Shipping {
	return &Shipping{
		orders:    make(map[string]*order),
		byObj:     make(map[string]*order),
		CreateErr: make(map[string]error),
		FetchErr:  make(map[string]error),
	}
}

// Add registers an order that already exists on the platform, e.g. one
// created by hand. It returns the object id.
func (s *Shipping) Add(orderNumber, status, tracking string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(models.OrderRecord{CrossPlatformID: orderNumber}, status, tracking).objectID
}

func (s *Shipping) add(rec models.OrderRecord, status, tracking string) *order {
	s.counter++
	o := &order{
		objectID: fmt.Sprintf("obj_%04d", s.counter),
		record:   rec,
		status:   status,
		tracking: tracking,
	}
	s.orders[rec.CrossPlatformID] = o
	s.byObj[o.objectID] = o
	return o
}

// Ship marks an order as shipped with the given tracking number.
func (s *Shipping) Ship(orderNumber, tracking string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderNumber]; ok {
		o.status = models.ShippingStatusShipped
		o.tracking = tracking
	}
}

// Record returns the payload an order was created with.
func (s *Shipping) Record(orderNumber string) (models.OrderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return models.OrderRecord{}, false
	}
	return o.record, true
}

func (s *Shipping) ListOrderStubs(ctx context.Context) ([]models.OrderStub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]models.OrderStub, 0, len(s.orders))
	for num, o := range s.orders {
		if s.AutoShip && o.status != models.ShippingStatusShipped {
			o.status = models.ShippingStatusShipped
			o.tracking = trackingFor(num)
		}
		st := models.OrderStub{
			Source:           models.SourceShippo,
			ID:               num,
			Status:           o.status,
			ShippingObjectID: o.objectID,
		}
		if ref, ok := models.ParseCrossPlatformID(num); ok {
			st.Origin = &ref
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShippingObjectID < out[j].ShippingObjectID })
	return out, nil
}

func (s *Shipping) CreateOrder(ctx context.Context, rec *models.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.CreateErr[rec.CrossPlatformID]; err != nil {
		return err
	}
	if _, ok := s.orders[rec.CrossPlatformID]; ok {
		return models.ErrDuplicateSubmission
	}
	s.add(*rec, "PAID", "")
	s.Created = append(s.Created, rec.CrossPlatformID)
	return nil
}

func (s *Shipping) FetchOrderByObjectID(ctx context.Context, objectID string) (*models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FetchErr[objectID]; err != nil {
		return nil, err
	}
	o, ok := s.byObj[objectID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if o.tracking == "" {
		return nil, models.ErrNoTracking
	}
	return &models.Shipment{
		ObjectID:       o.objectID,
		OrderNumber:    o.record.CrossPlatformID,
		Status:         o.status,
		TrackingNumber: o.tracking,
	}, nil
}

func trackingFor(orderNumber string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderNumber))
	return fmt.Sprintf("9400%010d", h.Sum32())
}
