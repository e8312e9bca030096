package fake

import (
	"context"
	"testing"

	"github.com/BearBump/BrickSync/internal/models"
	"github.com/stretchr/testify/require"
)

func TestShipping_CreateAndDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()
	rec := &models.OrderRecord{CrossPlatformID: "bricklink_1", Weight: "1.000"}

	require.NoError(t, s.CreateOrder(ctx, rec))
	require.ErrorIs(t, s.CreateOrder(ctx, rec), models.ErrDuplicateSubmission)
	require.Equal(t, []string{"bricklink_1"}, s.Created)

	stubs, err := s.ListOrderStubs(ctx)
	require.NoError(t, err)
	require.Len(t, stubs, 1)
	require.Equal(t, "PAID", stubs[0].Status)
	require.Equal(t, &models.OrderRef{Source: models.SourceBrickLink, NativeID: "1"}, stubs[0].Origin)
}

func TestShipping_ShipAndFetch(t *testing.T) {
	ctx := context.Background()
	s := New()
	obj := s.Add("brickowl_500", "PAID", "")

	_, err := s.FetchOrderByObjectID(ctx, obj)
	require.ErrorIs(t, err, models.ErrNoTracking)

	s.Ship("brickowl_500", "TRK1")
	sh, err := s.FetchOrderByObjectID(ctx, obj)
	require.NoError(t, err)
	require.Equal(t, "TRK1", sh.TrackingNumber)
	require.Equal(t, models.ShippingStatusShipped, sh.Status)

	_, err = s.FetchOrderByObjectID(ctx, "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestShipping_AutoShip(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AutoShip = true
	require.NoError(t, s.CreateOrder(ctx, &models.OrderRecord{CrossPlatformID: "brickowl_7"}))

	stubs, err := s.ListOrderStubs(ctx)
	require.NoError(t, err)
	require.Equal(t, models.ShippingStatusShipped, stubs[0].Status)

	sh, err := s.FetchOrderByObjectID(ctx, stubs[0].ShippingObjectID)
	require.NoError(t, err)
	require.Equal(t, trackingFor("brickowl_7"), sh.TrackingNumber)
}
