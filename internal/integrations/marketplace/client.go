package marketplace

import (
	"context"

	"github.com/BearBump/BrickSync/internal/models"
)

// Client is implemented by every selling platform adapter.
//
// ListOrderStubs may return usable stubs together with a
// *models.SkippedEntriesError when some listing entries could not be read;
// any other error means the listing is unavailable.
// FetchOrderDetails returns models.ErrNotFound when the platform reports the
// order as gone. FetchOrderItems is best-effort: callers treat an error as
// "no items". MarkShipped and AttachTracking return nil on success.
type Client interface {
	Source() models.Source
	Policy() models.StatusPolicy

	ListOrderStubs(ctx context.Context) ([]models.OrderStub, error)
	FetchOrderDetails(ctx context.Context, id string) (*models.OrderRecord, error)
	FetchOrderItems(ctx context.Context, id string) ([]models.LineItem, error)
	MarkShipped(ctx context.Context, id string) error
	AttachTracking(ctx context.Context, id, trackingNumber string) error
}
