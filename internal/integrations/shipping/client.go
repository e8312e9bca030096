package shipping

import (
	"context"

	"github.com/BearBump/BrickSync/internal/models"
)

// Client is implemented by the shipping platform adapter.
//
// ListOrderStubs returns stubs with Origin already resolved when the order
// number belongs to a marketplace. CreateOrder returns
// models.ErrDuplicateSubmission when the order number already exists.
type Client interface {
	ListOrderStubs(ctx context.Context) ([]models.OrderStub, error)
	CreateOrder(ctx context.Context, rec *models.OrderRecord) error
	FetchOrderByObjectID(ctx context.Context, objectID string) (*models.Shipment, error)
}
