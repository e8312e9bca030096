package messages

import (
	"time"
)

const TopicOrderSynced = "orders.synced"

const (
	EventCreated = "created"
	EventShipped = "shipped"
)

// OrderSynced is published after the reconciler changes state on a platform:
// an order mirrored into the shipping platform, or marked shipped on its
// marketplace. Key is the cross-platform id.
type OrderSynced struct {
	EventID string `json:"event_id"`
	RunID   string `json:"run_id"`
	Event   string `json:"event"`

	Source          string `json:"source"`
	NativeID        string `json:"native_id"`
	CrossPlatformID string `json:"cross_platform_id"`

	TrackingNumber string `json:"tracking_number,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
