package reconciler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/BrickSync/internal/broker/messages"
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishAttempts = 3

// publish sends an OrderSynced event. Delivery is best-effort: the platform
// change already happened, so a broker outage is only logged.
func (r *Reconciler) publish(ctx context.Context, l *zap.Logger, runID, event string, ref models.OrderRef, tracking string) {
	if r.producer == nil {
		return
	}
	msg := messages.OrderSynced{
		EventID:         uuid.NewString(),
		RunID:           runID,
		Event:           event,
		Source:          ref.Source.String(),
		NativeID:        ref.NativeID,
		CrossPlatformID: ref.CrossPlatformID(),
		TrackingNumber:  tracking,
		OccurredAt:      time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		r.publishErrors.Add(1)
		l.Error("marshal order event", zap.Error(err))
		return
	}

	key := []byte(msg.CrossPlatformID)
	for attempt := 1; ; attempt++ {
		if err = r.producer.Publish(ctx, r.topic, key, b); err == nil {
			return
		}
		// Kafka может быть ещё не готова сразу после старта.
		if attempt == publishAttempts || !sleep(ctx, time.Duration(150*attempt)*time.Millisecond) {
			break
		}
	}
	r.publishErrors.Add(1)
	l.Warn("publish order event", zap.String("event", event), zap.Error(err))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
