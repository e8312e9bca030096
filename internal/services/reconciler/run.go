package reconciler

import (
	"context"
	"time"

	"github.com/BearBump/BrickSync/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Run executes a pass immediately and then keeps scheduling the next one with
// the planner until ctx is done. Trigger starts a pass early.
func (r *Reconciler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	failStreak := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-r.triggerCh:
			timer.Stop()
		}

		rep, err := r.RunOnce(ctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			r.logger.Info("run skipped, another run holds the lock")
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil || rep.Degraded():
			failStreak++
		default:
			failStreak = 0
		}

		d := r.planner.NextDelay(failStreak)
		r.nextRunAt.Store(time.Now().UTC().Add(d).UnixNano())
		r.logger.Debug("next run scheduled", zap.Duration("in", d), zap.Int("fail_streak", failStreak))
		timer.Reset(d)
	}
}

// Trigger forces an immediate run (best-effort, non-blocking).
func (r *Reconciler) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt          time.Time         `json:"startedAt"`
	LastRunAt          *time.Time        `json:"lastRunAt,omitempty"`
	LastTriggerAt      *time.Time        `json:"lastTriggerAt,omitempty"`
	NextRunAt          *time.Time        `json:"nextRunAt,omitempty"`
	Running            bool              `json:"running"`
	TotalRuns          int64             `json:"totalRuns"`
	FailedRuns         int64             `json:"failedRuns"`
	DegradedRuns       int64             `json:"degradedRuns"`
	TotalCreated       int64             `json:"totalCreated"`
	TotalMarkedShipped int64             `json:"totalMarkedShipped"`
	PublishErrors      int64             `json:"publishErrors"`
	LastError          string            `json:"lastError,omitempty"`
	LastReport         *models.RunReport `json:"lastReport,omitempty"`
}

func (r *Reconciler) Stats() Stats {
	st := Stats{
		StartedAt:          time.Unix(0, r.startedAtUnixNano).UTC(),
		Running:            r.running.Load(),
		TotalRuns:          r.totalRuns.Load(),
		FailedRuns:         r.failedRuns.Load(),
		DegradedRuns:       r.degradedRuns.Load(),
		TotalCreated:       r.totalCreated.Load(),
		TotalMarkedShipped: r.totalMarkedShipped.Load(),
		PublishErrors:      r.publishErrors.Load(),
	}
	st.LastRunAt = unixPtr(r.lastRunUnixNano.Load())
	st.LastTriggerAt = unixPtr(r.lastTriggerUnixNano.Load())
	st.NextRunAt = unixPtr(r.nextRunAt.Load())

	r.lastMu.Lock()
	st.LastError = r.lastError
	if r.lastReport != nil {
		rep := *r.lastReport
		st.LastReport = &rep
	}
	r.lastMu.Unlock()
	return st
}

func unixPtr(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	t := time.Unix(0, n).UTC()
	return &t
}
