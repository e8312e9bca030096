package models

import "time"

// RunReport summarizes one reconciliation pass.
type RunReport struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	SkippedSources []Source `json:"skippedSources,omitempty"`
	// SkippedEntries counts malformed listing entries left out of this run.
	SkippedEntries int `json:"skippedEntries"`

	// Stage A-C
	Candidates    int `json:"candidates"`
	Dropped       int `json:"dropped"`
	Created       int `json:"created"`
	AlreadySynced int `json:"alreadySynced"`
	CreateFailed  int `json:"createFailed"`

	// Stage D
	ShippedSeen      int `json:"shippedSeen"`
	MarkedShipped    int `json:"markedShipped"`
	Stale            int `json:"stale"`
	ShipFailed       int `json:"shipFailed"`
	TrackingAttached int `json:"trackingAttached"`
	TrackingFailed   int `json:"trackingFailed"`
}

func (r *RunReport) SkipSource(s Source) {
	r.SkippedSources = append(r.SkippedSources, s)
}

func (r RunReport) Degraded() bool {
	return len(r.SkippedSources) > 0
}

func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
