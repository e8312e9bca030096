package reconciler

import (
	"math/rand"
	"time"
)

type Rand interface {
	Intn(n int) int
}

type PlannerConfig struct {
	IntervalMin time.Duration // default: 5 minutes
	IntervalMax time.Duration // default: IntervalMin

	// Delays after 1, 2, 3 and 4+ degraded or failed runs in a row.
	Backoff1 time.Duration // default: 1 minute
	Backoff2 time.Duration // default: 5 minutes
	Backoff3 time.Duration // default: 15 minutes
	Backoff4 time.Duration // default: 30 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		IntervalMin: 5 * time.Minute,
		IntervalMax: 5 * time.Minute,

		Backoff1: 1 * time.Minute,
		Backoff2: 5 * time.Minute,
		Backoff3: 15 * time.Minute,
		Backoff4: 30 * time.Minute,
	}
}

// Planner decides how long to wait before the next run.
type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.IntervalMin <= 0 {
		cfg.IntervalMin = def.IntervalMin
	}
	if cfg.IntervalMax < cfg.IntervalMin {
		cfg.IntervalMax = cfg.IntervalMin
	}
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Backoff4 <= 0 {
		cfg.Backoff4 = def.Backoff4
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, r: r}
}

func (p *Planner) Config() PlannerConfig { return p.cfg }

// NextDelay returns the regular interval after a clean run (failStreak 0),
// otherwise the backoff for the streak length.
func (p *Planner) NextDelay(failStreak int) time.Duration {
	if failStreak <= 0 {
		return p.Interval()
	}
	return p.BackoffDelay(failStreak)
}

// Interval picks a delay in [IntervalMin, IntervalMax] with second precision,
// so several workers started together drift apart.
func (p *Planner) Interval() time.Duration {
	min := p.cfg.IntervalMin
	max := p.cfg.IntervalMax
	if max == min {
		return min
	}
	secMin := int(min.Seconds())
	secMax := int(max.Seconds())
	if secMax <= secMin {
		return min
	}
	return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
}

func (p *Planner) BackoffDelay(failStreak int) time.Duration {
	switch {
	case failStreak <= 1:
		return p.cfg.Backoff1
	case failStreak == 2:
		return p.cfg.Backoff2
	case failStreak == 3:
		return p.cfg.Backoff3
	default:
		return p.cfg.Backoff4
	}
}
