// Package engine runs the motion detector against a position source on a
// fixed sampling interval.
package engine

import (
	"context"
	"sync"
	"time"

	"train-chat/internal/domain/motion"
	"train-chat/internal/general/clock"
	"train-chat/internal/general/logger"
	"train-chat/internal/software/rider/position"
)

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	Interval time.Duration // default 1s
	Params   motion.Params // default motion.DefaultParams()
	Clock    clock.Clock   // default clock.Real()
	OnState  func(motion.MotionState)
}

// Engine owns the detector state. All of it is touched only by the Run
// goroutine; Snapshot reads a copy of the last published state.
type Engine struct {
	source   position.Source
	logger   *logger.Logger
	clock    clock.Clock
	params   motion.Params
	interval time.Duration
	onState  func(motion.MotionState)

	mu   sync.RWMutex
	last motion.MotionState
	seen bool
}

func New(source position.Source, log *logger.Logger, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Params == (motion.Params{}) {
		opts.Params = motion.DefaultParams()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Engine{
		source:   source,
		logger:   log,
		clock:    opts.Clock,
		params:   opts.Params,
		interval: opts.Interval,
		onState:  opts.OnState,
	}
}

// Snapshot returns the last published state; ok is false before the
// first successful sample.
func (e *Engine) Snapshot() (state motion.MotionState, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last, e.seen
}

// Run samples until ctx is done. The sampling ticker and the stop-grace
// timer are independent; both are stopped when Run returns.
func (e *Engine) Run(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	var grace *clock.Timer
	defer func() { grace.Stop() }()

	var (
		prev    *motion.PositionSample
		rs      motion.RideState
		graceC  <-chan time.Time
		current motion.MotionState
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			fix, err := e.source.Current(ctx)
			if err != nil {
				e.logger.Warn(ctx, "position_unavailable", "Skipping tick without a fix", map[string]any{"error": err.Error()})
				continue
			}
			now := e.clock.Now().UnixMilli()
			sample := motion.PositionSample{Lat: fix.Lat, Lng: fix.Lng, TimestampMs: now}

			state, next := motion.Step(prev, rs, sample, e.params)
			prev = &sample

			switch {
			case next.Pending() && (!rs.Pending() || rs.DeadlineMs != next.DeadlineMs):
				grace.Stop()
				grace = e.clock.NewTimer(time.Duration(next.DeadlineMs-now) * time.Millisecond)
				graceC = grace.C
			case !next.Pending() && grace != nil:
				grace.Stop()
				grace, graceC = nil, nil
			}

			if next.IsRiding() != rs.IsRiding() {
				e.logger.Info(ctx, "riding_changed", "Riding state changed", map[string]any{
					"phase":     next.Phase.String(),
					"speed_mps": state.SpeedMps,
					"room_id":   state.RoomID,
				})
			}
			rs = next
			current = state
			e.publish(current)

		case <-graceC:
			grace, graceC = nil, nil
			next := motion.Expire(rs, e.clock.Now().UnixMilli())
			if next == rs {
				continue
			}
			rs = next
			current.IsRiding = rs.IsRiding()
			e.logger.Info(ctx, "riding_changed", "Stop grace window elapsed", map[string]any{"phase": rs.Phase.String()})
			e.publish(current)
		}
	}
}

func (e *Engine) publish(s motion.MotionState) {
	e.mu.Lock()
	e.last, e.seen = s, true
	e.mu.Unlock()

	if e.onState != nil {
		e.onState(s)
	}
}
