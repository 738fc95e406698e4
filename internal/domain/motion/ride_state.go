package motion

// Phase is the riding detector's discrete state.
type Phase int

const (
	NotRiding Phase = iota
	Riding
	RidingPendingStop
)

func (p Phase) String() string {
	switch p {
	case NotRiding:
		return "not_riding"
	case Riding:
		return "riding"
	case RidingPendingStop:
		return "riding_pending_stop"
	default:
		return "unknown"
	}
}

// RideState is the hysteresis value threaded through every Step call.
// DeadlineMs is only meaningful in RidingPendingStop.
type RideState struct {
	Phase      Phase
	DeadlineMs int64
}

// IsRiding is true while Riding and during the stop grace window.
func (s RideState) IsRiding() bool {
	return s.Phase == Riding || s.Phase == RidingPendingStop
}

// Pending reports whether a stop deadline is armed.
func (s RideState) Pending() bool {
	return s.Phase == RidingPendingStop
}

// Advance feeds one speed observation taken at nowMs into the detector.
//
//	NotRiding         --speed>T-->  Riding
//	Riding            --speed<=T--> RidingPendingStop(now+grace)
//	RidingPendingStop --speed>T-->  Riding
//	RidingPendingStop --deadline--> NotRiding   (see Expire)
//
// A pending deadline is never pushed back by further slow samples.
func Advance(s RideState, speedMps float64, nowMs int64, p Params) RideState {
	s = Expire(s, nowMs)

	switch {
	case speedMps > p.ThresholdMps:
		return RideState{Phase: Riding}
	case s.Phase == Riding:
		return RideState{Phase: RidingPendingStop, DeadlineMs: nowMs + p.Grace.Milliseconds()}
	case s.Phase == RidingPendingStop:
		return s
	default:
		return RideState{Phase: NotRiding}
	}
}

// Expire applies the time-driven transition: a pending stop whose deadline
// has passed becomes NotRiding. Any other state is returned unchanged.
func Expire(s RideState, nowMs int64) RideState {
	if s.Phase == RidingPendingStop && nowMs >= s.DeadlineMs {
		return RideState{Phase: NotRiding}
	}
	return s
}
