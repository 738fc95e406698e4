package position

import (
	"context"
	"time"

	"train-chat/internal/domain/geo"
	"train-chat/internal/general/clock"
)

// Stop is a station dwell: starting At after the run begins, the train
// stands still for Dwell.
type Stop struct {
	At    time.Duration
	Dwell time.Duration
}

// SimulatedSource moves along a great circle from Origin at a constant
// speed, pausing at each Stop. Position is a function of elapsed clock
// time, so it pairs with a fake clock in tests.
type SimulatedSource struct {
	Origin     geo.Point
	SpeedMps   float64
	HeadingDeg float64
	Stops      []Stop

	clock clock.Clock
	start time.Time
}

// NewSimulatedSource starts the run at clk.Now().
func NewSimulatedSource(clk clock.Clock, origin geo.Point, speedMps, headingDeg float64, stops ...Stop) *SimulatedSource {
	return &SimulatedSource{
		Origin:     origin,
		SpeedMps:   speedMps,
		HeadingDeg: headingDeg,
		Stops:      stops,
		clock:      clk,
		start:      clk.Now(),
	}
}

func (s *SimulatedSource) Current(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	moving := s.movingTime(s.clock.Now().Sub(s.start))
	p := geo.Destination(s.Origin, s.HeadingDeg, s.SpeedMps*moving.Seconds())
	return Fix{Lat: p.Lat, Lng: p.Lng}, nil
}

// movingTime subtracts the part of elapsed spent standing at stops.
func (s *SimulatedSource) movingTime(elapsed time.Duration) time.Duration {
	moving := elapsed
	for _, st := range s.Stops {
		if elapsed <= st.At {
			continue
		}
		moving -= min(elapsed-st.At, st.Dwell)
	}
	if moving < 0 {
		return 0
	}
	return moving
}
