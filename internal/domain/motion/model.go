// Package motion infers whether a rider is on a moving vehicle from
// consecutive GPS fixes, and derives the room key riders share.
package motion

import (
	"fmt"
	"math"
	"time"

	"train-chat/internal/domain/geo"

	"github.com/mmcloughlin/geohash"
)

// PositionSample is one captured fix. TimestampMs is Unix milliseconds.
type PositionSample struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// Point returns the sample's coordinates.
func (s PositionSample) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lng: s.Lng}
}

// MotionState is republished as a whole on every tick. RoomID is derived
// from position and heading and is empty only before the first sample.
type MotionState struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	SpeedMps   float64 `json:"speed_mps"`
	HeadingDeg float64 `json:"heading_deg"`
	RoomID     string  `json:"room_id"`
	IsRiding   bool    `json:"is_riding"`
}

// Params holds the tunables of the riding detector.
type Params struct {
	ThresholdMps     float64
	Grace            time.Duration
	GeohashPrecision uint
}

// DefaultParams: 2 m/s (about 7.2 km/h), a 30 s stop grace window and
// geohash cells of 8 characters (roughly 38 m x 19 m).
func DefaultParams() Params {
	return Params{
		ThresholdMps:     2.0,
		Grace:            30 * time.Second,
		GeohashPrecision: 8,
	}
}

// SectorSize is the width of one heading bucket in degrees.
const SectorSize = 45

// Sector quantizes a heading into one of 8 buckets: 0, 45, ..., 315.
func Sector(headingDeg float64) int {
	h := geo.NormalizeDegrees(headingDeg)
	s := int(math.Floor(h/SectorSize)) * SectorSize
	if s >= 360 {
		s = 0
	}
	return s
}

// RoomID builds "<geohash>_<sector>" for a position and heading.
func RoomID(lat, lng, headingDeg float64, precision uint) string {
	return fmt.Sprintf("%s_%d", geohash.EncodeWithPrecision(lat, lng, precision), Sector(headingDeg))
}
