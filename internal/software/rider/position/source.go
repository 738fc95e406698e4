// Package position supplies GPS fixes to the motion engine.
package position

import (
	"context"
	"errors"

	"train-chat/internal/domain/geo"
)

// ErrPositionUnavailable means no fix could be produced for this tick.
var ErrPositionUnavailable = errors.New("position unavailable")

// Fix is one position reading. Accuracy is in meters when known.
type Fix struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Validate checks coordinate ranges and a non-negative accuracy.
func (f Fix) Validate() error {
	if err := (geo.Point{Lat: f.Lat, Lng: f.Lng}).Validate(); err != nil {
		return err
	}
	if f.Accuracy != nil && *f.Accuracy < 0 {
		return geo.ErrNegativeAccuracy
	}
	return nil
}

// Source returns the device's current position.
type Source interface {
	Current(ctx context.Context) (Fix, error)
}
