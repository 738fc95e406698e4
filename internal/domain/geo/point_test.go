package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	// Tokyo station to Shinagawa station, roughly 6.4 km
	d := DistanceMeters(Point{35.6812, 139.7671}, Point{35.6285, 139.7388})
	if d < 6000 || d > 7000 {
		t.Fatalf("unexpected distance: %v", d)
	}
	if DistanceMeters(Point{1, 1}, Point{1, 1}) != 0 {
		t.Fatalf("distance to self should be zero")
	}
}

func TestBearingDegreesCardinal(t *testing.T) {
	origin := Point{0, 0}
	cases := []struct {
		name string
		to   Point
		want float64
	}{
		{"north", Point{1, 0}, 0},
		{"east", Point{0, 1}, 90},
		{"south", Point{-1, 0}, 180},
		{"west", Point{0, -1}, 270},
	}
	for _, tc := range cases {
		got := BearingDegrees(origin, tc.to)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: bearing = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	origin := Point{35.6812, 139.7671}
	dest := Destination(origin, 90, 1000)

	if d := DistanceMeters(origin, dest); math.Abs(d-1000) > 0.5 {
		t.Fatalf("distance = %v, want ~1000", d)
	}
	if b := BearingDegrees(origin, dest); math.Abs(b-90) > 0.01 {
		t.Fatalf("bearing = %v, want ~90", b)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	for in, want := range map[float64]float64{-90: 270, 360: 0, 725: 5, 0: 0} {
		if got := NormalizeDegrees(in); got != want {
			t.Fatalf("normalize(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestPointValidate(t *testing.T) {
	if err := (Point{91, 0}).Validate(); !errors.Is(err, ErrInvalidLatitude) {
		t.Fatalf("expected latitude error, got %v", err)
	}
	if err := (Point{0, -181}).Validate(); !errors.Is(err, ErrInvalidLongitude) {
		t.Fatalf("expected longitude error, got %v", err)
	}
	if err := (Point{math.NaN(), 0}).Validate(); !errors.Is(err, ErrInvalidLatitude) {
		t.Fatalf("NaN latitude should be invalid")
	}
	if err := (Point{35, 139}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
