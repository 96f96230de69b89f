package lidar

import (
	"math"
	"testing"
)

func TestPolarCartesianRoundTrip(t *testing.T) {
	for _, tc := range []struct{ r, angle float64 }{
		{1.0, 0},
		{2.5, math.Pi / 2},
		{0.3, -math.Pi / 3},
		{11.9, 3.0},
	} {
		x, y := PolarToCartesian(tc.r, tc.angle)
		r, angle := CartesianToPolar(x, y)
		if math.Abs(r-tc.r) > 1e-12 || math.Abs(angle-tc.angle) > 1e-12 {
			t.Errorf("round trip (%.3f, %.3f) -> (%.12f, %.12f)", tc.r, tc.angle, r, angle)
		}
	}
}

func TestPolarToCartesian_Axes(t *testing.T) {
	x, y := PolarToCartesian(2, math.Pi/2)
	if math.Abs(x) > 1e-12 || math.Abs(y-2) > 1e-12 {
		t.Errorf("PolarToCartesian(2, π/2) = (%f, %f), want (0, 2)", x, y)
	}
}

func TestNormalizeAngleDeg(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{-90, 270},
		{725, 5},
	}
	for _, tt := range tests {
		if got := NormalizeAngleDeg(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAngleDeg(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSignedAngleDeg(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{90, 90},
		{180, 180},
		{181, -179},
		{270, -90},
		{359.5, -0.5},
	}
	for _, tt := range tests {
		if got := SignedAngleDeg(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SignedAngleDeg(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
