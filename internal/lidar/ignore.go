package lidar

import "fmt"

// IgnoreZones is a flat, ordered list of (startDeg, endDeg) pairs in the
// signed angle convention of SignedAngleDeg. Returns whose signed angle lies
// strictly inside a pair are dropped.
type IgnoreZones []float64

// Validate checks that the list holds whole pairs with start <= end.
func (z IgnoreZones) Validate() error {
	if len(z)%2 != 0 {
		return fmt.Errorf("ignore zones need an even number of entries, got %d", len(z))
	}
	for i := 0; i < len(z); i += 2 {
		if z[i] > z[i+1] {
			return fmt.Errorf("ignore zone %d: start %.2f is after end %.2f", i/2, z[i], z[i+1])
		}
	}
	return nil
}

// Contains reports whether signedDeg falls strictly inside any zone.
func (z IgnoreZones) Contains(signedDeg float64) bool {
	for i := 0; i+1 < len(z); i += 2 {
		if z[i] < signedDeg && signedDeg < z[i+1] {
			return true
		}
	}
	return false
}
