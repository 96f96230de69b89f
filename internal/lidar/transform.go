package lidar

import "math"

// PolarToCartesian converts a range (meters) and angle (radians) into
// sensor-frame coordinates. Coordinate convention: X forward, Y left,
// angles counter-clockwise from X.
func PolarToCartesian(r, angle float64) (x, y float64) {
	return r * math.Cos(angle), r * math.Sin(angle)
}

// CartesianToPolar is the inverse of PolarToCartesian. The angle is in
// (-π, π].
func CartesianToPolar(x, y float64) (r, angle float64) {
	return math.Hypot(x, y), math.Atan2(y, x)
}

// NormalizeAngleDeg folds an angle in degrees into [0, 360).
func NormalizeAngleDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// SignedAngleDeg folds a sensor angle in degrees into (-180, 180]: angles
// above 180° become -(360 - angle).
func SignedAngleDeg(deg float64) float64 {
	deg = NormalizeAngleDeg(deg)
	if deg > 180 {
		return -(360 - deg)
	}
	return deg
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
