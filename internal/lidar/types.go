package lidar

import (
	"fmt"
	"time"
)

// MotionDelta is the platform's rigid-body displacement between the scan
// reference time and a point's capture time, supplied by an external pose
// source (odometry, IMU integration).
type MotionDelta struct {
	DX     float64 // meters
	DY     float64 // meters
	DTheta float64 // radians
}

// IsZero reports whether the delta describes no motion at all.
func (d MotionDelta) IsZero() bool {
	return d.DX == 0 && d.DY == 0 && d.DTheta == 0
}

// RawPoint is one decoded sample as delivered by the Transport.
type RawPoint struct {
	Angle     float64 // radians, [0, 2π)
	Distance  float64 // meters, 0 means no return
	Intensity uint16
	Timestamp int64 // unix nanos
	Motion    MotionDelta
}

// AngleDeg returns the point's angle in degrees.
func (p RawPoint) AngleDeg() float64 {
	return radToDeg(p.Angle)
}

// HealthStatus is the device self-test result.
type HealthStatus int

const (
	HealthGood HealthStatus = iota
	HealthWarning
	HealthError
)

func (s HealthStatus) String() string {
	switch s {
	case HealthGood:
		return "good"
	case HealthWarning:
		return "warning"
	case HealthError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// DeviceModel is the model code reported in the device-info response.
type DeviceModel uint8

// ModelS4 is the only model this driver operates.
const ModelS4 DeviceModel = 4

func (m DeviceModel) String() string {
	if m == ModelS4 {
		return "S4"
	}
	return fmt.Sprintf("model(%d)", uint8(m))
}

// DeviceInfo is the identification block reported by the sensor.
type DeviceInfo struct {
	Model           DeviceModel
	FirmwareVersion uint16 // major in the high byte, minor in the low byte
	HardwareVersion uint8
	Serial          [16]byte
}

// FirmwareMajor returns the high byte of the firmware version.
func (d DeviceInfo) FirmwareMajor() uint8 { return uint8(d.FirmwareVersion >> 8) }

// FirmwareMinor returns the low byte of the firmware version.
func (d DeviceInfo) FirmwareMinor() uint8 { return uint8(d.FirmwareVersion & 0xff) }

// SerialString renders the serial number one hex digit per byte.
func (d DeviceInfo) SerialString() string {
	buf := make([]byte, 0, len(d.Serial))
	for _, b := range d.Serial {
		buf = append(buf, fmt.Sprintf("%01X", b)...)
	}
	return string(buf)
}

// ScanWindow describes the angular and temporal layout of one output scan.
type ScanWindow struct {
	MinAngle       float64 // radians
	MaxAngle       float64 // radians
	AngleIncrement float64 // radians between consecutive output samples
	TimeIncrement  time.Duration
	ScanDuration   time.Duration
	MinRange       float64 // meters
	MaxRange       float64 // meters
}

// Scan is one resampled output scan. Ranges[i] and Intensities[i] belong to
// angle Window.MinAngle + i*Window.AngleIncrement. A (0, 0) pair means no
// valid return.
type Scan struct {
	Timestamp   int64 // unix nanos of the earliest point in the batch
	Window      ScanWindow
	Ranges      []float64
	Intensities []float64
}

// Len returns the number of output samples.
func (s *Scan) Len() int {
	return len(s.Ranges)
}

// AngleAt returns the nominal angle (radians) of output index i.
func (s *Scan) AngleAt(i int) float64 {
	return s.Window.MinAngle + float64(i)*s.Window.AngleIncrement
}

// ValidCount returns the number of samples carrying a return.
func (s *Scan) ValidCount() int {
	n := 0
	for _, r := range s.Ranges {
		if r > 0 {
			n++
		}
	}
	return n
}
