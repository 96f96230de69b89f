package lidar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidarscan/internal/timeutil"
)

// pointAt builds a return at deg degrees with a zero motion delta.
func pointAt(deg, distance float64) RawPoint {
	return RawPoint{
		Angle:     deg * math.Pi / 180.0,
		Distance:  distance,
		Intensity: 100,
	}
}

// fullBatch returns n evenly spaced returns over a full turn, timestamped
// 100µs apart.
func fullBatch(n int, distance float64) []RawPoint {
	points := make([]RawPoint, n)
	for i := range points {
		points[i] = pointAt(float64(i)*360.0/float64(n), distance)
		points[i].Timestamp = int64(i) * int64(100*time.Microsecond)
	}
	return points
}

func fullCircleConfig() ResampleConfig {
	cfg := DefaultResampleConfig()
	cfg.MinRange = 0.08
	cfg.MaxRange = 12.0
	return cfg
}

func newTestResampler(t *testing.T, cfg ResampleConfig) *Resampler {
	t.Helper()
	r, err := NewResampler(cfg)
	require.NoError(t, err)
	return r
}

// newTestDriver returns a driver around mock with a mock clock.
func newTestDriver(t *testing.T, mock *MockTransport, mutate func(*Config)) (*Driver, *timeutil.MockClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Address = "/dev/ttyUSB0"
	if mutate != nil {
		mutate(&cfg)
	}
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	d, err := NewDriver(cfg, func() Transport { return mock }, WithClock(clock))
	require.NoError(t, err)
	return d, clock
}

// startedDriver returns a driver that has been initialised and started.
func startedDriver(t *testing.T, mock *MockTransport, mutate func(*Config)) (*Driver, *timeutil.MockClock) {
	t.Helper()
	d, clock := newTestDriver(t, mock, mutate)
	require.NoError(t, d.Initialize())
	require.NoError(t, d.Start())
	require.Equal(t, StateScanning, d.State())
	return d, clock
}
