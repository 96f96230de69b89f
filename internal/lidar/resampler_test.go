package lidar

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResample_QuarterTurnLandsMidUpperHalf(t *testing.T) {
	r := newTestResampler(t, fullCircleConfig())

	scan, err := r.Resample([]RawPoint{pointAt(90, 1.0)})
	require.NoError(t, err)

	require.Equal(t, 720, scan.Len())
	assert.InDelta(t, 1.0, scan.Ranges[540], 1e-9)
	assert.Equal(t, 100.0, scan.Intensities[540])
	assert.Equal(t, 1, scan.ValidCount())
	assert.InDelta(t, math.Pi/2, scan.AngleAt(540), 1e-9)
}

func TestResample_WindowLayout(t *testing.T) {
	r := newTestResampler(t, fullCircleConfig())

	scan, err := r.Resample(fullBatch(720, 2.0))
	require.NoError(t, err)

	w := scan.Window
	assert.InDelta(t, -math.Pi, w.MinAngle, 1e-12)
	assert.InDelta(t, math.Pi, w.MaxAngle, 1e-12)
	// a full turn shares its end sample with the start, so the increment
	// divides by the sample count
	assert.InDelta(t, 2*math.Pi/720, w.AngleIncrement, 1e-12)
	assert.Equal(t, 0.08, w.MinRange)
	assert.Equal(t, 12.0, w.MaxRange)
}

func TestResample_EvenlySpacedFillsEveryBin(t *testing.T) {
	for _, g := range []int{4, 90, 360, 720, 1000} {
		cfg := fullCircleConfig()
		cfg.ResolutionCount = g
		r := newTestResampler(t, cfg)

		scan, err := r.Resample(fullBatch(g, 2.0))
		require.NoError(t, err, "grid %d", g)

		assert.Equal(t, g, scan.Len(), "grid %d", g)
		assert.Equal(t, g, scan.ValidCount(), "grid %d", g)
		for i, rng := range scan.Ranges {
			if rng != 2.0 {
				t.Errorf("grid %d: Ranges[%d] = %v, want 2", g, i, rng)
				break
			}
		}
	}
}

func TestResample_HalfWindow(t *testing.T) {
	cfg := fullCircleConfig()
	cfg.MinAngleDeg = -90
	cfg.MaxAngleDeg = 90
	r := newTestResampler(t, cfg)

	scan, err := r.Resample([]RawPoint{
		pointAt(0, 1.0),
		pointAt(45, 2.0),
		pointAt(180, 3.0),
	})
	require.NoError(t, err)

	require.Equal(t, 360, scan.Len())
	assert.InDelta(t, math.Pi/359, scan.Window.AngleIncrement, 1e-12)
	assert.InDelta(t, 1.0, scan.Ranges[180], 1e-9)
	assert.InDelta(t, 2.0, scan.Ranges[270], 1e-9)
	// 180° is behind the window
	assert.Equal(t, 2, scan.ValidCount())
}

func TestBinPoints_NearestPointWins(t *testing.T) {
	r := newTestResampler(t, fullCircleConfig())

	grid, _, _ := r.binPoints([]RawPoint{
		pointAt(90.2, 1.0),
		pointAt(90.1, 2.0),
		pointAt(89.8, 3.0),
	}, 720)

	require.True(t, grid[180].used)
	assert.Equal(t, 2.0, grid[180].point.Distance)
	assert.InDelta(t, 0.1, grid[180].residual, 1e-9)
	assert.False(t, grid[179].used)
	assert.False(t, grid[181].used)
}

func TestBinPoints_CloserOrEqualReplaces(t *testing.T) {
	var b angleBin
	b.offer(RawPoint{Distance: 1}, 0.2)
	b.offer(RawPoint{Distance: 2}, 0.3)
	assert.Equal(t, 1.0, b.point.Distance)

	b.offer(RawPoint{Distance: 3}, 0.2)
	assert.Equal(t, 3.0, b.point.Distance)
}

func TestBinPoints_ZeroDistanceSkippedButTimed(t *testing.T) {
	r := newTestResampler(t, fullCircleConfig())

	first := pointAt(10, 0)
	first.Timestamp = 5
	last := pointAt(20, 1.0)
	last.Timestamp = 50

	grid, start, end := r.binPoints([]RawPoint{first, last}, 720)
	assert.False(t, grid[20].used)
	assert.True(t, grid[40].used)
	assert.Equal(t, int64(5), start)
	assert.Equal(t, int64(50), end)
}

func TestResample_Idempotent(t *testing.T) {
	cfg := fullCircleConfig()
	cfg.IgnoreZones = IgnoreZones{10, 20}
	r := newTestResampler(t, cfg)

	batch := fullBatch(500, 4.0)
	batch[100].Distance = 0.01
	batch[200].Motion = MotionDelta{DTheta: 0.01}

	first, err := r.Resample(batch)
	require.NoError(t, err)
	second, err := r.Resample(batch)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Resample not deterministic (-first +second):\n%s", diff)
	}
}

func TestResample_IgnoreZones(t *testing.T) {
	tests := []struct {
		name      string
		zones     IgnoreZones
		want90    float64
		want270   float64
		wantValid int
	}{
		{"none", nil, 1.0, 2.0, 2},
		{"positive side", IgnoreZones{80, 100}, 0, 2.0, 1},
		{"signed negative side", IgnoreZones{-100, -80}, 1.0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fullCircleConfig()
			cfg.IgnoreZones = tt.zones
			r := newTestResampler(t, cfg)

			scan, err := r.Resample([]RawPoint{pointAt(90, 1.0), pointAt(270, 2.0)})
			require.NoError(t, err)

			assert.InDelta(t, tt.want90, scan.Ranges[540], 1e-9)
			assert.InDelta(t, tt.want270, scan.Ranges[180], 1e-9)
			assert.Equal(t, tt.wantValid, scan.ValidCount())
		})
	}
}

func TestResample_RangeClamp(t *testing.T) {
	r := newTestResampler(t, fullCircleConfig())

	scan, err := r.Resample([]RawPoint{
		pointAt(0, 12.5),
		pointAt(90, 0.05),
		pointAt(180, 0.08),
		pointAt(270, 12.0),
	})
	require.NoError(t, err)

	// out-of-range returns leave (0, 0)
	assert.Equal(t, 0.0, scan.Ranges[360])
	assert.Equal(t, 0.0, scan.Intensities[360])
	assert.Equal(t, 0.0, scan.Ranges[540])
	assert.Equal(t, 0.0, scan.Intensities[540])

	// the limits themselves are kept
	assert.InDelta(t, 0.08, scan.Ranges[0], 1e-12)
	assert.InDelta(t, 12.0, scan.Ranges[180], 1e-12)
	assert.Equal(t, 2, scan.ValidCount())
}

func TestResample_GridModes(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ResampleConfig)
		points  int
		wantLen int
	}{
		{"fixed default", func(c *ResampleConfig) {}, 400, 720},
		{"fixed count override", func(c *ResampleConfig) { c.FixedCount = 100 }, 400, 100},
		{"variable follows batch", func(c *ResampleConfig) { c.FixedResolution = false }, 360, 360},
		{"variable half window", func(c *ResampleConfig) {
			c.FixedResolution = false
			c.MinAngleDeg = 0
		}, 360, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fullCircleConfig()
			tt.mutate(&cfg)
			r := newTestResampler(t, cfg)

			scan, err := r.Resample(fullBatch(tt.points, 1.0))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, scan.Len())
			assert.Len(t, scan.Intensities, tt.wantLen)
		})
	}
}

func TestResample_InsufficientData(t *testing.T) {
	t.Run("variable grid of one", func(t *testing.T) {
		cfg := fullCircleConfig()
		cfg.FixedResolution = false
		r := newTestResampler(t, cfg)

		_, err := r.Resample([]RawPoint{pointAt(10, 1)})
		assert.True(t, errors.Is(err, ErrInsufficientData), "got %v", err)
	})

	t.Run("window narrower than two bins", func(t *testing.T) {
		cfg := fullCircleConfig()
		cfg.MinAngleDeg = 0
		cfg.MaxAngleDeg = 0.5
		r := newTestResampler(t, cfg)

		_, err := r.Resample(fullBatch(720, 1))
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestResample_MotionCompensation(t *testing.T) {
	p := pointAt(90, 1.0)
	p.Motion = MotionDelta{DTheta: 1.0 * math.Pi / 180.0}

	t.Run("enabled", func(t *testing.T) {
		r := newTestResampler(t, fullCircleConfig())
		scan, err := r.Resample([]RawPoint{p})
		require.NoError(t, err)

		assert.Equal(t, 0.0, scan.Ranges[540])
		assert.InDelta(t, 1.0, scan.Ranges[538], 1e-9)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := fullCircleConfig()
		cfg.MotionCompensation = false
		r := newTestResampler(t, cfg)
		scan, err := r.Resample([]RawPoint{p})
		require.NoError(t, err)

		assert.InDelta(t, 1.0, scan.Ranges[540], 1e-9)
	})

	t.Run("wraps across the seam", func(t *testing.T) {
		q := pointAt(180, 1.0)
		q.Motion = MotionDelta{DTheta: -1.0 * math.Pi / 180.0}

		r := newTestResampler(t, fullCircleConfig())
		scan, err := r.Resample([]RawPoint{q})
		require.NoError(t, err)

		// 180° rotated forward by 1° is -179°
		assert.InDelta(t, 1.0, scan.Ranges[2], 1e-9)
		assert.Equal(t, 1, scan.ValidCount())
	})
}

func TestResample_Timing(t *testing.T) {
	r := newTestResampler(t, fullCircleConfig())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano()
	batch := fullBatch(720, 1.0)
	for i := range batch {
		batch[i].Timestamp += base
	}
	// latest point arrives a full 100ms after the first
	batch[len(batch)-1].Timestamp = base + int64(100*time.Millisecond)

	scan, err := r.Resample(batch)
	require.NoError(t, err)

	assert.Equal(t, base, scan.Timestamp)
	assert.Equal(t, 100*time.Millisecond, scan.Window.ScanDuration)
	assert.Equal(t, 100*time.Millisecond/720, scan.Window.TimeIncrement)
}

func TestNewResampler_SwapsReversedWindow(t *testing.T) {
	cfg := fullCircleConfig()
	cfg.MinAngleDeg = 90
	cfg.MaxAngleDeg = -90

	r := newTestResampler(t, cfg)
	assert.Equal(t, -90.0, r.Config().MinAngleDeg)
	assert.Equal(t, 90.0, r.Config().MaxAngleDeg)
	require.NotNil(t, r.Config().Mount)
	assert.True(t, r.Config().Mount.IsIdentity())
}

func TestNewResampler_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ResampleConfig)
	}{
		{"odd ignore zones", func(c *ResampleConfig) { c.IgnoreZones = IgnoreZones{1, 2, 3} }},
		{"negative min range", func(c *ResampleConfig) { c.MinRange = -1 }},
		{"max range below min", func(c *ResampleConfig) { c.MaxRange = 0.01 }},
		{"angle beyond 180", func(c *ResampleConfig) { c.MaxAngleDeg = 200 }},
		{"empty window", func(c *ResampleConfig) { c.MinAngleDeg, c.MaxAngleDeg = 30, 30 }},
		{"fixed with no bins", func(c *ResampleConfig) { c.ResolutionCount = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fullCircleConfig()
			tt.mutate(&cfg)
			_, err := NewResampler(cfg)
			assert.Error(t, err)
		})
	}
}
