package lidar

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/lidarscan/internal/monitoring"
)

// Defaults for the supported sensor.
const (
	DefaultResolutionCount = 720
	DefaultMinAngleDeg     = -180.0
	DefaultMaxAngleDeg     = 180.0
	DefaultMinRange        = 0.08
	DefaultMaxRange        = 12.0
)

// fullTurnTolerance absorbs float noise when deciding whether the window
// covers a whole rotation.
const fullTurnTolerance = 1e-9

// ResampleConfig controls how a raw batch is laid onto the output grid.
type ResampleConfig struct {
	// FixedResolution keeps the grid at ResolutionCount bins; otherwise the
	// grid tracks the batch size.
	FixedResolution bool
	ResolutionCount int
	// FixedCount overrides ResolutionCount in fixed mode when > 0.
	FixedCount int

	MinAngleDeg float64 // output window start, [-180, 180]
	MaxAngleDeg float64 // output window end, [-180, 180]
	MinRange    float64 // meters
	MaxRange    float64 // meters

	IgnoreZones IgnoreZones
	// Mount is the sensor→platform transform; nil means identity.
	Mount *SensorMount
	// MotionCompensation applies each point's MotionDelta through the mount.
	MotionCompensation bool
}

// DefaultResampleConfig returns the settings for a full-turn 0.5° scan.
func DefaultResampleConfig() ResampleConfig {
	return ResampleConfig{
		FixedResolution:    true,
		ResolutionCount:    DefaultResolutionCount,
		FixedCount:         -1,
		MinAngleDeg:        DefaultMinAngleDeg,
		MaxAngleDeg:        DefaultMaxAngleDeg,
		MinRange:           DefaultMinRange,
		MaxRange:           DefaultMaxRange,
		MotionCompensation: true,
	}
}

// Resampler turns one raw batch into one Scan. It keeps no state between
// calls besides its configuration; the angle-bin grid lives only for the
// duration of Resample.
type Resampler struct {
	cfg ResampleConfig
}

// NewResampler validates cfg and returns a Resampler. A reversed angle
// window is swapped rather than rejected.
func NewResampler(cfg ResampleConfig) (*Resampler, error) {
	if err := cfg.IgnoreZones.Validate(); err != nil {
		return nil, err
	}
	if cfg.FixedResolution && cfg.ResolutionCount <= 0 && cfg.FixedCount <= 0 {
		return nil, fmt.Errorf("fixed resolution needs a positive bin count, got %d", cfg.ResolutionCount)
	}
	if cfg.MinRange < 0 {
		return nil, fmt.Errorf("min range must be non-negative, got %.3f", cfg.MinRange)
	}
	if cfg.MaxRange <= cfg.MinRange {
		return nil, fmt.Errorf("max range %.3f must exceed min range %.3f", cfg.MaxRange, cfg.MinRange)
	}
	for _, a := range []float64{cfg.MinAngleDeg, cfg.MaxAngleDeg} {
		if a < -180 || a > 180 {
			return nil, fmt.Errorf("window angle %.2f outside [-180, 180]", a)
		}
	}
	if cfg.MaxAngleDeg < cfg.MinAngleDeg {
		monitoring.Logf("[lidar] swapping reversed scan window [%.2f, %.2f]", cfg.MinAngleDeg, cfg.MaxAngleDeg)
		cfg.MinAngleDeg, cfg.MaxAngleDeg = cfg.MaxAngleDeg, cfg.MinAngleDeg
	}
	if cfg.MaxAngleDeg == cfg.MinAngleDeg {
		return nil, fmt.Errorf("scan window [%.2f, %.2f] is empty", cfg.MinAngleDeg, cfg.MaxAngleDeg)
	}
	if cfg.Mount == nil {
		cfg.Mount = IdentityMount()
	}
	return &Resampler{cfg: cfg}, nil
}

// Config returns the effective configuration (window already ordered).
func (r *Resampler) Config() ResampleConfig {
	return r.cfg
}

// GridSize returns the number of angle bins used for a batch of n points.
func (r *Resampler) GridSize(n int) int {
	if !r.cfg.FixedResolution {
		return n
	}
	if r.cfg.FixedCount > 0 {
		return r.cfg.FixedCount
	}
	return r.cfg.ResolutionCount
}

// angleBin holds the point nearest to one nominal bin angle.
type angleBin struct {
	point    RawPoint
	residual float64 // |point angle - bin angle| in degrees
	used     bool
}

// offer stores p when the bin is empty or p is at least as close as the
// current occupant.
func (b *angleBin) offer(p RawPoint, residual float64) {
	if b.used && residual > b.residual {
		return
	}
	b.point = p
	b.residual = residual
	b.used = true
}

// Resample lays points onto the angle grid, clamps and filters each bin,
// applies motion compensation and returns the output scan.
func (r *Resampler) Resample(points []RawPoint) (*Scan, error) {
	gridSize := r.GridSize(len(points))
	if gridSize < 2 {
		return nil, fmt.Errorf("%w: %d bins from %d points", ErrInsufficientData, gridSize, len(points))
	}

	grid, start, end := r.binPoints(points, gridSize)

	minDeg, maxDeg := r.cfg.MinAngleDeg, r.cfg.MaxAngleDeg
	count := int(float64(gridSize) * (maxDeg - minDeg) / 360.0)
	if count < 2 {
		return nil, fmt.Errorf("%w: window [%.2f, %.2f] yields %d samples", ErrInsufficientData, minDeg, maxDeg, count)
	}
	windowStart := int(float64(gridSize) * (180.0 + minDeg) / 360.0)

	fullTurn := math.Abs(maxDeg-minDeg-360.0) < fullTurnTolerance
	divisor := count - 1
	if fullTurn {
		divisor = count
	}

	scanDuration := time.Duration(end - start)
	window := ScanWindow{
		MinAngle:       degToRad(minDeg),
		MaxAngle:       degToRad(maxDeg),
		AngleIncrement: degToRad(maxDeg-minDeg) / float64(divisor),
		TimeIncrement:  scanDuration / time.Duration(divisor),
		ScanDuration:   scanDuration,
		MinRange:       r.cfg.MinRange,
		MaxRange:       r.cfg.MaxRange,
	}
	scan := &Scan{
		Timestamp:   start,
		Window:      window,
		Ranges:      make([]float64, count),
		Intensities: make([]float64, count),
	}

	half := gridSize / 2
	for slot := range grid {
		bin := &grid[slot]
		if !bin.used {
			continue
		}

		rng := bin.point.Distance
		intensity := float64(bin.point.Intensity)

		if len(r.cfg.IgnoreZones) > 0 && r.cfg.IgnoreZones.Contains(SignedAngleDeg(bin.point.AngleDeg())) {
			rng = 0
		}
		if rng > r.cfg.MaxRange || rng < r.cfg.MinRange {
			rng = 0
		}

		// Output index 0 is -180°, so the sensor's zero angle sits mid-grid.
		pos := (slot+half)%gridSize - windowStart
		if pos < 0 || pos >= count {
			continue
		}
		// No valid return: the slot keeps its (0, 0).
		if rng <= 0 {
			continue
		}

		outRange, outAngle := rng, scan.AngleAt(pos)
		if r.cfg.MotionCompensation && !bin.point.Motion.IsZero() {
			outRange, outAngle = r.cfg.Mount.Compensate(rng, outAngle, bin.point.Motion)
		}

		idx := int(math.Round((outAngle - window.MinAngle) / window.AngleIncrement))
		if fullTurn {
			idx = ((idx % count) + count) % count
		}
		if idx < 0 || idx >= count {
			continue
		}
		scan.Ranges[idx] = outRange
		scan.Intensities[idx] = intensity
	}

	monitoring.Debugf("[lidar] resampled %d points onto %d bins: %d/%d samples valid over %v",
		len(points), gridSize, scan.ValidCount(), count, scanDuration)
	return scan, nil
}

// binPoints assigns every point with a return to its nearest bin and
// reports the batch's earliest and latest timestamps over all points.
func (r *Resampler) binPoints(points []RawPoint, gridSize int) ([]angleBin, int64, int64) {
	grid := make([]angleBin, gridSize)
	binWidth := 360.0 / float64(gridSize)

	var start, end int64
	for i, p := range points {
		if i == 0 || p.Timestamp < start {
			start = p.Timestamp
		}
		if i == 0 || p.Timestamp > end {
			end = p.Timestamp
		}

		if p.Distance == 0 {
			continue
		}

		deg := p.AngleDeg()
		idx := int(deg / binWidth)
		pre := deg - float64(idx)*binWidth
		next := float64(idx+1)*binWidth - deg

		residual := pre
		if next <= pre && idx+1 < gridSize {
			idx++
			residual = next
		}
		if idx < 0 || idx >= gridSize {
			continue
		}
		grid[idx].offer(p, math.Abs(residual))
	}
	return grid, start, end
}
