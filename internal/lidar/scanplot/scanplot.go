// Package scanplot renders resampled scans to PNG for offline inspection.
package scanplot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/lidarscan/internal/lidar"
	"github.com/banshee-data/lidarscan/internal/monitoring"
)

var (
	pointColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	sensorColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// Cartesian returns the valid samples of scan as sensor-frame x/y points.
func Cartesian(scan *lidar.Scan) plotter.XYs {
	pts := make(plotter.XYs, 0, scan.ValidCount())
	for i, r := range scan.Ranges {
		if r <= 0 {
			continue
		}
		x, y := lidar.PolarToCartesian(r, scan.AngleAt(i))
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

// Profile returns range against bearing in degrees for the valid samples.
func Profile(scan *lidar.Scan) plotter.XYs {
	pts := make(plotter.XYs, 0, scan.ValidCount())
	for i, r := range scan.Ranges {
		if r <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: scan.AngleAt(i) * 180.0 / math.Pi, Y: r})
	}
	return pts
}

// RenderTopDown writes a top-down scatter of scan, sensor at the origin.
func RenderTopDown(scan *lidar.Scan, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	if pts := Cartesian(scan); len(pts) > 0 {
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = pointColor
		scatter.GlyphStyle.Radius = vg.Points(1)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
	}

	origin, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return err
	}
	origin.GlyphStyle.Color = sensorColor
	origin.GlyphStyle.Radius = vg.Points(3)
	origin.GlyphStyle.Shape = draw.CrossGlyph{}
	p.Add(origin)

	// square axes so the room is not distorted
	r := scan.Window.MaxRange
	if r <= 0 {
		r = lidar.DefaultMaxRange
	}
	p.X.Min, p.X.Max = -r, r
	p.Y.Min, p.Y.Max = -r, r

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save top-down plot: %w", err)
	}
	return nil
}

// RenderProfile writes range against bearing as a line plot.
func RenderProfile(scan *lidar.Scan, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Bearing (deg)"
	p.Y.Label.Text = "Distance (m)"
	p.Add(plotter.NewGrid())

	if pts := Profile(scan); len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = pointColor
		line.Width = vg.Points(1)
		p.Add(line)
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}

// Recorder renders every Nth scan it is handed into a run directory.
type Recorder struct {
	mu        sync.Mutex
	outputDir string
	every     int
	seen      int
	written   int
}

// NewRecorder creates outputDir and returns a Recorder that renders every
// scan when every <= 1, else every Nth.
func NewRecorder(outputDir string, every int) (*Recorder, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	if every < 1 {
		every = 1
	}
	return &Recorder{outputDir: outputDir, every: every}, nil
}

// Record renders scan if it falls on the sampling interval.
func (r *Recorder) Record(scan *lidar.Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen++
	if (r.seen-1)%r.every != 0 {
		return nil
	}

	idx := r.written
	title := fmt.Sprintf("Scan %d (%d/%d valid)", r.seen, scan.ValidCount(), scan.Len())
	top := filepath.Join(r.outputDir, fmt.Sprintf("scan_%04d_top.png", idx))
	if err := RenderTopDown(scan, title, top); err != nil {
		return err
	}
	profile := filepath.Join(r.outputDir, fmt.Sprintf("scan_%04d_profile.png", idx))
	if err := RenderProfile(scan, title, profile); err != nil {
		return err
	}
	r.written++
	monitoring.Debugf("[scanplot] wrote %s", top)
	return nil
}

// Written returns the number of scans rendered so far.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// OutputDir returns the run directory.
func (r *Recorder) OutputDir() string {
	return r.outputDir
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakeOutputDir returns baseDir/<label>_<timestamp>; label defaults to "live".
func MakeOutputDir(baseDir, label string, now time.Time) string {
	if label == "" {
		label = "live"
	}
	return filepath.Join(baseDir, label+"_"+FormatTimestamp(now))
}
