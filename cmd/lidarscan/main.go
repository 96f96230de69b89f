// Command lidarscan runs the acquisition pipeline end to end against the
// simulated S4: initialise, validate, start, then resample scans until
// interrupted or the requested count is reached.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/lidarscan/internal/config"
	"github.com/banshee-data/lidarscan/internal/lidar"
	"github.com/banshee-data/lidarscan/internal/lidar/scanplot"
	"github.com/banshee-data/lidarscan/internal/lidar/sim"
	"github.com/banshee-data/lidarscan/internal/monitoring"
	"github.com/banshee-data/lidarscan/internal/serialport"
	"github.com/banshee-data/lidarscan/internal/timeutil"
)

var (
	configFile  = flag.String("config", "", "Path to a scan config JSON file (defaults apply when empty)")
	port        = flag.String("port", "", "Serial port address, overrides the config file")
	baudRate    = flag.Int("baud", 0, "Baud rate, overrides the config file")
	scanLimit   = flag.Int("scans", 0, "Stop after this many scans (0 runs until interrupted)")
	plotDir     = flag.String("plot-dir", "", "Write top-down and profile PNGs into a timestamped run directory here")
	plotEvery   = flag.Int("plot-every", 8, "Render every Nth scan when -plot-dir is set")
	listPorts   = flag.Bool("list-ports", false, "List the serial ports present on this host and exit")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	yawRate     = flag.Float64("yaw-rate", 0, "Simulated platform yaw rate in rad/s")
	noise       = flag.Float64("noise", 0.005, "Simulated range noise standard deviation in metres")
	dropout     = flag.Float64("dropout", 0, "Fraction of simulated returns reported with no range")
	seed        = flag.Int64("seed", 1, "Seed for the simulated noise")
	logInterval = flag.Int("log-interval", 8, "Log scan statistics every N scans")
)

// ScanStats accumulates per-run scan statistics.
type ScanStats struct {
	mu      sync.Mutex
	scans   int64
	samples int64
	valid   int64
}

// Add records one scan.
func (s *ScanStats) Add(scan *lidar.Scan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	s.samples += int64(scan.Len())
	s.valid += int64(scan.ValidCount())
}

// Scans returns the number of scans recorded.
func (s *ScanStats) Scans() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

// Summary formats the totals and the valid-sample ratio.
func (s *ScanStats) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ratio := 0.0
	if s.samples > 0 {
		ratio = 100 * float64(s.valid) / float64(s.samples)
	}
	return fmt.Sprintf("%d scans, %d/%d samples valid (%.1f%%)", s.scans, s.valid, s.samples, ratio)
}

// loadScanConfig reads path, or returns the built-in defaults when empty.
func loadScanConfig(path string) (*config.ScanConfig, error) {
	if path == "" {
		return config.EmptyScanConfig(), nil
	}
	return config.LoadScanConfig(path)
}

// applyOverrides writes non-zero flag values over the file config.
func applyOverrides(cfg *config.ScanConfig, portOverride string, baudOverride int) {
	if portOverride != "" {
		cfg.Port = &portOverride
	}
	if baudOverride > 0 {
		cfg.BaudRate = &baudOverride
	}
}

// newSimSensor builds the simulated sensor from the command-line knobs.
func newSimSensor(clock timeutil.Clock) *sim.Sensor {
	s := sim.NewSensor(clock, *seed)
	s.YawRate = *yawRate
	s.NoiseStdDev = *noise
	s.DropoutRate = *dropout
	return s
}

// acquire runs the scan loop until ctx is done or limit scans have been
// handled. A limit of zero means no limit.
func acquire(ctx context.Context, d *lidar.Driver, limit int, every int, stats *ScanStats, rec *scanplot.Recorder) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := d.Run(ctx, func(scan *lidar.Scan) error {
		stats.Add(scan)
		if rec != nil {
			if err := rec.Record(scan); err != nil {
				return fmt.Errorf("render scan: %w", err)
			}
		}
		n := stats.Scans()
		if every > 0 && n%int64(every) == 0 {
			monitoring.Logf("%s", stats.Summary())
		}
		if limit > 0 && n >= int64(limit) {
			cancel()
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printPorts(w io.Writer, configured string) error {
	ports, err := serialport.ListPorts()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	if configured != "" {
		present, err := serialport.HasPort(configured)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "configured port %s present: %v\n", serialport.NormalizeAddress(configured), present)
	}
	return nil
}

func main() {
	flag.Parse()

	logger, err := monitoring.NewLogger("lidarscan", *debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	monitoring.UseZap(logger)

	fileCfg, err := loadScanConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyOverrides(fileCfg, *port, *baudRate)

	if *listPorts {
		if err := printPorts(os.Stdout, fileCfg.GetPort()); err != nil {
			log.Fatalf("failed to list ports: %v", err)
		}
		return
	}

	driverCfg, err := fileCfg.DriverConfig()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	clock := timeutil.RealClock{}
	sensor := newSimSensor(clock)
	driver, err := lidar.NewDriver(driverCfg, sensor.Factory(), lidar.WithClock(clock))
	if err != nil {
		log.Fatalf("failed to create driver: %v", err)
	}
	defer driver.Close()

	var rec *scanplot.Recorder
	if *plotDir != "" {
		outputDir := scanplot.MakeOutputDir(*plotDir, "sim", time.Now())
		if rec, err = scanplot.NewRecorder(outputDir, *plotEvery); err != nil {
			log.Fatalf("failed to create plot recorder: %v", err)
		}
		logger.Infof("writing scan plots to %s", outputDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := driver.Initialize(); err != nil {
		log.Fatalf("failed to initialise lidar: %v", err)
	}
	if err := driver.Start(); err != nil {
		log.Fatalf("failed to start scanning: %v", err)
	}

	stats := &ScanStats{}
	if err := acquire(ctx, driver, *scanLimit, *logInterval, stats, rec); err != nil {
		logger.Errorf("acquisition stopped: %v", err)
	}
	if err := driver.Stop(); err != nil {
		logger.Warnf("stop: %v", err)
	}
	logger.Infof("session %s finished: %s", driver.SessionID(), stats.Summary())
}
