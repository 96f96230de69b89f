package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/lidarscan/internal/config"
	"github.com/banshee-data/lidarscan/internal/lidar"
	"github.com/banshee-data/lidarscan/internal/lidar/scanplot"
	"github.com/banshee-data/lidarscan/internal/timeutil"
)

func TestFlagDefaults(t *testing.T) {
	if *configFile != "" {
		t.Errorf("expected empty -config default, got %q", *configFile)
	}
	if *scanLimit != 0 {
		t.Errorf("expected -scans default 0, got %d", *scanLimit)
	}
	if *plotEvery != 8 {
		t.Errorf("expected -plot-every default 8, got %d", *plotEvery)
	}
	if *noise != 0.005 {
		t.Errorf("expected -noise default 0.005, got %f", *noise)
	}
	if *listPorts {
		t.Error("expected -list-ports default false")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.EmptyScanConfig()
	applyOverrides(cfg, "", 0)
	if cfg.Port != nil || cfg.BaudRate != nil {
		t.Fatalf("zero overrides should leave the config untouched: %+v", cfg)
	}

	applyOverrides(cfg, "COM9", 230400)
	if cfg.GetPort() != "COM9" {
		t.Errorf("GetPort() = %q, want COM9", cfg.GetPort())
	}
	if cfg.GetBaudRate() != 230400 {
		t.Errorf("GetBaudRate() = %d, want 230400", cfg.GetBaudRate())
	}
}

func TestLoadScanConfig(t *testing.T) {
	cfg, err := loadScanConfig("")
	if err != nil {
		t.Fatalf("empty path should give defaults: %v", err)
	}
	if cfg.GetResolutionCount() != lidar.DefaultResolutionCount {
		t.Errorf("GetResolutionCount() = %d", cfg.GetResolutionCount())
	}

	path := filepath.Join(t.TempDir(), "scan.json")
	if err := os.WriteFile(path, []byte(`{"resolution_count": 360}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadScanConfig(path)
	if err != nil {
		t.Fatalf("loadScanConfig failed: %v", err)
	}
	if cfg.GetResolutionCount() != 360 {
		t.Errorf("GetResolutionCount() = %d, want 360", cfg.GetResolutionCount())
	}

	if _, err := loadScanConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScanStats(t *testing.T) {
	stats := &ScanStats{}
	if got := stats.Summary(); got != "0 scans, 0/0 samples valid (0.0%)" {
		t.Errorf("Summary() = %q", got)
	}

	scan := &lidar.Scan{Ranges: []float64{1, 0, 2, 0}, Intensities: make([]float64, 4)}
	stats.Add(scan)
	stats.Add(scan)
	if stats.Scans() != 2 {
		t.Errorf("Scans() = %d, want 2", stats.Scans())
	}
	if got := stats.Summary(); got != "2 scans, 4/8 samples valid (50.0%)" {
		t.Errorf("Summary() = %q", got)
	}
}

func newTestDriver(t *testing.T) *lidar.Driver {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sensor := newSimSensor(clock)

	cfg, err := config.EmptyScanConfig().DriverConfig()
	if err != nil {
		t.Fatalf("DriverConfig failed: %v", err)
	}
	d, err := lidar.NewDriver(cfg, sensor.Factory(), lidar.WithClock(clock))
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return d
}

func TestAcquireStopsAtLimit(t *testing.T) {
	d := newTestDriver(t)
	defer d.Close()

	stats := &ScanStats{}
	if err := acquire(context.Background(), d, 5, 2, stats, nil); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if stats.Scans() != 5 {
		t.Errorf("Scans() = %d, want 5", stats.Scans())
	}
}

func TestAcquireWithRecorder(t *testing.T) {
	d := newTestDriver(t)
	defer d.Close()

	rec, err := scanplot.NewRecorder(filepath.Join(t.TempDir(), "plots"), 2)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	stats := &ScanStats{}
	if err := acquire(context.Background(), d, 3, 0, stats, rec); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if rec.Written() != 2 {
		t.Errorf("Written() = %d, want 2", rec.Written())
	}
}

func TestAcquireReturnsDriverErrors(t *testing.T) {
	d := newTestDriver(t)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	err := acquire(context.Background(), d, 1, 0, &ScanStats{}, nil)
	if err == nil {
		t.Fatal("expected an error from a closed driver")
	}
}
