package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/lidarscan/internal/lidar"
)

// DefaultConfigPath is the path to the canonical scan defaults file.
const DefaultConfigPath = "config/scan.defaults.json"

// ScanConfig is the on-disk acquisition configuration. Every field is
// optional; the Get* accessors fall back to the sensor defaults.
type ScanConfig struct {
	// Link params
	Port          *string `json:"port,omitempty"`
	BaudRate      *int    `json:"baud_rate,omitempty"`
	AutoReconnect *bool   `json:"auto_reconnect,omitempty"`

	// Output grid params
	FixedResolution *bool     `json:"fixed_resolution,omitempty"`
	ResolutionCount *int      `json:"resolution_count,omitempty"`
	FixedCount      *int      `json:"fixed_count,omitempty"`
	MinAngleDeg     *float64  `json:"min_angle_deg,omitempty"`
	MaxAngleDeg     *float64  `json:"max_angle_deg,omitempty"`
	MinRange        *float64  `json:"min_range,omitempty"`
	MaxRange        *float64  `json:"max_range,omitempty"`
	IgnoreZones     []float64 `json:"ignore_zones,omitempty"`

	// Lifecycle params
	ScanFrequencyHz    *float64 `json:"scan_frequency_hz,omitempty"`
	AbnormalCheckCount *int     `json:"abnormal_check_count,omitempty"`
	AbnormalCheckStep  *string  `json:"abnormal_check_step,omitempty"` // duration string like "1s"
	StartRetryDelay    *string  `json:"start_retry_delay,omitempty"`
	InfoRetryDelay     *string  `json:"info_retry_delay,omitempty"`
	MaxBatchPoints     *int     `json:"max_batch_points,omitempty"`

	// Motion compensation params
	MotionCompensation *bool        `json:"motion_compensation,omitempty"`
	Mount              *MountConfig `json:"mount,omitempty"`
}

// MountConfig places the sensor on the platform. Heading is in degrees.
type MountConfig struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HeadingDeg float64 `json:"heading_deg"`
}

// EmptyScanConfig returns a ScanConfig with every field unset.
func EmptyScanConfig() *ScanConfig {
	return &ScanConfig{}
}

// LoadScanConfig loads a ScanConfig from a JSON file. Omitted fields keep
// their defaults, so partial files are fine.
func LoadScanConfig(path string) (*ScanConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScanConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. Panics if the file cannot be loaded; intended for
// tests.
func MustLoadDefaultConfig() *ScanConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/lidar/sim/
		"../" + DefaultConfigPath,       // from cmd/
	}
	for _, path := range candidates {
		if cfg, err := LoadScanConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the set values are usable.
func (c *ScanConfig) Validate() error {
	if c.BaudRate != nil && *c.BaudRate < 0 {
		return fmt.Errorf("baud_rate must be non-negative, got %d", *c.BaudRate)
	}
	if c.ResolutionCount != nil && *c.ResolutionCount <= 0 {
		return fmt.Errorf("resolution_count must be positive, got %d", *c.ResolutionCount)
	}

	for name, v := range map[string]*float64{"min_angle_deg": c.MinAngleDeg, "max_angle_deg": c.MaxAngleDeg} {
		if v != nil && (*v < -180 || *v > 180) {
			return fmt.Errorf("%s must be between -180 and 180, got %f", name, *v)
		}
	}

	if c.MinRange != nil && *c.MinRange < 0 {
		return fmt.Errorf("min_range must be non-negative, got %f", *c.MinRange)
	}
	if c.GetMaxRange() <= c.GetMinRange() {
		return fmt.Errorf("max_range %f must exceed min_range %f", c.GetMaxRange(), c.GetMinRange())
	}

	if err := lidar.IgnoreZones(c.IgnoreZones).Validate(); err != nil {
		return fmt.Errorf("ignore_zones: %w", err)
	}

	if c.ScanFrequencyHz != nil && *c.ScanFrequencyHz <= 0 {
		return fmt.Errorf("scan_frequency_hz must be positive, got %f", *c.ScanFrequencyHz)
	}
	if c.AbnormalCheckCount != nil && *c.AbnormalCheckCount < 0 {
		return fmt.Errorf("abnormal_check_count must be non-negative, got %d", *c.AbnormalCheckCount)
	}
	if c.MaxBatchPoints != nil && *c.MaxBatchPoints <= 0 {
		return fmt.Errorf("max_batch_points must be positive, got %d", *c.MaxBatchPoints)
	}

	for name, v := range map[string]*string{
		"abnormal_check_step": c.AbnormalCheckStep,
		"start_retry_delay":   c.StartRetryDelay,
		"info_retry_delay":    c.InfoRetryDelay,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	return nil
}

// parseDurationOr parses s, falling back to def when unset or unparsable.
func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetPort returns the port value or the default.
func (c *ScanConfig) GetPort() string {
	if c.Port == nil {
		return "/dev/ttyUSB0"
	}
	return *c.Port
}

// GetBaudRate returns the baud_rate value or the default.
func (c *ScanConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetAutoReconnect returns the auto_reconnect value or the default.
func (c *ScanConfig) GetAutoReconnect() bool {
	if c.AutoReconnect == nil {
		return true
	}
	return *c.AutoReconnect
}

// GetFixedResolution returns the fixed_resolution value or the default.
func (c *ScanConfig) GetFixedResolution() bool {
	if c.FixedResolution == nil {
		return true
	}
	return *c.FixedResolution
}

// GetResolutionCount returns the resolution_count value or the default.
func (c *ScanConfig) GetResolutionCount() int {
	if c.ResolutionCount == nil {
		return lidar.DefaultResolutionCount
	}
	return *c.ResolutionCount
}

// GetFixedCount returns the fixed_count value or the default (-1, unused).
func (c *ScanConfig) GetFixedCount() int {
	if c.FixedCount == nil {
		return -1
	}
	return *c.FixedCount
}

// GetMinAngleDeg returns the min_angle_deg value or the default.
func (c *ScanConfig) GetMinAngleDeg() float64 {
	if c.MinAngleDeg == nil {
		return lidar.DefaultMinAngleDeg
	}
	return *c.MinAngleDeg
}

// GetMaxAngleDeg returns the max_angle_deg value or the default.
func (c *ScanConfig) GetMaxAngleDeg() float64 {
	if c.MaxAngleDeg == nil {
		return lidar.DefaultMaxAngleDeg
	}
	return *c.MaxAngleDeg
}

// GetMinRange returns the min_range value or the default.
func (c *ScanConfig) GetMinRange() float64 {
	if c.MinRange == nil {
		return lidar.DefaultMinRange
	}
	return *c.MinRange
}

// GetMaxRange returns the max_range value or the default.
func (c *ScanConfig) GetMaxRange() float64 {
	if c.MaxRange == nil {
		return lidar.DefaultMaxRange
	}
	return *c.MaxRange
}

// GetScanFrequencyHz returns the scan_frequency_hz value or the default.
func (c *ScanConfig) GetScanFrequencyHz() float64 {
	if c.ScanFrequencyHz == nil {
		return lidar.DefaultScanFrequencyHz
	}
	return *c.ScanFrequencyHz
}

// GetAbnormalCheckCount returns the abnormal_check_count value or the default.
func (c *ScanConfig) GetAbnormalCheckCount() int {
	if c.AbnormalCheckCount == nil {
		return lidar.DefaultAbnormalCheckCount
	}
	return *c.AbnormalCheckCount
}

// GetAbnormalCheckStep returns abnormal_check_step as a time.Duration.
func (c *ScanConfig) GetAbnormalCheckStep() time.Duration {
	return parseDurationOr(c.AbnormalCheckStep, lidar.DefaultAbnormalCheckStep)
}

// GetStartRetryDelay returns start_retry_delay as a time.Duration.
func (c *ScanConfig) GetStartRetryDelay() time.Duration {
	return parseDurationOr(c.StartRetryDelay, 0)
}

// GetInfoRetryDelay returns info_retry_delay as a time.Duration.
func (c *ScanConfig) GetInfoRetryDelay() time.Duration {
	return parseDurationOr(c.InfoRetryDelay, lidar.DefaultInfoRetryDelay)
}

// GetMaxBatchPoints returns the max_batch_points value or the default.
func (c *ScanConfig) GetMaxBatchPoints() int {
	if c.MaxBatchPoints == nil {
		return lidar.DefaultMaxBatchPoints
	}
	return *c.MaxBatchPoints
}

// GetMotionCompensation returns the motion_compensation value or the default.
func (c *ScanConfig) GetMotionCompensation() bool {
	if c.MotionCompensation == nil {
		return true
	}
	return *c.MotionCompensation
}

// GetMount returns the mount pose with the heading converted to radians.
func (c *ScanConfig) GetMount() lidar.MountPose {
	if c.Mount == nil {
		return lidar.MountPose{}
	}
	return lidar.MountPose{
		X:     c.Mount.X,
		Y:     c.Mount.Y,
		Theta: c.Mount.HeadingDeg * math.Pi / 180.0,
	}
}

// DriverConfig resolves every field into a lidar.Config.
func (c *ScanConfig) DriverConfig() (lidar.Config, error) {
	mount, err := lidar.NewSensorMount(c.GetMount())
	if err != nil {
		return lidar.Config{}, err
	}

	cfg := lidar.DefaultConfig()
	cfg.Address = c.GetPort()
	cfg.BaudRate = c.GetBaudRate()
	cfg.AutoReconnect = c.GetAutoReconnect()
	cfg.ScanFrequencyHz = c.GetScanFrequencyHz()
	cfg.MaxBatchPoints = c.GetMaxBatchPoints()
	cfg.AbnormalCheckCount = c.GetAbnormalCheckCount()
	cfg.AbnormalCheckStep = c.GetAbnormalCheckStep()
	cfg.StartRetryDelay = c.GetStartRetryDelay()
	cfg.InfoRetryDelay = c.GetInfoRetryDelay()
	cfg.Resample = lidar.ResampleConfig{
		FixedResolution:    c.GetFixedResolution(),
		ResolutionCount:    c.GetResolutionCount(),
		FixedCount:         c.GetFixedCount(),
		MinAngleDeg:        c.GetMinAngleDeg(),
		MaxAngleDeg:        c.GetMaxAngleDeg(),
		MinRange:           c.GetMinRange(),
		MaxRange:           c.GetMaxRange(),
		IgnoreZones:        append(lidar.IgnoreZones(nil), c.IgnoreZones...),
		Mount:              mount,
		MotionCompensation: c.GetMotionCompensation(),
	}
	return cfg, nil
}
