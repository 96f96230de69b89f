package lidar

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lidarscan/internal/monitoring"
	"github.com/banshee-data/lidarscan/internal/serialport"
	"github.com/banshee-data/lidarscan/internal/timeutil"
)

// Driver defaults for the supported sensor.
const (
	DefaultScanFrequencyHz    = 8.0
	DefaultAbnormalCheckCount = 4
	DefaultAbnormalCheckStep  = time.Second
	DefaultInfoRetryDelay     = 2 * time.Second
	DefaultMaxBatchPoints     = 2048
)

// State is the acquisition lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateValidated
	StateScanning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateValidated:
		return "validated"
	case StateScanning:
		return "scanning"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the static driver configuration. It is read at construction
// and stays fixed for the lifetime of the Driver.
type Config struct {
	Address       string
	BaudRate      int
	AutoReconnect bool

	ScanFrequencyHz float64
	MaxBatchPoints  int

	// AbnormalCheckCount is the probe's attempt budget (at least 2) and
	// AbnormalCheckStep the unit of its escalating wait.
	AbnormalCheckCount int
	AbnormalCheckStep  time.Duration
	// StartRetryDelay is waited before the single start retry.
	StartRetryDelay time.Duration
	// InfoRetryDelay is waited before re-issuing a failed health or
	// device-info query.
	InfoRetryDelay time.Duration

	Resample ResampleConfig
}

// DefaultConfig returns the configuration for the supported sensor on its
// default link.
func DefaultConfig() Config {
	return Config{
		BaudRate:           serialport.DefaultBaudRate,
		AutoReconnect:      true,
		ScanFrequencyHz:    DefaultScanFrequencyHz,
		MaxBatchPoints:     DefaultMaxBatchPoints,
		AbnormalCheckCount: DefaultAbnormalCheckCount,
		AbnormalCheckStep:  DefaultAbnormalCheckStep,
		InfoRetryDelay:     DefaultInfoRetryDelay,
		Resample:           DefaultResampleConfig(),
	}
}

// Driver is the acquisition lifecycle for one sensor. It exclusively owns
// its Transport handle. Driver is not safe for concurrent use; callers
// serialise access, typically from one acquisition goroutine.
type Driver struct {
	cfg       Config
	link      serialport.PortOptions
	factory   TransportFactory
	clock     timeutil.Clock
	resampler *Resampler

	transport Transport
	state     State
	sessionID string
	device    DeviceInfo
}

// DriverOption customises a Driver at construction.
type DriverOption func(*Driver)

// WithClock replaces the clock used for retry and back-off waits.
func WithClock(clock timeutil.Clock) DriverOption {
	return func(d *Driver) {
		d.clock = clock
	}
}

// NewDriver validates cfg and returns a Driver in StateDisconnected. No
// Transport is created until Connect.
func NewDriver(cfg Config, factory TransportFactory, opts ...DriverOption) (*Driver, error) {
	if factory == nil {
		return nil, fmt.Errorf("lidar driver needs a transport factory")
	}
	link, err := serialport.PortOptions{BaudRate: cfg.BaudRate}.Normalise()
	if err != nil {
		return nil, err
	}
	if cfg.ScanFrequencyHz <= 0 {
		cfg.ScanFrequencyHz = DefaultScanFrequencyHz
	}
	if cfg.MaxBatchPoints <= 0 {
		cfg.MaxBatchPoints = DefaultMaxBatchPoints
	}
	if cfg.AbnormalCheckCount < MinAbnormalCheckCount {
		cfg.AbnormalCheckCount = MinAbnormalCheckCount
	}
	resampler, err := NewResampler(cfg.Resample)
	if err != nil {
		return nil, fmt.Errorf("invalid resample config: %w", err)
	}
	cfg.Resample = resampler.Config()

	d := &Driver{
		cfg:       cfg,
		link:      link,
		factory:   factory,
		clock:     timeutil.RealClock{},
		resampler: resampler,
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return d.state }

// SessionID identifies the current initialise cycle in log lines.
func (d *Driver) SessionID() string { return d.sessionID }

// Device returns the identification read during the last successful
// validation.
func (d *Driver) Device() DeviceInfo { return d.device }

// Config returns the effective configuration.
func (d *Driver) Config() Config { return d.cfg }

// ScanPeriod is one rotation at the configured frequency; it is the back-off
// callers wait after ErrHardwareUnavailable.
func (d *Driver) ScanPeriod() time.Duration {
	return time.Duration(float64(time.Second) / d.cfg.ScanFrequencyHz)
}

// Initialize connects and validates the sensor. On any failure the handle
// is torn down and the Driver is left in StateDisconnected.
func (d *Driver) Initialize() error {
	if d.state == StateScanning {
		return fmt.Errorf("%w: stop scanning before re-initialising", ErrInvalidState)
	}
	d.sessionID = uuid.NewString()

	if err := d.Connect(); err != nil {
		d.teardown()
		return err
	}
	// a live link from an earlier cycle is validated again
	d.state = StateConnected

	if err := d.Validate(); err != nil {
		d.teardown()
		return err
	}
	return nil
}

// Connect creates the Transport if needed and opens the link. A transport
// that already reports connected is reused. Connect failures are returned
// as ErrTransport and never retried here.
func (d *Driver) Connect() error {
	if d.transport == nil {
		d.transport = d.factory()
		if d.transport == nil {
			return fmt.Errorf("%w: transport factory returned nil", ErrTransport)
		}
	}

	if d.transport.IsConnected() {
		if d.state == StateDisconnected {
			d.state = StateConnected
		}
		return nil
	}

	address := serialport.NormalizeAddress(d.cfg.Address)
	if err := d.transport.Connect(address, d.link.BaudRate); err != nil {
		monitoring.Logf("[lidar %s] cannot bind to %s at %d baud: %v", d.sessionID, address, d.link.BaudRate, err)
		return fmt.Errorf("%w: connect %s at %d baud: %w", ErrTransport, address, d.link.BaudRate, err)
	}
	d.state = StateConnected
	return nil
}

// Validate checks device health and model. Health other than good is a
// fatal ErrHardwareFault; any model but ModelS4 is ErrUnsupportedDevice.
func (d *Driver) Validate() error {
	if d.state != StateConnected || d.transport == nil {
		return fmt.Errorf("%w: validate from %s", ErrInvalidState, d.state)
	}

	// health is only reported while the motor is idle
	if err := d.transport.Stop(); err != nil {
		monitoring.Debugf("[lidar %s] pre-validation stop failed: %v", d.sessionID, err)
	}

	status, err := retryOnce(d, "health", d.transport.Health)
	if err != nil {
		return err
	}
	if status != HealthGood {
		monitoring.Logf("[lidar %s] health check reported %s", d.sessionID, status)
		return fmt.Errorf("%w: health status %s", ErrHardwareFault, status)
	}

	info, err := retryOnce(d, "device info", d.transport.DeviceInfo)
	if err != nil {
		return err
	}
	if info.Model != ModelS4 {
		monitoring.Logf("[lidar %s] %s is not supported", d.sessionID, info.Model)
		return fmt.Errorf("%w: %s", ErrUnsupportedDevice, info.Model)
	}

	d.device = info
	d.state = StateValidated
	monitoring.Logf("[lidar %s] connection established on %s at %d baud: model %s, firmware %d.%d, hardware %d, serial %s",
		d.sessionID, serialport.NormalizeAddress(d.cfg.Address), d.link.BaudRate, info.Model,
		info.FirmwareMajor(), info.FirmwareMinor(), info.HardwareVersion, info.SerialString())
	return nil
}

// retryOnce runs query and, if it fails, waits InfoRetryDelay and runs it
// once more.
func retryOnce[T any](d *Driver, what string, query func() (T, error)) (T, error) {
	v, err := query()
	if err == nil {
		return v, nil
	}
	monitoring.Debugf("[lidar %s] %s query failed, retrying: %v", d.sessionID, what, err)
	d.wait(d.cfg.InfoRetryDelay)

	v, err = query()
	if err != nil {
		return v, fmt.Errorf("%w: %s query: %w", ErrTransport, what, err)
	}
	return v, nil
}

// Start begins scanning. It is a no-op when already scanning. A failed
// start is retried once; once started, the abnormal-check probe must see
// data before the Driver reports StateScanning. Both failure kinds tear the
// handle down.
func (d *Driver) Start() error {
	if d.state == StateScanning && d.transport != nil && d.transport.IsScanning() {
		return nil
	}
	if d.transport == nil || (d.state != StateValidated && d.state != StateStopped && d.state != StateScanning) {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, d.state)
	}

	if err := d.transport.StartScan(); err != nil {
		monitoring.Debugf("[lidar %s] start failed, retrying: %v", d.sessionID, err)
		d.wait(d.cfg.StartRetryDelay)
		if err := d.transport.StartScan(); err != nil {
			monitoring.Logf("[lidar %s] failed to start scan mode: %v", d.sessionID, err)
			d.teardown()
			return fmt.Errorf("%w: %w: %w", ErrStartFailed, ErrTransport, err)
		}
	}

	if err := probeAbnormal(d.transport, d.clock, probeConfig{
		threshold: d.cfg.AbnormalCheckCount,
		step:      d.cfg.AbnormalCheckStep,
		maxBatch:  d.cfg.MaxBatchPoints,
	}); err != nil {
		if stopErr := d.transport.Stop(); stopErr != nil {
			monitoring.Debugf("[lidar %s] stop after failed probe: %v", d.sessionID, stopErr)
		}
		monitoring.Logf("[lidar %s] failed to turn on: %v", d.sessionID, err)
		d.teardown()
		return err
	}

	d.transport.SetAutoReconnect(d.cfg.AutoReconnect)
	d.state = StateScanning
	monitoring.Logf("[lidar %s] scanning at %.1f Hz", d.sessionID, d.cfg.ScanFrequencyHz)
	return nil
}

// Stop halts scanning. It is best effort and always succeeds at the
// lifecycle level.
func (d *Driver) Stop() error {
	if d.transport != nil {
		if err := d.transport.Stop(); err != nil {
			monitoring.Debugf("[lidar %s] stop: %v", d.sessionID, err)
		}
	}
	if d.state == StateScanning {
		d.state = StateStopped
		monitoring.Logf("[lidar %s] scanning stopped", d.sessionID)
	}
	return nil
}

// RequestScan fetches, orders and resamples one batch. When the Driver is
// not scanning it returns ErrHardwareUnavailable immediately; callers back
// off one ScanPeriod rather than spin.
func (d *Driver) RequestScan() (*Scan, error) {
	if !d.checkHardware() {
		return nil, ErrHardwareUnavailable
	}

	points, err := d.transport.FetchBatch(d.cfg.MaxBatchPoints)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch batch: %w", ErrTransport, err)
	}
	if err := d.transport.OrderByAngle(points); err != nil {
		return nil, fmt.Errorf("%w: order batch: %w", ErrTransport, err)
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: batch of %d points", ErrInsufficientData, len(points))
	}
	return d.resampler.Resample(points)
}

// checkHardware reports whether scans can be requested. A lost link with
// auto-reconnect disabled drops the Driver to StateDisconnected.
func (d *Driver) checkHardware() bool {
	if d.transport == nil || d.state != StateScanning {
		return false
	}
	if !d.transport.IsConnected() {
		if !d.cfg.AutoReconnect {
			monitoring.Logf("[lidar %s] transport lost its link", d.sessionID)
			d.teardown()
		}
		return false
	}
	return d.transport.IsScanning()
}

// Close tears the Transport down. Calling Close more than once is a no-op.
func (d *Driver) Close() error {
	d.teardown()
	return nil
}

// teardown disconnects and releases the handle exactly once.
func (d *Driver) teardown() {
	if d.transport != nil {
		if err := d.transport.Disconnect(); err != nil {
			monitoring.Debugf("[lidar %s] disconnect: %v", d.sessionID, err)
		}
		d.transport = nil
	}
	d.state = StateDisconnected
}

func (d *Driver) wait(delay time.Duration) {
	if delay > 0 {
		d.clock.Sleep(delay)
	}
}
