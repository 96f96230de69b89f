// Package sim provides a simulated spinning 2D lidar for demos and tests.
// The sensor sits inside an axis-aligned rectangular room and reports one
// ray-cast return per angular step, optionally while the platform yaws.
package sim

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/lidarscan/internal/lidar"
	"github.com/banshee-data/lidarscan/internal/timeutil"
)

var (
	// ErrConnectRefused is returned by Connect when RefuseConnect is set.
	ErrConnectRefused = errors.New("simulated port refused connection")
	// ErrNotConnected is returned by calls that need an open link.
	ErrNotConnected = errors.New("simulated sensor not connected")
	// ErrNotScanning is returned by FetchBatch while the motor is stopped.
	ErrNotScanning = errors.New("simulated sensor not scanning")
	// ErrStartRejected is returned for each injected start failure.
	ErrStartRejected = errors.New("simulated sensor rejected start")
	// ErrNoData is returned for each injected blocked rotation.
	ErrNoData = errors.New("simulated sensor returned no data")
)

// Sensor implements lidar.Transport against a simulated scene. Exported
// fields configure it and may be changed between calls.
type Sensor struct {
	mu    sync.Mutex
	clock timeutil.Clock
	rng   *rand.Rand

	// Scene
	RoomWidth  float64 // metres along X, room corner at the origin
	RoomHeight float64 // metres along Y
	PositionX  float64 // sensor position inside the room
	PositionY  float64

	// Sampling
	PointsPerTurn int
	FrequencyHz   float64
	YawRate       float64 // platform rotation, rad/s
	NoiseStdDev   float64 // metres
	DropoutRate   float64 // fraction of returns reported with no range

	// Identity
	Status lidar.HealthStatus
	Info   lidar.DeviceInfo

	// Failure injection
	RefuseConnect  bool
	StartFailures  int // StartScan calls to reject
	BlockedBatches int // FetchBatch calls to fail with ErrNoData
	DropLinkAfter  int // drop the link once after this many batches; 0 never

	// Internal state
	connected     bool
	scanning      bool
	autoReconnect bool
	dropped       bool
	droppedAt     time.Time
	batches       int
	scanStart     time.Time
	address       string
}

// NewSensor returns a healthy S4 in an 8 m × 5 m room, spinning at 8 Hz
// with 720 returns per turn. seed fixes the noise sequence.
func NewSensor(clock timeutil.Clock, seed int64) *Sensor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	info := lidar.DeviceInfo{
		Model:           lidar.ModelS4,
		FirmwareVersion: 0x0105,
		HardwareVersion: 3,
	}
	copy(info.Serial[:], []byte{2, 0, 2, 6, 0, 1, 0, 1, 0, 0, 0, 0, 0, 0, 4, 2})

	return &Sensor{
		clock:         clock,
		rng:           rand.New(rand.NewSource(seed)),
		RoomWidth:     8.0,
		RoomHeight:    5.0,
		PositionX:     3.0,
		PositionY:     2.0,
		PointsPerTurn: 720,
		FrequencyHz:   lidar.DefaultScanFrequencyHz,
		NoiseStdDev:   0.005,
		Status:        lidar.HealthGood,
		Info:          info,
	}
}

// Factory returns a lidar.TransportFactory that hands out s.
func (s *Sensor) Factory() lidar.TransportFactory {
	return func() lidar.Transport { return s }
}

// Address returns the address passed to the last successful Connect.
func (s *Sensor) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

func (s *Sensor) Connect(address string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RefuseConnect {
		return ErrConnectRefused
	}
	s.connected = true
	s.dropped = false
	s.address = address
	return nil
}

func (s *Sensor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkUpLocked()
}

// linkUpLocked restores a dropped link once a full rotation has passed,
// if auto-reconnect is on.
func (s *Sensor) linkUpLocked() bool {
	if !s.connected && s.dropped && s.autoReconnect &&
		!s.clock.Now().Before(s.droppedAt.Add(s.periodLocked())) {
		s.connected = true
		s.dropped = false
	}
	return s.connected
}

func (s *Sensor) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.scanning = false
	s.dropped = false
	return nil
}

func (s *Sensor) StartScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.linkUpLocked() {
		return ErrNotConnected
	}
	if s.StartFailures > 0 {
		s.StartFailures--
		return ErrStartRejected
	}
	if !s.scanning {
		s.scanning = true
		s.scanStart = s.clock.Now()
	}
	return nil
}

func (s *Sensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false
	return nil
}

func (s *Sensor) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// FetchBatch blocks for one rotation and returns its returns in capture
// order.
func (s *Sensor) FetchBatch(maxCount int) ([]lidar.RawPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.linkUpLocked() {
		return nil, ErrNotConnected
	}
	if !s.scanning {
		return nil, ErrNotScanning
	}

	period := s.periodLocked()
	start := s.clock.Now()
	s.clock.Sleep(period)

	if s.BlockedBatches > 0 {
		s.BlockedBatches--
		return nil, ErrNoData
	}

	perTurn := s.PointsPerTurn
	if perTurn <= 0 {
		perTurn = lidar.DefaultResolutionCount
	}
	n := perTurn
	if maxCount > 0 && n > maxCount {
		n = maxCount
	}
	points := make([]lidar.RawPoint, n)
	step := period / time.Duration(perTurn)
	heading0 := s.YawRate * start.Sub(s.scanStart).Seconds()

	for i := range points {
		dt := time.Duration(i) * step
		sensorAngle := float64(i) * 2 * math.Pi / float64(perTurn)
		yaw := s.YawRate * dt.Seconds()

		dist := s.rangeAtLocked(heading0 + yaw + sensorAngle)
		if s.NoiseStdDev > 0 {
			dist += s.rng.NormFloat64() * s.NoiseStdDev
		}
		if dist < 0 || (s.DropoutRate > 0 && s.rng.Float64() < s.DropoutRate) {
			dist = 0
		}

		points[i] = lidar.RawPoint{
			Angle:     sensorAngle,
			Distance:  dist,
			Intensity: intensityFor(dist),
			Timestamp: start.Add(dt).UnixNano(),
			// carries the capture frame back to the first return's frame
			Motion: lidar.MotionDelta{DTheta: -yaw},
		}
	}

	s.batches++
	if s.DropLinkAfter > 0 && s.batches == s.DropLinkAfter {
		s.connected = false
		s.dropped = true
		s.droppedAt = s.clock.Now()
	}
	return points, nil
}

func (s *Sensor) OrderByAngle(points []lidar.RawPoint) error {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Angle < points[j].Angle
	})
	return nil
}

func (s *Sensor) Health() (lidar.HealthStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.linkUpLocked() {
		return lidar.HealthError, ErrNotConnected
	}
	return s.Status, nil
}

func (s *Sensor) DeviceInfo() (lidar.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.linkUpLocked() {
		return lidar.DeviceInfo{}, ErrNotConnected
	}
	return s.Info, nil
}

func (s *Sensor) SetAutoReconnect(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReconnect = enabled
}

// RangeAt returns the noiseless distance to the room wall along the world
// bearing angle (radians).
func (s *Sensor) RangeAt(angle float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rangeAtLocked(angle)
}

func (s *Sensor) rangeAtLocked(angle float64) float64 {
	dx, dy := math.Cos(angle), math.Sin(angle)
	best := math.Inf(1)
	if dx > 0 {
		best = math.Min(best, (s.RoomWidth-s.PositionX)/dx)
	} else if dx < 0 {
		best = math.Min(best, -s.PositionX/dx)
	}
	if dy > 0 {
		best = math.Min(best, (s.RoomHeight-s.PositionY)/dy)
	} else if dy < 0 {
		best = math.Min(best, -s.PositionY/dy)
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

func (s *Sensor) periodLocked() time.Duration {
	hz := s.FrequencyHz
	if hz <= 0 {
		hz = lidar.DefaultScanFrequencyHz
	}
	return time.Duration(float64(time.Second) / hz)
}

// intensityFor fades with distance: closer returns are brighter.
func intensityFor(dist float64) uint16 {
	if dist <= 0 {
		return 0
	}
	intensity := 200 - int(dist*10)
	if intensity < 50 {
		intensity = 50
	}
	return uint16(intensity)
}
