package lidar

import (
	"errors"
	"sort"
	"sync"
)

// ErrMockLinkDown is returned by MockTransport calls made while it is not
// connected.
var ErrMockLinkDown = errors.New("mock transport not connected")

// MockTransport implements Transport with scripted behaviour for testing.
// Error queues are consumed one entry per call; a nil entry or an empty
// queue means the call succeeds.
type MockTransport struct {
	mu sync.Mutex

	// ConnectError is returned by every Connect call if set.
	ConnectError error
	// StartErrors scripts successive StartScan results.
	StartErrors []error
	// StopError is returned by every Stop call if set.
	StopError error
	// DisconnectError is returned by every Disconnect call if set.
	DisconnectError error

	// FetchErrors scripts successive FetchBatch failures.
	FetchErrors []error
	// Batches are returned by successful fetches in order; the last batch
	// repeats once the queue is down to one.
	Batches [][]RawPoint
	// OrderError is returned by OrderByAngle if set.
	OrderError error

	// Status is reported by Health; HealthErrors scripts query failures.
	Status       HealthStatus
	HealthErrors []error
	// Info is reported by DeviceInfo; InfoErrors scripts query failures.
	Info       DeviceInfo
	InfoErrors []error

	Connected     bool
	Scanning      bool
	AutoReconnect bool

	// Call records.
	ConnectCalls    int
	DisconnectCalls int
	StartCalls      int
	StopCalls       int
	FetchCalls      int
	HealthCalls     int
	InfoCalls       int
	LastAddress     string
	LastBaudRate    int
}

// NewMockTransport returns a healthy, supported, disconnected mock.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Status: HealthGood,
		Info: DeviceInfo{
			Model:           ModelS4,
			FirmwareVersion: 0x0102,
			HardwareVersion: 3,
		},
	}
}

func popError(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (m *MockTransport) Connect(address string, baudRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectCalls++
	m.LastAddress = address
	m.LastBaudRate = baudRate
	if m.ConnectError != nil {
		return m.ConnectError
	}
	m.Connected = true
	return nil
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Connected
}

func (m *MockTransport) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DisconnectCalls++
	m.Connected = false
	m.Scanning = false
	return m.DisconnectError
}

func (m *MockTransport) StartScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	if !m.Connected {
		return ErrMockLinkDown
	}
	if err := popError(&m.StartErrors); err != nil {
		return err
	}
	m.Scanning = true
	return nil
}

func (m *MockTransport) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls++
	m.Scanning = false
	return m.StopError
}

func (m *MockTransport) IsScanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Scanning
}

func (m *MockTransport) FetchBatch(maxCount int) ([]RawPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if !m.Connected {
		return nil, ErrMockLinkDown
	}
	if err := popError(&m.FetchErrors); err != nil {
		return nil, err
	}
	if len(m.Batches) == 0 {
		return nil, nil
	}
	batch := m.Batches[0]
	if len(m.Batches) > 1 {
		m.Batches = m.Batches[1:]
	}
	if maxCount > 0 && len(batch) > maxCount {
		batch = batch[:maxCount]
	}
	out := make([]RawPoint, len(batch))
	copy(out, batch)
	return out, nil
}

func (m *MockTransport) OrderByAngle(points []RawPoint) error {
	if m.OrderError != nil {
		return m.OrderError
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Angle < points[j].Angle
	})
	return nil
}

func (m *MockTransport) Health() (HealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HealthCalls++
	if err := popError(&m.HealthErrors); err != nil {
		return HealthError, err
	}
	return m.Status, nil
}

func (m *MockTransport) DeviceInfo() (DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls++
	if err := popError(&m.InfoErrors); err != nil {
		return DeviceInfo{}, err
	}
	return m.Info, nil
}

func (m *MockTransport) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AutoReconnect = enabled
}
