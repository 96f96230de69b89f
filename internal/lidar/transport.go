package lidar

// Transport is the byte-level link plus wire decoding for one sensor. The
// Driver owns exactly one Transport at a time and serialises every call.
type Transport interface {
	// Connect opens the link at address with the given baud rate.
	Connect(address string, baudRate int) error
	IsConnected() bool
	// Disconnect closes the link and releases its resources.
	Disconnect() error

	StartScan() error
	// Stop halts the motor and measurement stream.
	Stop() error
	IsScanning() bool

	// FetchBatch blocks until one rotation of decoded points is available,
	// returning at most maxCount points in capture order.
	FetchBatch(maxCount int) ([]RawPoint, error)
	// OrderByAngle sorts a batch in place by ascending angle.
	OrderByAngle(points []RawPoint) error

	Health() (HealthStatus, error)
	DeviceInfo() (DeviceInfo, error)

	// SetAutoReconnect lets the transport re-open a dropped link on its own.
	SetAutoReconnect(enabled bool)
}

// TransportFactory creates a fresh Transport handle. The Driver calls it on
// every Connect that finds no live handle.
type TransportFactory func() Transport
