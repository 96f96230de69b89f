package lidar

import "errors"

var (
	// ErrTransport reports that a Transport call (connect, start, stop,
	// fetch, query) failed.
	ErrTransport = errors.New("lidar transport error")

	// ErrHardwareFault reports a health check that did not come back good.
	ErrHardwareFault = errors.New("lidar hardware fault")

	// ErrUnsupportedDevice reports a device model this driver does not
	// operate.
	ErrUnsupportedDevice = errors.New("unsupported lidar model")

	// ErrStartFailed reports that starting the scan failed twice in a row.
	ErrStartFailed = errors.New("failed to start scan")

	// ErrBlockedOrFaulty reports that the sensor spun up but never returned
	// usable data within the abnormal-check budget.
	ErrBlockedOrFaulty = errors.New("lidar is blocked or the hardware is faulty")

	// ErrInsufficientData reports a batch with fewer than two usable points.
	ErrInsufficientData = errors.New("insufficient scan data")

	// ErrHardwareUnavailable is the transient "not currently scanning"
	// signal from RequestScan. Callers back off one scan period and retry.
	ErrHardwareUnavailable = errors.New("lidar is not scanning")

	// ErrInvalidState reports a lifecycle call made from the wrong state.
	ErrInvalidState = errors.New("invalid lidar lifecycle state")
)

// IsFatal reports whether err leaves the driver needing a fresh Initialize.
func IsFatal(err error) bool {
	return errors.Is(err, ErrHardwareFault) ||
		errors.Is(err, ErrUnsupportedDevice) ||
		errors.Is(err, ErrStartFailed) ||
		errors.Is(err, ErrBlockedOrFaulty)
}
