package lidar

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/lidarscan/internal/monitoring"
)

// Run drives the acquisition loop on the caller's goroutine, passing every
// scan to handle. It backs off one ScanPeriod whenever the sensor is not
// scanning and skips batches with too little data. Run returns when ctx is
// done, when handle fails, when the link is gone for good, or on any other
// driver error.
func (d *Driver) Run(ctx context.Context, handle func(*Scan) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		scan, err := d.RequestScan()
		switch {
		case errors.Is(err, ErrHardwareUnavailable):
			if d.state == StateDisconnected {
				return fmt.Errorf("%w: driver is disconnected", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.clock.After(d.ScanPeriod()):
			}
			continue
		case errors.Is(err, ErrInsufficientData):
			monitoring.Debugf("[lidar %s] skipping batch: %v", d.sessionID, err)
			continue
		case err != nil:
			return err
		}

		if err := handle(scan); err != nil {
			return err
		}
	}
}
