package lidar

import (
	"fmt"
	"time"

	"github.com/banshee-data/lidarscan/internal/monitoring"
	"github.com/banshee-data/lidarscan/internal/timeutil"
)

// MinAbnormalCheckCount is the smallest number of probe fetches attempted.
const MinAbnormalCheckCount = 2

// probeConfig bounds one abnormal-check run.
type probeConfig struct {
	threshold int
	step      time.Duration
	maxBatch  int
}

// probeAbnormal fetches batches until one succeeds or threshold attempts
// have failed. Before attempt k (k > 0) it waits k*step, giving the motor
// time to spin up without hiding a truly blocked sensor.
func probeAbnormal(t Transport, clock timeutil.Clock, cfg probeConfig) error {
	threshold := cfg.threshold
	if threshold < MinAbnormalCheckCount {
		threshold = MinAbnormalCheckCount
	}

	var lastErr error
	for attempt := 0; attempt < threshold; attempt++ {
		if attempt > 0 {
			clock.Sleep(time.Duration(attempt) * cfg.step)
		}

		if _, err := t.FetchBatch(cfg.maxBatch); err != nil {
			lastErr = err
			monitoring.Debugf("[lidar] abnormal check %d/%d failed: %v", attempt+1, threshold, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrBlockedOrFaulty, threshold, lastErr)
}
