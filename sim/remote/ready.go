package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/linecar-sim/sim"
)

// WaitReady polls Time until the simulation answers
// Params: retries-number of polls before giving up, interval-pause between polls
// Returns: the simulation time at readiness
// Note: ErrNotRunning and transport errors both count as "not ready yet"
func WaitReady(ctx context.Context, s sim.Simulator, retries int, interval time.Duration) (float64, error) {
	var lastErr error
	for i := 0; retries <= 0 || i < retries; i++ {
		t, err := s.Time(ctx)
		if err == nil {
			return t, nil
		}
		lastErr = err
		if errors.Is(err, sim.ErrNotRunning) {
			log.Infof("waiting for simulation start (%d)", i+1)
		} else {
			log.Warnf("simulator not reachable: %v", err)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(interval):
		}
	}
	return 0, fmt.Errorf("simulator not ready after %d polls: %w", retries, lastErr)
}
