package clock

import (
	"fmt"
	"sync"
)

// Clock is the simulation clock shared by the simulator (which advances it by a fixed DT) and the
// control loop (which follows the time it measures from the simulator).
// Safe for concurrent readers, e.g. the Now RPC.
type Clock struct {
	mu sync.RWMutex

	DT           float64 // seconds per simulation step
	InternalStep int64   // steps taken since Init
	T            float64 // current time (seconds)
}

// New creates a clock with a fixed step and initializes it.
func New(dt float64) *Clock {
	c := &Clock{DT: dt}
	c.Init()
	return c
}

// Init resets the clock to step 0.
func (c *Clock) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InternalStep = 0
	c.T = 0
}

// Tick advances one fixed step and returns the new time.
// T is recomputed from the step count so it does not accumulate rounding error.
func (c *Clock) Tick() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
	return c.T
}

// Sync counts one step at an externally measured time.
func (c *Clock) Sync(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InternalStep++
	c.T = t
}

// Now returns the current time in seconds.
func (c *Clock) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.T
}

// Step returns the number of steps since Init.
func (c *Clock) Step() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.InternalStep
}

// String formats the current time as HH:MM:SS.mmm
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// GetHourMinuteSecond splits the current time, seconds keep the sub-second part.
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t := c.Now()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}
