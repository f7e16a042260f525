// Package task drives one run: it owns the control components and the simulator
// session and ticks them in a fixed order until the run ends.
package task

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/linecar-sim/clock"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/car"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/lap"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
	"github.com/tsinghua-fib-lab/linecar-sim/telemetry"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

var log = logrus.WithField("module", "task")

// Context run context
// Function: holds every stateful component of one run
// Note: the clock mirrors the simulation time and is only read by the Now RPC and logs
type Context struct {
	runID         string
	runtimeConfig *config.RuntimeConfig
	sim           sim.Simulator
	clock         *clock.Clock

	actuator   *car.SteeringActuator
	estimator  *car.LaneErrorEstimator
	controller *car.SteeringController
	finish     *lap.Tripwire
	stop       *lap.Tripwire // nil in single wire mode
	sequencer  *lap.Sequencer

	sink    telemetry.Sink
	summary *telemetry.Summary

	wheelDiameter float64
	startTime     float64
	lastTime      float64
	ticks         int64
}

// NewContext creates the run context
// Params: rc-runtime configuration, s-simulator binding, sink-telemetry output
// (nil records nothing but the summary)
func NewContext(rc *config.RuntimeConfig, s sim.Simulator, sink telemetry.Sink) *Context {
	c := rc.All
	ctx := &Context{
		runID:         uuid.NewString(),
		runtimeConfig: rc,
		sim:           s,
		clock:         clock.New(c.Run.FixedDT),
		actuator:      car.NewSteeringActuator(c.Steering),
		estimator:     car.NewLaneErrorEstimator(c.Lane),
		controller:    car.NewSteeringController(c.Controller),
		finish:        lap.NewTripwire(c.Tripwires.Finish),
		summary:       telemetry.NewSummary(),
	}
	if !rc.SingleWire() {
		ctx.stop = lap.NewTripwire(c.Tripwires.Stop)
	}
	if sink == nil {
		sink = telemetry.Discard{}
	}
	ctx.sink = telemetry.Multi{sink, ctx.summary}
	return ctx
}

// RunID identifies this run in telemetry.
func (ctx *Context) RunID() string {
	return ctx.runID
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}
