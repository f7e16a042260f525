package car

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

const (
	// ValidatedLimitDeg is the servo amplitude limit measured on the physical car
	ValidatedLimitDeg = 30.0
	// ValidatedSlewRateDegPerS is the servo speed, 60 degrees in 16 ms
	ValidatedSlewRateDegPerS = 60 / 0.016

	defaultMaxDT     = 0.011 // a 100 Hz loop that took longer than this stalled
	defaultNominalDT = 0.01
)

// DiagnosticKind classifies a deviation the actuator corrected.
type DiagnosticKind int

const (
	LimitOverridden DiagnosticKind = iota
	SlewRateOverridden
	StalledTick
	FastSteering
)

func (k DiagnosticKind) String() string {
	switch k {
	case LimitOverridden:
		return "limit_overridden"
	case SlewRateOverridden:
		return "slew_rate_overridden"
	case StalledTick:
		return "stalled_tick"
	case FastSteering:
		return "fast_steering"
	default:
		return fmt.Sprintf("diagnostic(%d)", int(k))
	}
}

// Diagnostic is one corrected deviation: what the caller asked for and what was used instead.
type Diagnostic struct {
	Kind      DiagnosticKind
	Requested float64
	Applied   float64
}

// SteeringState is the persistent servo state.
// |CurrentAngleDeg| <= LimitDeg holds after every update.
type SteeringState struct {
	CurrentAngleDeg float64
	LimitDeg        float64
	SlewRateDegPerS float64
	DeadbandDeg     float64 // changes smaller than this are not realized, 0 disables
}

// SteeringActuator steering servo model
// Function: turns a desired steering angle into one the servo can realize, rate (slew)
// limiting first and amplitude limiting second
// Note: state is only mutated by Apply/ApplyFast and lives as long as the vehicle session
type SteeringActuator struct {
	state SteeringState

	maxDT     float64
	nominalDT float64

	diagnostics  []Diagnostic // construction-time overrides
	stalledTicks int
	fastCalls    int
}

// NewSteeringActuator creates a steering actuator
// Function: validates the configuration and initializes the state
// Params: c-steering configuration
// Algorithm:
// 1. the amplitude limit and slew rate are calibrated constants, 0 selects them
// 2. any other configured value is overridden by the constant and recorded as a diagnostic
// 3. the stall threshold and nominal tick default to a 100 Hz control loop
func NewSteeringActuator(c config.Steering) *SteeringActuator {
	a := &SteeringActuator{
		state: SteeringState{
			LimitDeg:        ValidatedLimitDeg,
			SlewRateDegPerS: ValidatedSlewRateDegPerS,
			DeadbandDeg:     math.Max(c.DeadbandDeg, 0),
		},
		maxDT:     defaultMaxDT,
		nominalDT: defaultNominalDT,
	}
	if c.LimitDeg != 0 && c.LimitDeg != ValidatedLimitDeg {
		a.override(LimitOverridden, c.LimitDeg, ValidatedLimitDeg)
	}
	if c.SlewRateDegPerS != 0 && c.SlewRateDegPerS != ValidatedSlewRateDegPerS {
		a.override(SlewRateOverridden, c.SlewRateDegPerS, ValidatedSlewRateDegPerS)
	}
	if c.MaxDT > 0 {
		a.maxDT = c.MaxDT
	}
	if c.NominalDT > 0 {
		a.nominalDT = c.NominalDT
	}
	return a
}

func (a *SteeringActuator) override(kind DiagnosticKind, requested, applied float64) {
	a.diagnostics = append(a.diagnostics, Diagnostic{Kind: kind, Requested: requested, Applied: applied})
	log.Warnf("steering: %v requested %v, using validated %v", kind, requested, applied)
}

// Apply sets the steering angle with slew limiting
// Function: the production steering update
// Params: commandedDeg-desired angle (degrees, unconstrained), dt-seconds since the previous call
// Returns: the realized angle (degrees)
// Algorithm:
// 1. a dt above the stall threshold is replaced by the nominal tick
// 2. a command within the deadband of the current angle is not acted on
// 3. clamp to [current-dt*slew, current+dt*slew]
// 4. clamp to [-limit, limit]
func (a *SteeringActuator) Apply(commandedDeg, dt float64) float64 {
	if dt > a.maxDT {
		a.stalledTicks++
		log.Warnf("steering: high dt %v, using %v", dt, a.nominalDT)
		dt = a.nominalDT
	}
	if dt < 0 {
		dt = 0
	}
	cur := a.state.CurrentAngleDeg
	if math.IsNaN(commandedDeg) {
		commandedDeg = cur
	}
	if math.Abs(commandedDeg-cur) < a.state.DeadbandDeg {
		commandedDeg = cur
	}
	maxDelta := dt * a.state.SlewRateDegPerS
	angle := lo.Clamp(commandedDeg, cur-maxDelta, cur+maxDelta)
	angle = lo.Clamp(angle, -a.state.LimitDeg, a.state.LimitDeg)
	a.state.CurrentAngleDeg = angle
	return angle
}

// ApplyFast sets the steering angle without slew limiting.
// Diagnostic use only (e.g. measuring the turning radius); every call is counted
// as a deviation from production behaviour.
func (a *SteeringActuator) ApplyFast(commandedDeg, dt float64) float64 {
	if a.fastCalls == 0 {
		log.Warnf("steering: fast steering active, slew limiting disabled (dt=%v)", dt)
	}
	a.fastCalls++
	if math.IsNaN(commandedDeg) {
		commandedDeg = a.state.CurrentAngleDeg
	}
	angle := lo.Clamp(commandedDeg, -a.state.LimitDeg, a.state.LimitDeg)
	a.state.CurrentAngleDeg = angle
	return angle
}

// Reset centres the steering for a new session.
func (a *SteeringActuator) Reset() {
	a.state.CurrentAngleDeg = 0
}

// Angle returns the last realized angle in degrees.
func (a *SteeringActuator) Angle() float64 {
	return a.state.CurrentAngleDeg
}

func (a *SteeringActuator) State() SteeringState {
	return a.state
}

// Diagnostics returns the construction-time overrides followed by one aggregated
// entry per runtime deviation kind that occurred.
func (a *SteeringActuator) Diagnostics() []Diagnostic {
	out := append([]Diagnostic(nil), a.diagnostics...)
	if a.stalledTicks > 0 {
		out = append(out, Diagnostic{Kind: StalledTick, Requested: float64(a.stalledTicks), Applied: a.nominalDT})
	}
	if a.fastCalls > 0 {
		out = append(out, Diagnostic{Kind: FastSteering, Requested: float64(a.fastCalls)})
	}
	return out
}
