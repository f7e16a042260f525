package car_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/car"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

func newActuator() *car.SteeringActuator {
	return car.NewSteeringActuator(config.Default().Steering)
}

func TestApplyBounds(t *testing.T) {
	commands := []float64{-1000, -45, -30.5, -3, 0, 0.2, 7, 29.99, 31, 90, 1e6}
	dts := []float64{0.0001, 0.001, 0.005, 0.01, 0.011}
	const eps = 1e-9
	for _, dt := range dts {
		a := newActuator()
		for _, cmd := range commands {
			prev := a.Angle()
			got := a.Apply(cmd, dt)
			assert.LessOrEqual(t, math.Abs(got), car.ValidatedLimitDeg, "cmd=%v dt=%v", cmd, dt)
			assert.LessOrEqual(t, math.Abs(got-prev), dt*car.ValidatedSlewRateDegPerS+eps, "cmd=%v dt=%v", cmd, dt)
		}
	}
}

func TestApplyIsIdempotentAtTarget(t *testing.T) {
	a := newActuator()
	var got float64
	for range 20 {
		got = a.Apply(12, 0.01)
	}
	require.Equal(t, 12.0, got)
	for _, dt := range []float64{0.001, 0.01, 0.5} {
		assert.Equal(t, 12.0, a.Apply(12, dt))
	}
}

func TestApplySlewLimited(t *testing.T) {
	a := newActuator()
	// 3750 deg/s * 2 ms = 7.5 deg per tick
	assert.InDelta(t, 7.5, a.Apply(30, 0.002), 1e-9)
	assert.InDelta(t, 15, a.Apply(30, 0.002), 1e-9)
	assert.InDelta(t, 7.5, a.Apply(-30, 0.002), 1e-9)
}

func TestApplyClampsStalledTick(t *testing.T) {
	a := newActuator()
	// a 1 s tick would allow the full swing, the nominal 10 ms allows 37.5 deg which the limit caps
	assert.Equal(t, 30.0, a.Apply(100, 1))
	a.Reset()
	b := car.NewSteeringActuator(config.Steering{NominalDT: 0.001})
	assert.InDelta(t, 3.75, b.Apply(100, 1), 1e-9)

	diags := b.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, car.StalledTick, diags[0].Kind)
	assert.Equal(t, 1.0, diags[0].Requested)
}

func TestApplyIgnoresNonPositiveDT(t *testing.T) {
	a := newActuator()
	a.Apply(10, 0.01)
	assert.Equal(t, 10.0, a.Apply(-20, 0))
	assert.Equal(t, 10.0, a.Apply(-20, -1))
	assert.Equal(t, 10.0, a.Apply(math.NaN(), 0.01))
}

func TestOverridesRecorded(t *testing.T) {
	a := car.NewSteeringActuator(config.Steering{LimitDeg: 45, SlewRateDegPerS: 100})
	st := a.State()
	assert.Equal(t, car.ValidatedLimitDeg, st.LimitDeg)
	assert.Equal(t, car.ValidatedSlewRateDegPerS, st.SlewRateDegPerS)

	diags := a.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, car.Diagnostic{Kind: car.LimitOverridden, Requested: 45, Applied: 30}, diags[0])
	assert.Equal(t, car.SlewRateOverridden, diags[1].Kind)
	assert.Equal(t, 100.0, diags[1].Requested)

	assert.Empty(t, newActuator().Diagnostics(), "validated values are not a deviation")
}

func TestDeadband(t *testing.T) {
	a := car.NewSteeringActuator(config.Steering{DeadbandDeg: 1})
	assert.Equal(t, 0.0, a.Apply(0.5, 0.01))
	assert.Equal(t, 5.0, a.Apply(5, 0.01))
	assert.Equal(t, 5.0, a.Apply(5.9, 0.01))
	assert.Equal(t, 7.0, a.Apply(7, 0.01))
}

func TestDeadbandWiderThanSlewStep(t *testing.T) {
	// 0.2 ms ticks allow 0.75 degrees per call, less than the deadband
	a := car.NewSteeringActuator(config.Steering{DeadbandDeg: 1})
	var got float64
	for range 1000 {
		got = a.Apply(30, 0.0002)
	}
	// settles within one deadband of the command
	assert.InDelta(t, 30.0, got, 1.0)
}

func TestApplyFast(t *testing.T) {
	a := newActuator()
	assert.Equal(t, 30.0, a.ApplyFast(80, 0.0001))
	assert.Equal(t, -16.0, a.ApplyFast(-16, 0.0001))
	assert.Equal(t, -16.0, a.Angle())

	diags := a.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, car.FastSteering, diags[0].Kind)
	assert.Equal(t, 2.0, diags[0].Requested)
}

func TestAckermann(t *testing.T) {
	const w = 0.0755
	zero := car.Ackermann(0, w)
	assert.Equal(t, 0.0, zero.Left)
	assert.Equal(t, 0.0, zero.Right)

	for _, deg := range []float64{-30, -10, -1, -0.01, 0.01, 1, 10, 30} {
		theta := deg * math.Pi / 180
		got := car.Ackermann(theta, w)
		// one wheel turns further than the bicycle angle and the other less
		assert.Less(t, (got.Left-theta)*(got.Right-theta), 0.0, "theta=%v", deg)
		assert.Equal(t, math.Signbit(theta), math.Signbit(got.Left), "theta=%v", deg)
		assert.Equal(t, math.Signbit(theta), math.Signbit(got.Right), "theta=%v", deg)
		if theta > 0 {
			assert.Greater(t, got.Left, got.Right, "left is the inner wheel in a left turn")
		} else {
			assert.Greater(t, math.Abs(got.Right), math.Abs(got.Left), "right is the inner wheel in a right turn")
		}
	}
}

func TestAckermannMatchesReference(t *testing.T) {
	theta := 20 * math.Pi / 180
	got := car.Ackermann(theta, 0.0755)
	cot := 1 / math.Tan(theta)
	assert.InDelta(t, math.Atan(1/(cot-0.0755)), got.Left, 1e-12)
	assert.InDelta(t, math.Atan(1/(cot+0.0755)), got.Right, 1e-12)
	assert.InDelta(t, theta, got.Mean(), 0.01)
}
