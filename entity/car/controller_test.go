package car_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/car"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

func TestControllerProportional(t *testing.T) {
	c := car.NewSteeringController(config.Controller{Kp: 200})
	assert.Equal(t, -20.0, c.Step(0.1, 0.01))
}

func TestControllerDerivative(t *testing.T) {
	c := car.NewSteeringController(config.Controller{Kp: 200, Kd: 20})
	c.Step(0.1, 0.01)
	// -200*0 - 20*((0-0.1)/0.01) - 0
	assert.InDelta(t, 200.0, c.Step(0, 0.01), 1e-9)
}

func TestControllerZeroDT(t *testing.T) {
	c := car.NewSteeringController(config.Controller{Kp: 200, Kd: 20, Ki: 5})
	assert.Equal(t, -20.0, c.Step(0.1, 0))
	assert.Equal(t, car.ControlState{PreviousLateralErrorM: 0.1}, c.State())
}

func TestControllerIntegralUnbounded(t *testing.T) {
	c := car.NewSteeringController(config.Controller{Ki: 10})
	var out float64
	for range 1000 {
		out = c.Step(0.5, 0.01)
	}
	// no anti-windup: 1000 * 0.01 * 0.5 = 5 m·s
	assert.InDelta(t, 5.0, c.State().IntegralErrorMS, 1e-9)
	assert.InDelta(t, -50.0, out, 1e-9)

	c.Reset()
	assert.Equal(t, car.ControlState{}, c.State())
}
