package car

import "github.com/tsinghua-fib-lab/linecar-sim/utils/config"

// ControlState is the error history of the steering law.
type ControlState struct {
	PreviousLateralErrorM float64
	IntegralErrorMS       float64
}

// SteeringController PID steering law over the lateral error.
// The integral accumulates without a clamp and the state is only reset at session
// start, not on lap completion.
type SteeringController struct {
	gains config.Controller
	state ControlState
}

func NewSteeringController(gains config.Controller) *SteeringController {
	return &SteeringController{gains: gains}
}

// Step advances the controller by one tick
// Params: lateralErrorM-signed lateral error (m), dt-tick duration (s)
// Returns: desired steering angle (degrees), not yet limited
// Algorithm:
// 1. derivative = (e - e_prev) / dt, 0 when dt <= 0
// 2. integral += dt * e
// 3. angle = -Kp*e - Kd*derivative - Ki*integral
func (c *SteeringController) Step(lateralErrorM, dt float64) float64 {
	derivative := 0.0
	if dt > 0 {
		derivative = (lateralErrorM - c.state.PreviousLateralErrorM) / dt
	}
	c.state.PreviousLateralErrorM = lateralErrorM
	c.state.IntegralErrorMS += dt * lateralErrorM

	g := c.gains
	return -(g.Kp * lateralErrorM) - (g.Kd * derivative) - (g.Ki * c.state.IntegralErrorMS)
}

func (c *SteeringController) State() ControlState {
	return c.state
}

// Reset clears the error history. Called once at session start.
func (c *SteeringController) Reset() {
	c.state = ControlState{}
}
