// Package sim defines the contract between the control loop and the simulator
// binding. The control loop only talks to a Simulator; object handles, signal
// streaming and image retrieval stay behind the implementation.
package sim

import (
	"context"
	"errors"
)

// ErrNotRunning is returned while the simulation has not started yet.
// Callers poll until it goes away.
var ErrNotRunning = errors.New("simulation not running")

// Vec3 is a position in metres.
type Vec3 struct {
	X, Y, Z float64
}

// SteeringCommand carries either one bicycle-model angle or two independent
// wheel angles, all in radians.
type SteeringCommand struct {
	Bicycle     bool
	Angle       float64 // bicycle-model angle, used when Bicycle is set
	Left, Right float64 // wheel angles otherwise
}

// CameraPose places a line camera above the car origin.
type CameraPose struct {
	Height      float64 // m
	Orientation float64 // degrees below horizontal
	FOV         float64 // degrees
}

// Simulator is the binding the control loop drives. Every call may block on the
// transport; none of them is called from more than one goroutine at a time.
type Simulator interface {
	// Start starts (or resumes) the simulation. synchronous selects lockstep mode.
	Start(ctx context.Context, synchronous bool) error
	// Stop stops the simulation.
	Stop(ctx context.Context) error
	// Trigger advances one step in synchronous mode.
	Trigger(ctx context.Context) error

	// Time is the simulation time in seconds.
	Time(ctx context.Context) (float64, error)
	// Proximity is the raw presence level of a named proximity sensor.
	Proximity(ctx context.Context, sensor string) (bool, error)
	// LineScan is the raw greyscale scan of a line camera. Samples are
	// 8-bit values that may arrive sign-extended (negative).
	LineScan(ctx context.Context, camera int) ([]int, error)
	// WheelAngularVelocity is the angular speed of the front left and right wheels (rad/s).
	WheelAngularVelocity(ctx context.Context) (left, right float64, err error)
	// Position is the ground-truth position of the car, for analysis only.
	Position(ctx context.Context) (Vec3, error)
	// WheelDiameter of the drive wheels (m).
	WheelDiameter(ctx context.Context) (float64, error)

	// SetDriveVelocity sets the target angular velocity of the drive wheels (rad/s).
	SetDriveVelocity(ctx context.Context, radPerSec float64) error
	// SetSteering sets the steering joints.
	SetSteering(ctx context.Context, cmd SteeringCommand) error
	// SetCamera moves a line camera.
	SetCamera(ctx context.Context, camera int, pose CameraPose) error
}
