// Package remote carries the sim.Simulator contract over connect, so the control
// loop can drive a simulator bridge in another process.
package remote

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
)

var log = logrus.WithField("module", "remote")

const ServiceName = "linecar.sim.v1.SimulatorService"

// procedure names
const (
	StartProcedure                = "/" + ServiceName + "/Start"
	StopProcedure                 = "/" + ServiceName + "/Stop"
	TriggerProcedure              = "/" + ServiceName + "/Trigger"
	TimeProcedure                 = "/" + ServiceName + "/Time"
	ProximityProcedure            = "/" + ServiceName + "/Proximity"
	LineScanProcedure             = "/" + ServiceName + "/LineScan"
	WheelAngularVelocityProcedure = "/" + ServiceName + "/WheelAngularVelocity"
	PositionProcedure             = "/" + ServiceName + "/Position"
	WheelDiameterProcedure        = "/" + ServiceName + "/WheelDiameter"
	SetDriveVelocityProcedure     = "/" + ServiceName + "/SetDriveVelocity"
	SetSteeringProcedure          = "/" + ServiceName + "/SetSteering"
	SetCameraProcedure            = "/" + ServiceName + "/SetCamera"
)

// toConnect maps simulator errors onto connect codes. A simulation that has not
// started is Unavailable so the client can poll.
func toConnect(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, sim.ErrNotRunning) {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// fromConnect restores sim.ErrNotRunning on the client side.
func fromConnect(err error) error {
	if err == nil {
		return nil
	}
	if connect.CodeOf(err) == connect.CodeUnavailable {
		var ce *connect.Error
		if errors.As(err, &ce) && ce.Message() == sim.ErrNotRunning.Error() {
			return sim.ErrNotRunning
		}
	}
	return err
}
