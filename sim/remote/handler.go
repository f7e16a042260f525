package remote

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var empty = &emptypb.Empty{}

func handle[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *Req) (*Res, error), opts ...connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(
		procedure,
		func(ctx context.Context, in *connect.Request[Req]) (*connect.Response[Res], error) {
			out, err := fn(ctx, in.Msg)
			if err != nil {
				log.Debugf("%s: %v", procedure, err)
				return nil, toConnect(err)
			}
			return connect.NewResponse(out), nil
		},
		opts...,
	))
}

// NewHandler exposes a simulator under /linecar.sim.v1.SimulatorService/.
// The returned pattern and handler go straight into an http.ServeMux.
func NewHandler(s sim.Simulator, opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
	mux := http.NewServeMux()

	handle(mux, StartProcedure, func(ctx context.Context, in *wrapperspb.BoolValue) (*emptypb.Empty, error) {
		return empty, s.Start(ctx, in.GetValue())
	}, opts...)
	handle(mux, StopProcedure, func(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
		return empty, s.Stop(ctx)
	}, opts...)
	handle(mux, TriggerProcedure, func(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
		return empty, s.Trigger(ctx)
	}, opts...)
	handle(mux, TimeProcedure, func(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
		t, err := s.Time(ctx)
		return wrapperspb.Double(t), err
	}, opts...)
	handle(mux, ProximityProcedure, func(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
		on, err := s.Proximity(ctx, in.GetValue())
		return wrapperspb.Bool(on), err
	}, opts...)
	handle(mux, LineScanProcedure, func(ctx context.Context, in *wrapperspb.Int32Value) (*structpb.ListValue, error) {
		scan, err := s.LineScan(ctx, int(in.GetValue()))
		if err != nil {
			return nil, err
		}
		return &structpb.ListValue{Values: lo.Map(scan, func(v int, _ int) *structpb.Value {
			return structpb.NewNumberValue(float64(v))
		})}, nil
	}, opts...)
	handle(mux, WheelAngularVelocityProcedure, func(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
		l, r, err := s.WheelAngularVelocity(ctx)
		if err != nil {
			return nil, err
		}
		return structpb.NewStruct(map[string]any{"left": l, "right": r})
	}, opts...)
	handle(mux, PositionProcedure, func(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
		p, err := s.Position(ctx)
		if err != nil {
			return nil, err
		}
		return structpb.NewStruct(map[string]any{"x": p.X, "y": p.Y, "z": p.Z})
	}, opts...)
	handle(mux, WheelDiameterProcedure, func(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
		d, err := s.WheelDiameter(ctx)
		return wrapperspb.Double(d), err
	}, opts...)
	handle(mux, SetDriveVelocityProcedure, func(ctx context.Context, in *wrapperspb.DoubleValue) (*emptypb.Empty, error) {
		return empty, s.SetDriveVelocity(ctx, in.GetValue())
	}, opts...)
	handle(mux, SetSteeringProcedure, func(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
		return empty, s.SetSteering(ctx, steeringFromStruct(in))
	}, opts...)
	handle(mux, SetCameraProcedure, func(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
		camera, pose, err := cameraFromStruct(in)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return empty, s.SetCamera(ctx, camera, pose)
	}, opts...)

	return "/" + ServiceName + "/", mux
}

func steeringToStruct(cmd sim.SteeringCommand) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"bicycle": cmd.Bicycle,
		"angle":   cmd.Angle,
		"left":    cmd.Left,
		"right":   cmd.Right,
	})
}

func steeringFromStruct(in *structpb.Struct) sim.SteeringCommand {
	f := in.GetFields()
	return sim.SteeringCommand{
		Bicycle: f["bicycle"].GetBoolValue(),
		Angle:   f["angle"].GetNumberValue(),
		Left:    f["left"].GetNumberValue(),
		Right:   f["right"].GetNumberValue(),
	}
}

func cameraToStruct(camera int, pose sim.CameraPose) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"camera":      camera,
		"height":      pose.Height,
		"orientation": pose.Orientation,
		"fov":         pose.FOV,
	})
}

func cameraFromStruct(in *structpb.Struct) (int, sim.CameraPose, error) {
	f := in.GetFields()
	c, ok := f["camera"]
	if !ok {
		return 0, sim.CameraPose{}, fmt.Errorf("camera index missing")
	}
	return int(c.GetNumberValue()), sim.CameraPose{
		Height:      f["height"].GetNumberValue(),
		Orientation: f["orientation"].GetNumberValue(),
		FOV:         f["fov"].GetNumberValue(),
	}, nil
}
