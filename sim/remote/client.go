package remote

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a sim.Simulator backed by a remote SimulatorService.
type Client struct {
	timeout time.Duration

	start                *connect.Client[wrapperspb.BoolValue, emptypb.Empty]
	stop                 *connect.Client[emptypb.Empty, emptypb.Empty]
	trigger              *connect.Client[emptypb.Empty, emptypb.Empty]
	time                 *connect.Client[emptypb.Empty, wrapperspb.DoubleValue]
	proximity            *connect.Client[wrapperspb.StringValue, wrapperspb.BoolValue]
	lineScan             *connect.Client[wrapperspb.Int32Value, structpb.ListValue]
	wheelAngularVelocity *connect.Client[emptypb.Empty, structpb.Struct]
	position             *connect.Client[emptypb.Empty, structpb.Struct]
	wheelDiameter        *connect.Client[emptypb.Empty, wrapperspb.DoubleValue]
	setDriveVelocity     *connect.Client[wrapperspb.DoubleValue, emptypb.Empty]
	setSteering          *connect.Client[structpb.Struct, emptypb.Empty]
	setCamera            *connect.Client[structpb.Struct, emptypb.Empty]
}

var _ sim.Simulator = (*Client)(nil)

// NewClient connects to a SimulatorService at baseURL, e.g. http://localhost:51200.
// A positive timeout bounds every call.
func NewClient(httpClient connect.HTTPClient, baseURL string, timeout time.Duration, opts ...connect.ClientOption) *Client {
	return &Client{
		timeout:              timeout,
		start:                connect.NewClient[wrapperspb.BoolValue, emptypb.Empty](httpClient, baseURL+StartProcedure, opts...),
		stop:                 connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+StopProcedure, opts...),
		trigger:              connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+TriggerProcedure, opts...),
		time:                 connect.NewClient[emptypb.Empty, wrapperspb.DoubleValue](httpClient, baseURL+TimeProcedure, opts...),
		proximity:            connect.NewClient[wrapperspb.StringValue, wrapperspb.BoolValue](httpClient, baseURL+ProximityProcedure, opts...),
		lineScan:             connect.NewClient[wrapperspb.Int32Value, structpb.ListValue](httpClient, baseURL+LineScanProcedure, opts...),
		wheelAngularVelocity: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+WheelAngularVelocityProcedure, opts...),
		position:             connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PositionProcedure, opts...),
		wheelDiameter:        connect.NewClient[emptypb.Empty, wrapperspb.DoubleValue](httpClient, baseURL+WheelDiameterProcedure, opts...),
		setDriveVelocity:     connect.NewClient[wrapperspb.DoubleValue, emptypb.Empty](httpClient, baseURL+SetDriveVelocityProcedure, opts...),
		setSteering:          connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+SetSteeringProcedure, opts...),
		setCamera:            connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+SetCameraProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, timeout time.Duration, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, fromConnect(err)
	}
	return res.Msg, nil
}

func (c *Client) Start(ctx context.Context, synchronous bool) error {
	_, err := call(ctx, c.timeout, c.start, wrapperspb.Bool(synchronous))
	return err
}

func (c *Client) Stop(ctx context.Context) error {
	_, err := call(ctx, c.timeout, c.stop, &emptypb.Empty{})
	return err
}

func (c *Client) Trigger(ctx context.Context) error {
	_, err := call(ctx, c.timeout, c.trigger, &emptypb.Empty{})
	return err
}

func (c *Client) Time(ctx context.Context) (float64, error) {
	res, err := call(ctx, c.timeout, c.time, &emptypb.Empty{})
	if err != nil {
		return 0, err
	}
	return res.GetValue(), nil
}

func (c *Client) Proximity(ctx context.Context, sensor string) (bool, error) {
	res, err := call(ctx, c.timeout, c.proximity, wrapperspb.String(sensor))
	if err != nil {
		return false, err
	}
	return res.GetValue(), nil
}

func (c *Client) LineScan(ctx context.Context, camera int) ([]int, error) {
	res, err := call(ctx, c.timeout, c.lineScan, wrapperspb.Int32(int32(camera)))
	if err != nil {
		return nil, err
	}
	return lo.Map(res.GetValues(), func(v *structpb.Value, _ int) int {
		return int(v.GetNumberValue())
	}), nil
}

func (c *Client) WheelAngularVelocity(ctx context.Context) (float64, float64, error) {
	res, err := call(ctx, c.timeout, c.wheelAngularVelocity, &emptypb.Empty{})
	if err != nil {
		return 0, 0, err
	}
	f := res.GetFields()
	return f["left"].GetNumberValue(), f["right"].GetNumberValue(), nil
}

func (c *Client) Position(ctx context.Context) (sim.Vec3, error) {
	res, err := call(ctx, c.timeout, c.position, &emptypb.Empty{})
	if err != nil {
		return sim.Vec3{}, err
	}
	f := res.GetFields()
	return sim.Vec3{X: f["x"].GetNumberValue(), Y: f["y"].GetNumberValue(), Z: f["z"].GetNumberValue()}, nil
}

func (c *Client) WheelDiameter(ctx context.Context) (float64, error) {
	res, err := call(ctx, c.timeout, c.wheelDiameter, &emptypb.Empty{})
	if err != nil {
		return 0, err
	}
	return res.GetValue(), nil
}

func (c *Client) SetDriveVelocity(ctx context.Context, radPerSec float64) error {
	_, err := call(ctx, c.timeout, c.setDriveVelocity, wrapperspb.Double(radPerSec))
	return err
}

func (c *Client) SetSteering(ctx context.Context, cmd sim.SteeringCommand) error {
	in, err := steeringToStruct(cmd)
	if err != nil {
		return err
	}
	_, err = call(ctx, c.timeout, c.setSteering, in)
	return err
}

func (c *Client) SetCamera(ctx context.Context, camera int, pose sim.CameraPose) error {
	in, err := cameraToStruct(camera, pose)
	if err != nil {
		return err
	}
	_, err = call(ctx, c.timeout, c.setCamera, in)
	return err
}
