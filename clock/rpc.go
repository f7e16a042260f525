package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName  = "linecar.clock.v1.ClockService"
	NowProcedure = "/" + ServiceName + "/Now"
)

// NewHandler builds the ClockService handler, ready to be mounted on a mux.
func (c *Clock) NewHandler(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(NowProcedure, connect.NewUnaryHandler(NowProcedure, c.NowRPC, opts...))
	return "/" + ServiceName + "/", mux
}

// NowRPC returns the current simulation time, for tools that follow a running
// simulation without touching the control loop.
func (c *Clock) NowRPC(ctx context.Context, in *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.DoubleValue], error) {
	return connect.NewResponse(wrapperspb.Double(c.Now())), nil
}

// NewClient creates a ClockService client.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *connect.Client[emptypb.Empty, wrapperspb.DoubleValue] {
	return connect.NewClient[emptypb.Empty, wrapperspb.DoubleValue](httpClient, baseURL+NowProcedure, opts...)
}
