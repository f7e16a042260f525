package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
	"github.com/tsinghua-fib-lab/linecar-sim/sim/kinematic"
	"github.com/tsinghua-fib-lab/linecar-sim/sim/remote"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

func serve(t *testing.T, s sim.Simulator) *remote.Client {
	mux := http.NewServeMux()
	mux.Handle(remote.NewHandler(s))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return remote.NewClient(srv.Client(), srv.URL, time.Second)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := config.Default()
	c.Kinematic.NoiseStd = 0
	c.Kinematic.DropoutP = 0
	local := kinematic.New(c)
	client := serve(t, local)

	_, err := client.Time(ctx)
	assert.ErrorIs(t, err, sim.ErrNotRunning)

	require.NoError(t, client.Start(ctx, true))
	require.NoError(t, client.SetDriveVelocity(ctx, 10))
	require.NoError(t, client.SetSteering(ctx, sim.SteeringCommand{Left: 0.1, Right: 0.08}))
	require.NoError(t, client.SetCamera(ctx, 1, sim.CameraPose{Height: 0.4, Orientation: 20, FOV: 60}))
	for range 5 {
		require.NoError(t, client.Trigger(ctx))
	}

	now, err := client.Time(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, now, 1e-9)

	scan, err := client.LineScan(ctx, 0)
	require.NoError(t, err)
	want, err := local.LineScan(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, want, scan)

	d, err := client.WheelDiameter(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.Kinematic.WheelDiameter, d)

	l, r, err := client.WheelAngularVelocity(ctx)
	require.NoError(t, err)
	assert.Greater(t, l, 0.0)
	assert.Equal(t, l, r)

	p, err := client.Position(ctx)
	require.NoError(t, err)
	wantP, _ := local.Position(ctx)
	assert.Equal(t, wantP, p)

	on, err := client.Proximity(ctx, c.Tripwires.Finish)
	require.NoError(t, err)
	assert.False(t, on)
	_, err = client.Proximity(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, client.Stop(ctx))
	_, err = client.Time(ctx)
	assert.ErrorIs(t, err, sim.ErrNotRunning)
}

// lateStart answers Time only after a few polls.
type lateStart struct {
	sim.Simulator
	polls int
}

func (l *lateStart) Time(ctx context.Context) (float64, error) {
	l.polls++
	if l.polls < 3 {
		return 0, sim.ErrNotRunning
	}
	return 1.5, nil
}

func TestWaitReady(t *testing.T) {
	ctx := context.Background()
	s := &lateStart{}
	now, err := remote.WaitReady(ctx, s, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1.5, now)
	assert.Equal(t, 3, s.polls)

	s = &lateStart{}
	_, err = remote.WaitReady(ctx, s, 2, time.Millisecond)
	assert.ErrorIs(t, err, sim.ErrNotRunning)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = remote.WaitReady(cancelled, &lateStart{}, 0, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
