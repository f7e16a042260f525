package task

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"time"

	"github.com/tsinghua-fib-lab/linecar-sim/entity/car"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/lap"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
	"github.com/tsinghua-fib-lab/linecar-sim/sim/remote"
	"github.com/tsinghua-fib-lab/linecar-sim/telemetry"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "ticks between heartbeat log lines")
)

const stopTimeout = 5 * time.Second

// Reason why a run ended.
type Reason string

const (
	ReasonDone        Reason = "done"
	ReasonMaxTime     Reason = "max_time"
	ReasonInterrupted Reason = "interrupted"
	ReasonError       Reason = "error"
)

// Result of a run.
type Result struct {
	Reason  Reason
	Elapsed float64 // simulation seconds since the run started
	Laps    []lap.Lap
	Report  telemetry.Report
}

// Run runs one session
// Algorithm:
// 1. optional restart, start, wait until the simulation answers, place the cameras
// 2. tick until the sequencer is DONE, max time passes or ctx is cancelled
// 3. always stop the simulation and close telemetry, then log the summary
func (ctx *Context) Run(runCtx context.Context) (res Result, err error) {
	c := ctx.runtimeConfig.All
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), stopTimeout)
		defer cancel()
		log.Info("ending simulation")
		if serr := ctx.sim.Stop(stopCtx); serr != nil {
			log.Warnf("stop simulation: %v", serr)
		}
		if cerr := ctx.sink.Close(); cerr != nil {
			log.Errorf("close telemetry: %v", cerr)
			err = errors.Join(err, cerr)
		}
		if err != nil && res.Reason == "" {
			res.Reason = ReasonError
		}
		if ctx.sequencer != nil {
			res.Laps = ctx.sequencer.Laps()
			res.Elapsed = ctx.lastTime - ctx.startTime
		}
		res.Report = ctx.summary.Report(res.Laps)
		ctx.logSummary(res)
	}()

	if err = ctx.begin(runCtx); err != nil {
		return
	}
	for {
		select {
		case <-runCtx.Done():
			log.Info("interrupted, terminating control loop")
			res.Reason = ReasonInterrupted
			return
		default:
		}
		var reason Reason
		reason, err = ctx.tick(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				res.Reason, err = ReasonInterrupted, nil
			}
			return
		}
		if reason != "" {
			res.Reason = reason
			return
		}
		if c.Simulator.Synchronous {
			if err = ctx.sim.Trigger(runCtx); err != nil {
				err = fmt.Errorf("trigger: %w", err)
				return
			}
		}
	}
}

// begin starts the simulation session.
func (ctx *Context) begin(runCtx context.Context) error {
	c := ctx.runtimeConfig.All
	s := ctx.sim
	if c.Simulator.Restart {
		log.Info("stopping running simulation before start")
		if err := s.Stop(runCtx); err != nil {
			log.Warnf("restart: %v", err)
		}
	}
	if err := s.Start(runCtx, c.Simulator.Synchronous); err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}
	start, err := remote.WaitReady(runCtx, s, c.Simulator.ReadyRetries,
		time.Duration(c.Simulator.ReadyInterval*float64(time.Second)))
	if err != nil {
		return err
	}
	for i, cam := range c.Cameras {
		pose := sim.CameraPose{Height: cam.Height, Orientation: cam.Orientation, FOV: cam.FOV}
		if err := s.SetCamera(runCtx, i, pose); err != nil {
			return fmt.Errorf("place camera %d: %w", i, err)
		}
	}
	ctx.wheelDiameter = c.Vehicle.WheelDiameter
	if ctx.wheelDiameter <= 0 {
		if ctx.wheelDiameter, err = s.WheelDiameter(runCtx); err != nil {
			return fmt.Errorf("wheel diameter: %w", err)
		}
		if ctx.wheelDiameter <= 0 {
			return fmt.Errorf("simulator reported wheel diameter %v", ctx.wheelDiameter)
		}
	}

	ctx.startTime, ctx.lastTime = start, start
	ctx.clock.Init()
	ctx.clock.Sync(start)
	ctx.ticks = 0
	ctx.controller.Reset()
	ctx.actuator.Reset()
	ctx.sequencer = lap.NewSequencer(lap.Config{
		TargetLaps: c.Run.Laps,
		SingleWire: ctx.runtimeConfig.SingleWire(),
	}, start)
	log.Infof("run %s started at t=%.3f (laps=%d, speed=%.2f m/s)", ctx.runID, start, c.Run.Laps, c.Run.Speed)
	return nil
}

// tick performs one control iteration and reports a non-empty reason when the run ends
// Algorithm:
// 1. sim time and dt (measured, or run.fixed_dt)
// 2. line scans -> pixel error -> lateral error in metres
// 3. controller -> actuator -> wheel angles -> simulator
// 4. drive speed, measured speed
// 5. telemetry, odometry
// 6. max time, tripwire edges -> sequencer, per lap telemetry rotation
func (ctx *Context) tick(runCtx context.Context) (Reason, error) {
	rc := ctx.runtimeConfig
	c := rc.All
	s := ctx.sim

	// 1
	now, err := s.Time(runCtx)
	if err != nil {
		return "", fmt.Errorf("read time: %w", err)
	}
	dt := now - ctx.lastTime
	if c.Run.FixedDT > 0 {
		dt = c.Run.FixedDT
	}
	ctx.lastTime = now
	ctx.clock.Sync(now)
	ctx.ticks++

	// 2
	raw, err := s.LineScan(runCtx, 0)
	if err != nil {
		return "", fmt.Errorf("line scan: %w", err)
	}
	scan := car.IngestScan(raw)
	px, seen := ctx.estimator.Detect(scan)
	if !seen {
		ctx.summary.MarkLost()
	}
	latErr := -px * rc.MetersPerPixel

	rec := telemetry.Record{
		RunID:    ctx.runID,
		T:        now,
		LineScan: scan.Ints(),
		LinePos:  px + ctx.estimator.CenterOffset(),
		LatErr:   latErr,
		Lap:      ctx.sequencer.CurrentLap(),
	}
	if len(c.Cameras) > 1 {
		farRaw, err := s.LineScan(runCtx, 1)
		if err != nil {
			return "", fmt.Errorf("far line scan: %w", err)
		}
		far := car.IngestScan(farRaw)
		rec.FarScan = far.Ints()
		rec.FarLinePos = ctx.estimator.Estimate(far) + ctx.estimator.CenterOffset()
	}

	// 3
	rec.TargetSteer = ctx.controller.Step(latErr, dt)
	rec.IntErr = ctx.controller.State().IntegralErrorMS
	if c.Run.FastSteering {
		rec.SteerAngle = ctx.actuator.ApplyFast(rec.TargetSteer, dt)
	} else {
		rec.SteerAngle = ctx.actuator.Apply(rec.TargetSteer, dt)
	}
	if err := s.SetSteering(runCtx, ctx.steeringCommand(rec.SteerAngle)); err != nil {
		return "", fmt.Errorf("set steering: %w", err)
	}

	// 4
	if err := s.SetDriveVelocity(runCtx, c.Run.Speed*2/ctx.wheelDiameter); err != nil {
		return "", fmt.Errorf("set drive velocity: %w", err)
	}
	left, right, err := s.WheelAngularVelocity(runCtx)
	if err != nil {
		return "", fmt.Errorf("wheel velocity: %w", err)
	}
	rec.Speed = (left + right) / 2 * ctx.wheelDiameter / 2

	// 5
	if c.Telemetry.GroundTruthPosition {
		p, err := s.Position(runCtx)
		if err != nil {
			return "", fmt.Errorf("position: %w", err)
		}
		rec.X, rec.Y = p.X, p.Y
	}
	if err := ctx.sink.Write(rec); err != nil {
		return "", fmt.Errorf("telemetry: %w", err)
	}
	ctx.sequencer.Advance(rec.Speed * dt)

	if n := int64(*heartBeatInterval); n > 0 && ctx.ticks%n == 0 {
		log.Infof("t=%v (sp=%5.2f): lat_err=%6.3f, int_err=%6.3f, line_err=%5.1f, steer_angle=%5.1f",
			ctx.clock, rec.Speed, latErr, rec.IntErr, px, rec.SteerAngle)
	}

	// 6
	return ctx.lapStep(runCtx, now)
}

func (ctx *Context) steeringCommand(angleDeg float64) sim.SteeringCommand {
	c := ctx.runtimeConfig.All
	rad := angleDeg * math.Pi / 180
	if c.Vehicle.SteeringMode == config.SteeringModeBicycle {
		return sim.SteeringCommand{Bicycle: true, Angle: rad}
	}
	w := car.Ackermann(rad, c.Vehicle.HalfTrack)
	return sim.SteeringCommand{Left: w.Left, Right: w.Right}
}

// lapStep feeds the tripwires and the sequencer.
func (ctx *Context) lapStep(runCtx context.Context, now float64) (Reason, error) {
	c := ctx.runtimeConfig.All
	var reason Reason
	if now-ctx.startTime > c.Run.MaxTime {
		log.Warnf("exceeded max time %.1fs", c.Run.MaxTime)
		reason = ReasonMaxTime
	}

	level, err := ctx.sim.Proximity(runCtx, ctx.finish.Name)
	if err != nil {
		return "", fmt.Errorf("proximity %s: %w", ctx.finish.Name, err)
	}
	finishEdge := ctx.finish.Update(level)
	stopEdge := false
	if ctx.stop != nil {
		level, err := ctx.sim.Proximity(runCtx, ctx.stop.Name)
		if err != nil {
			return "", fmt.Errorf("proximity %s: %w", ctx.stop.Name, err)
		}
		stopEdge = ctx.stop.Update(level)
	}

	ev := ctx.sequencer.Step(now, finishEdge, stopEdge)
	elapsed := now - ctx.startTime
	switch {
	case ev.Started:
		log.Infof("started lap %d, total elapsed time: %.2f", ctx.sequencer.CurrentLap(), elapsed)
	case ev.LapCompleted:
		log.Infof("finished lap %d, lap time: %.2f, total elapsed time: %.2f", ev.Lap.Number, ev.Lap.Time, elapsed)
	}
	if ev.StopCrossed {
		log.Infof("crossed stopping line, lap+%.2f, total elapsed time: %.2f", ev.SinceLap, elapsed)
	}
	if ev.Done && reason == "" {
		reason = ReasonDone
	}
	if (ev.Started || ev.LapCompleted) && reason == "" {
		if err := ctx.sink.Rotate(ctx.sequencer.CurrentLap()); err != nil {
			return "", fmt.Errorf("rotate telemetry: %w", err)
		}
	}
	return reason, nil
}

func (ctx *Context) logSummary(res Result) {
	r := res.Report
	log.Infof("run %s ended (%s) after %.2fs: %d laps, %d ticks, %d without line",
		ctx.runID, res.Reason, res.Elapsed, r.Laps, r.Ticks, r.LostTicks)
	log.Infof("lateral error rms %.4f m, max %.4f m; mean speed %.2f m/s; steering std %.2f deg",
		r.RMSLatErr, r.MaxAbsLatErr, r.MeanSpeed, r.SteerStd)
	if r.Laps > 0 {
		log.Infof("best lap %.2fs, mean %.2fs (std %.2f), distance %.2f m", r.BestLap, r.MeanLap, r.LapStd, r.TotalLapDist)
	}
	for _, d := range ctx.actuator.Diagnostics() {
		log.Infof("steering diagnostic %s: requested %v, applied %v", d.Kind, d.Requested, d.Applied)
	}
}
