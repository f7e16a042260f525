// Package kinematic is an in-process simulator: a bicycle-model car on a painted
// circle, seen through 1-D line cameras, with proximity tripwires on the track.
// It stands in for the external simulator in tests and standalone runs.
package kinematic

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/linecar-sim/clock"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/car"
	"github.com/tsinghua-fib-lab/linecar-sim/sim"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/randengine"
)

var log = logrus.WithField("module", "kinematic")

const (
	floorIntensity = 40
	lineIntensity  = 240
	maxSteer       = math.Pi / 3
)

var _ sim.Simulator = (*Simulator)(nil)

// Option customizes a Simulator.
type Option func(*Simulator)

// WithWallClock replaces time.Now for the asynchronous mode.
func WithWallClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// Simulator kinematic simulator
// Function: integrates a bicycle model and renders what the car's sensors see
// Note: in synchronous mode one Trigger is one physics step; otherwise the
// simulation follows the wall clock from Start
type Simulator struct {
	mu sync.Mutex

	cfg       config.Kinematic
	wheelbase float64
	scanWidth int
	scanFOV   float64 // floor width of a 90° camera scan (m)

	clock   *clock.Clock
	rng     *randengine.Engine
	now     func() time.Time
	sensors map[string]sim.Vec3
	cameras []sim.CameraPose

	running     bool
	synchronous bool
	startWall   time.Time

	// car state
	x, y, heading float64
	v             float64 // m/s
	steer         float64 // bicycle angle (rad)
	targetOmega   float64 // drive wheel target (rad/s)
}

// New creates a simulator from the run configuration. The proximity sensors take
// the tripwire names of the configuration.
func New(c config.Config, opts ...Option) *Simulator {
	k := c.Kinematic
	s := &Simulator{
		cfg:       k,
		wheelbase: c.Vehicle.Wheelbase,
		scanWidth: c.Lane.ScanWidth,
		scanFOV:   c.Lane.FieldOfView,
		clock:     clock.New(k.DT),
		rng:       randengine.New(k.Seed),
		now:       time.Now,
		sensors:   map[string]sim.Vec3{},
		cameras: lo.Map(c.Cameras, func(cam config.Camera, _ int) sim.CameraPose {
			return sim.CameraPose{Height: cam.Height, Orientation: cam.Orientation, FOV: cam.FOV}
		}),
	}
	if s.wheelbase <= 0 {
		s.wheelbase = 0.25
	}
	s.sensors[c.Tripwires.Finish] = s.trackPoint(k.FinishAngle)
	if c.Tripwires.Stop != "" {
		s.sensors[c.Tripwires.Stop] = s.trackPoint(k.StopAngle)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

// Clock exposes the simulation clock, e.g. for the Now RPC.
func (s *Simulator) Clock() *clock.Clock {
	return s.clock
}

func (s *Simulator) trackPoint(deg float64) sim.Vec3 {
	a := deg * math.Pi / 180
	return sim.Vec3{X: s.cfg.Radius * math.Cos(a), Y: s.cfg.Radius * math.Sin(a)}
}

// reset puts the car on the line at angle 0, heading counter-clockwise.
func (s *Simulator) reset() {
	s.clock.Init()
	s.x, s.y, s.heading = s.cfg.Radius, 0, math.Pi/2
	s.v, s.steer, s.targetOmega = 0, 0, 0
}

func (s *Simulator) Start(ctx context.Context, synchronous bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.reset()
		s.startWall = s.now()
	}
	s.running = true
	s.synchronous = synchronous
	log.Infof("simulation started (synchronous=%v)", synchronous)
	return nil
}

func (s *Simulator) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		log.Infof("simulation stopped at t=%v", s.clock)
	}
	s.running = false
	return nil
}

func (s *Simulator) Trigger(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return sim.ErrNotRunning
	}
	if s.synchronous {
		s.step()
	}
	return nil
}

// sync catches the asynchronous simulation up with the wall clock. Caller holds mu.
func (s *Simulator) sync() {
	if !s.running || s.synchronous {
		return
	}
	target := s.now().Sub(s.startWall).Seconds()
	for s.clock.Now()+s.cfg.DT/2 <= target {
		s.step()
	}
}

// step integrates one DT. Caller holds mu.
func (s *Simulator) step() {
	dt := s.cfg.DT
	targetV := s.targetOmega * s.cfg.WheelDiameter / 2
	dv := targetV - s.v
	if s.cfg.Accel > 0 {
		dv = lo.Clamp(dv, -s.cfg.Accel*dt, s.cfg.Accel*dt)
	}
	s.v += dv
	s.x += s.v * math.Cos(s.heading) * dt
	s.y += s.v * math.Sin(s.heading) * dt
	s.heading += s.v / s.wheelbase * math.Tan(s.steer) * dt
	s.clock.Tick()
}

func (s *Simulator) Time(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0, sim.ErrNotRunning
	}
	s.sync()
	return s.clock.Now(), nil
}

func (s *Simulator) Proximity(ctx context.Context, sensor string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.sensors[sensor]
	if !ok {
		return false, fmt.Errorf("unknown proximity sensor %q", sensor)
	}
	s.sync()
	return math.Hypot(s.x-p.X, s.y-p.Y) < s.cfg.SensorRadius, nil
}

func (s *Simulator) LineScan(ctx context.Context, camera int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if camera < 0 || camera >= len(s.cameras) {
		return nil, fmt.Errorf("no line camera %d", camera)
	}
	s.sync()
	return s.render(s.cameras[camera]), nil
}

// footprint is the distance ahead and the floor width covered by a camera.
func (s *Simulator) footprint(pose sim.CameraPose) (ahead, width float64) {
	ahead = s.cfg.LookAhead
	if pose.Orientation > 1 && pose.Height > 0 {
		ahead = pose.Height / math.Tan(pose.Orientation*math.Pi/180)
	}
	width = s.scanFOV
	if pose.FOV > 0 && pose.FOV < 180 {
		width = s.scanFOV * math.Tan(pose.FOV*math.Pi/360)
	}
	return
}

// lineOffset is the lateral position (left positive) where the scan line crosses the
// painted circle, closest to the scan centre. ok is false when they do not cross.
func (s *Simulator) lineOffset(ahead float64) (offset float64, ok bool) {
	cx := s.x + ahead*math.Cos(s.heading)
	cy := s.y + ahead*math.Sin(s.heading)
	nx, ny := -math.Sin(s.heading), math.Cos(s.heading)
	// |c + o*n|² = R²
	b := cx*nx + cy*ny
	disc := b*b - (cx*cx + cy*cy - s.cfg.Radius*s.cfg.Radius)
	if disc < 0 {
		return 0, false
	}
	r := math.Sqrt(disc)
	o1, o2 := -b-r, -b+r
	if math.Abs(o1) < math.Abs(o2) {
		return o1, true
	}
	return o2, true
}

// render draws the scan of one camera. Pixel values above 127 are returned
// sign-extended, the way the simulator binding delivers 8-bit greyscale.
func (s *Simulator) render(pose sim.CameraPose) []int {
	ahead, width := s.footprint(pose)
	mpp := width / float64(s.scanWidth)
	center := float64(s.scanWidth-1) / 2
	offset, visible := s.lineOffset(ahead)
	if s.rng.PTrue(s.cfg.DropoutP) {
		visible = false
	}
	scan := make([]int, s.scanWidth)
	for i := range scan {
		v := float64(floorIntensity)
		if visible && math.Abs((float64(i)-center)*mpp-offset) <= s.cfg.LineWidth/2 {
			v = lineIntensity
		}
		px := int(math.Round(lo.Clamp(s.rng.Norm(v, s.cfg.NoiseStd), 0, 255)))
		if px > 127 {
			px -= 256
		}
		scan[i] = px
	}
	return scan
}

func (s *Simulator) WheelAngularVelocity(ctx context.Context) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync()
	omega := s.v / (s.cfg.WheelDiameter / 2)
	return omega, omega, nil
}

func (s *Simulator) Position(ctx context.Context) (sim.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync()
	return sim.Vec3{X: s.x, Y: s.y}, nil
}

func (s *Simulator) WheelDiameter(ctx context.Context) (float64, error) {
	return s.cfg.WheelDiameter, nil
}

func (s *Simulator) SetDriveVelocity(ctx context.Context, radPerSec float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync()
	s.targetOmega = radPerSec
	return nil
}

func (s *Simulator) SetSteering(ctx context.Context, cmd sim.SteeringCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync()
	angle := cmd.Angle
	if !cmd.Bicycle {
		angle = car.WheelAngles{Left: cmd.Left, Right: cmd.Right}.Mean()
	}
	s.steer = lo.Clamp(angle, -maxSteer, maxSteer)
	return nil
}

func (s *Simulator) SetCamera(ctx context.Context, camera int, pose sim.CameraPose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if camera < 0 || camera >= len(s.cameras) {
		return fmt.Errorf("no line camera %d", camera)
	}
	s.cameras[camera] = pose
	return nil
}
