package lap

import "fmt"

// State of a multi-lap run.
type State int

const (
	NotStarted State = iota // before the first finish line crossing
	Running                 // lap n in progress, n counted from 0
	Done                    // target reached, the driver stops the loop
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Running:
		return "RUNNING"
	case Done:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config of a Sequencer.
type Config struct {
	TargetLaps int  // 0 runs forever, termination is left to the driver
	SingleWire bool // no stop line: the finish line crossing that reaches the target ends the run
}

// Lap is one completed lap.
type Lap struct {
	Number   int     // 1-based
	Time     float64 // seconds
	Distance float64 // metres from the odometry side channel, 0 when unused
}

// Event describes what a Step changed.
type Event struct {
	Started      bool    // first finish edge: the timed window opened, no lap counted
	LapCompleted bool    // a later finish edge
	Lap          Lap     // valid when LapCompleted
	StopCrossed  bool    // stop edge while at least one lap is complete
	SinceLap     float64 // seconds since the current lap started, valid when StopCrossed
	Elapsed      float64 // seconds since the sequencer was created
	Done         bool    // the run entered DONE on this step
}

// Sequencer lap state machine
// Function: counts laps from the rising edges of the finish and stop tripwires
// Note: completedLaps starts at -1. The first finish edge marks the start of lap 0
// (a run-up) and every later finish edge completes exactly one lap, so
// completedLaps only ever grows by one per edge.
type Sequencer struct {
	cfg   Config
	state State

	completedLaps int
	lapStartTime  float64
	runStartTime  float64
	odometer      float64 // distance since the lap started
	laps          []Lap
}

// NewSequencer creates a sequencer at NOT_STARTED. startTime is the simulation time
// the run began, used for elapsed-time reporting.
func NewSequencer(cfg Config, startTime float64) *Sequencer {
	return &Sequencer{
		cfg:           cfg,
		completedLaps: -1,
		lapStartTime:  -1,
		runStartTime:  startTime,
	}
}

// Advance feeds the odometry side channel with the distance covered this tick.
func (s *Sequencer) Advance(distance float64) {
	if s.state == Running {
		s.odometer += distance
	}
}

// Step applies one tick of edge events
// Params: now-simulation time, finishEdge/stopEdge-rising edges of the two tripwires
// Algorithm:
// 1. DONE is terminal, later edges are ignored
// 2. finish edge: NOT_STARTED -> RUNNING(0); RUNNING(n) -> RUNNING(n+1) recording the lap time
// 3. stop edge in RUNNING(n), n > 0: reported, and ends the run when n >= target (target != 0)
// 4. in single wire mode the finish edge takes the stop role and stop edges are ignored
func (s *Sequencer) Step(now float64, finishEdge, stopEdge bool) (ev Event) {
	ev.Elapsed = now - s.runStartTime
	if s.state == Done {
		return
	}
	if finishEdge {
		switch s.state {
		case NotStarted:
			s.state = Running
			s.completedLaps = 0
			ev.Started = true
			log.Debugf("started at t=%.3f", now)
		case Running:
			s.completedLaps++
			ev.LapCompleted = true
			ev.Lap = Lap{
				Number:   s.completedLaps,
				Time:     now - s.lapStartTime,
				Distance: s.odometer,
			}
			s.laps = append(s.laps, ev.Lap)
			if s.cfg.SingleWire && s.targetReached() {
				s.state = Done
				ev.Done = true
			}
		}
		s.lapStartTime = now
		s.odometer = 0
	}
	if stopEdge && !s.cfg.SingleWire && s.state == Running && s.completedLaps > 0 {
		ev.StopCrossed = true
		ev.SinceLap = now - s.lapStartTime
		if s.targetReached() {
			s.state = Done
			ev.Done = true
		}
	}
	if ev.Done {
		log.Debugf("done at t=%.3f after %d laps", now, s.completedLaps)
	}
	return
}

func (s *Sequencer) targetReached() bool {
	return s.cfg.TargetLaps != 0 && s.completedLaps >= s.cfg.TargetLaps
}

func (s *Sequencer) State() State {
	return s.state
}

// CompletedLaps is -1 before the start, then the number of finished laps.
func (s *Sequencer) CompletedLaps() int {
	return s.completedLaps
}

// CurrentLap is the index of the lap in progress, which is also the telemetry stream index.
func (s *Sequencer) CurrentLap() int {
	return s.completedLaps + 1
}

func (s *Sequencer) Laps() []Lap {
	return append([]Lap(nil), s.laps...)
}
