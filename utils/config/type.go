package config

// Simulator is the connection to the simulator binding.
// An empty Address selects the built-in kinematic simulator.
type Simulator struct {
	Address        string  `yaml:"address,omitempty"`        // base URL of the simulator bridge, e.g. http://localhost:51200
	Synchronous    bool    `yaml:"synchronous"`              // lockstep mode: the simulator advances only on Trigger
	Restart        bool    `yaml:"restart,omitempty"`        // stop a running simulation before starting
	ReadyRetries   int     `yaml:"ready_retries,omitempty"`  // readiness polls before giving up
	ReadyInterval  float64 `yaml:"ready_interval,omitempty"` // seconds between readiness polls
	RequestTimeout float64 `yaml:"request_timeout,omitempty"`
}

// Run holds the per-run settings, also exposed as command line flags.
type Run struct {
	Laps         int     `yaml:"laps"`                    // target lap count, 0 runs until max_time or interrupt
	Speed        float64 `yaml:"speed"`                   // target linear speed (m/s)
	MaxTime      float64 `yaml:"max_time"`                // simulation seconds before the run is cut
	FixedDT      float64 `yaml:"fixed_dt,omitempty"`      // >0 replaces the measured tick duration
	FastSteering bool    `yaml:"fast_steering,omitempty"` // skip slew limiting (diagnostic runs only)
}

// Vehicle geometry.
type Vehicle struct {
	HalfTrack     float64 `yaml:"half_track"`               // half of the front track width (m)
	Wheelbase     float64 `yaml:"wheelbase"`                // front to rear axle (m)
	WheelDiameter float64 `yaml:"wheel_diameter,omitempty"` // 0 asks the simulator
	SteeringMode  string  `yaml:"steering_mode"`            // "ackermann" or "bicycle"
}

// Steering is the servo model. Limit and slew rate were tuned against the physical
// servo; values that differ from the validated defaults are overridden at construction.
type Steering struct {
	LimitDeg        float64 `yaml:"limit_deg,omitempty"`
	SlewRateDegPerS float64 `yaml:"slew_rate_deg_per_s,omitempty"`
	DeadbandDeg     float64 `yaml:"deadband_deg,omitempty"`
	MaxDT           float64 `yaml:"max_dt,omitempty"`     // ticks longer than this are treated as stalled
	NominalDT       float64 `yaml:"nominal_dt,omitempty"` // replacement duration for a stalled tick
}

// Controller holds the PID gains of the steering law.
type Controller struct {
	Kp float64 `yaml:"kp"` // deg per m
	Kd float64 `yaml:"kd"` // deg per m/s
	Ki float64 `yaml:"ki"` // deg per m·s
}

// Lane configures the line detector and the pixel to metre scale.
type Lane struct {
	Threshold   int     `yaml:"threshold"`     // samples strictly above are line pixels
	ScanWidth   int     `yaml:"scan_width"`    // pixels per scan
	FieldOfView float64 `yaml:"field_of_view"` // metres covered by one scan on the floor
}

// Camera is the pose of one line camera relative to the car.
type Camera struct {
	Height      float64 `yaml:"height"`      // m
	Orientation float64 `yaml:"orientation"` // degrees below horizontal
	FOV         float64 `yaml:"fov"`         // degrees
}

// Tripwires names the proximity sensors. An empty Stop selects single sensor mode,
// where the finish line also ends the run.
type Tripwires struct {
	Finish string `yaml:"finish"`
	Stop   string `yaml:"stop,omitempty"`
}

// Mongo is the optional telemetry store.
type Mongo struct {
	URI   string `yaml:"uri"`
	DB    string `yaml:"db"`
	Col   string `yaml:"col"`
	Batch int    `yaml:"batch,omitempty"`
}

// Telemetry output.
type Telemetry struct {
	CSV                 string `yaml:"csv,omitempty"` // base path, files are <csv>_lap<N>.csv
	Overwrite           bool   `yaml:"overwrite"`
	GroundTruthPosition bool   `yaml:"ground_truth_position,omitempty"` // log simulator position instead of the placeholder
	Mongo               *Mongo `yaml:"mongo,omitempty"`
}

// Kinematic configures the built-in simulator.
type Kinematic struct {
	Radius        float64 `yaml:"radius"`         // painted circle radius (m)
	LineWidth     float64 `yaml:"line_width"`     // painted line width (m)
	LookAhead     float64 `yaml:"look_ahead"`     // footprint distance for cameras looking near horizontal (m)
	DT            float64 `yaml:"dt"`             // physics step (s)
	Accel         float64 `yaml:"accel"`          // drive acceleration limit (m/s²)
	NoiseStd      float64 `yaml:"noise_std"`      // scan noise in intensity units
	DropoutP      float64 `yaml:"dropout_p"`      // probability that a scan comes back blank
	Seed          uint64  `yaml:"seed"`
	WheelDiameter float64 `yaml:"wheel_diameter"` // reported to the controller (m)
	FinishAngle   float64 `yaml:"finish_angle"`   // track position of the finish wire (degrees, CCW from start)
	StopAngle     float64 `yaml:"stop_angle"`     // track position of the stop wire
	SensorRadius  float64 `yaml:"sensor_radius"`  // proximity detection radius (m)
}

// Config is the root of the YAML file.
type Config struct {
	Simulator  Simulator  `yaml:"simulator"`
	Run        Run        `yaml:"run"`
	Vehicle    Vehicle    `yaml:"vehicle"`
	Steering   Steering   `yaml:"steering"`
	Controller Controller `yaml:"controller"`
	Lane       Lane       `yaml:"lane"`
	Cameras    []Camera   `yaml:"cameras"`
	Tripwires  Tripwires  `yaml:"tripwires"`
	Telemetry  Telemetry  `yaml:"telemetry"`
	Kinematic  Kinematic  `yaml:"kinematic"`
}
