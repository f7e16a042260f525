package config

import (
	"fmt"

	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

const (
	SteeringModeAckermann = "ackermann" // independent left/right wheel angles
	SteeringModeBicycle   = "bicycle"   // one bicycle-model angle, the simulator splits it
)

// Default returns the configuration of the reference car and track.
func Default() Config {
	return Config{
		Simulator: Simulator{
			Synchronous:    true,
			ReadyRetries:   30,
			ReadyInterval:  1,
			RequestTimeout: 5,
		},
		Run: Run{
			Laps:    1,
			Speed:   1.0,
			MaxTime: 60,
		},
		Vehicle: Vehicle{
			HalfTrack:    0.0755,
			Wheelbase:    0.25,
			SteeringMode: SteeringModeAckermann,
		},
		Steering: Steering{
			LimitDeg:        30,
			SlewRateDegPerS: 60 / 0.016,
			MaxDT:           0.011,
			NominalDT:       0.01,
		},
		Controller: Controller{Kp: 200, Kd: 20, Ki: 0},
		Lane: Lane{
			Threshold:   192,
			ScanWidth:   128,
			FieldOfView: 0.7,
		},
		Cameras: []Camera{
			{Height: 0.3, Orientation: 40, FOV: 90},
			{Height: 0.4, Orientation: 15, FOV: 60},
		},
		Tripwires: Tripwires{
			Finish: "Proximity_sensor_StartLine",
			Stop:   "Proximity_sensor",
		},
		Telemetry: Telemetry{
			CSV:       "car_data",
			Overwrite: true,
		},
		Kinematic: Kinematic{
			Radius:        2,
			LineWidth:     0.025,
			LookAhead:     0.35,
			DT:            0.01,
			Accel:         4,
			NoiseStd:      4,
			Seed:          1,
			WheelDiameter: 0.066,
			FinishAngle:   30,
			StopAngle:     60,
			SensorRadius:  0.15,
		},
	}
}

// Load decodes a YAML document on top of Default and validates the result.
// Unknown keys are rejected.
func Load(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the values that the control loop cannot run without.
func (c Config) Validate() error {
	switch {
	case c.Run.Laps < 0:
		return fmt.Errorf("run.laps must be >= 0, got %d", c.Run.Laps)
	case c.Run.Speed < 0:
		return fmt.Errorf("run.speed must be >= 0, got %v", c.Run.Speed)
	case c.Run.MaxTime <= 0:
		return fmt.Errorf("run.max_time must be > 0, got %v", c.Run.MaxTime)
	case c.Run.FixedDT < 0:
		return fmt.Errorf("run.fixed_dt must be >= 0, got %v", c.Run.FixedDT)
	case !lo.Contains([]string{SteeringModeAckermann, SteeringModeBicycle}, c.Vehicle.SteeringMode):
		return fmt.Errorf("vehicle.steering_mode must be %q or %q, got %q",
			SteeringModeAckermann, SteeringModeBicycle, c.Vehicle.SteeringMode)
	case c.Vehicle.HalfTrack < 0 || c.Vehicle.WheelDiameter < 0:
		return fmt.Errorf("vehicle geometry must be non-negative")
	case c.Lane.Threshold < 1 || c.Lane.Threshold > 255:
		return fmt.Errorf("lane.threshold must be in [1, 255], got %d", c.Lane.Threshold)
	case c.Lane.ScanWidth < 2:
		return fmt.Errorf("lane.scan_width must be >= 2, got %d", c.Lane.ScanWidth)
	case c.Lane.FieldOfView <= 0:
		return fmt.Errorf("lane.field_of_view must be > 0, got %v", c.Lane.FieldOfView)
	case len(c.Cameras) == 0:
		return fmt.Errorf("at least one camera is required")
	case c.Tripwires.Finish == "":
		return fmt.Errorf("tripwires.finish is required")
	}
	if m := c.Telemetry.Mongo; m != nil && (m.URI == "" || m.DB == "" || m.Col == "") {
		return fmt.Errorf("telemetry.mongo needs uri, db and col")
	}
	if c.Simulator.Address == "" {
		k := c.Kinematic
		if k.Radius <= 0 || k.DT <= 0 || k.LineWidth <= 0 || k.WheelDiameter <= 0 {
			return fmt.Errorf("kinematic radius, dt, line_width and wheel_diameter must be > 0")
		}
	}
	return nil
}
