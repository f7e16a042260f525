package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	c, err := config.Load([]byte(`
run:
  laps: 3
  speed: 2.5
  max_time: 120
controller:
  kp: 150
  kd: 0
  ki: 1
tripwires:
  finish: start
`))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Run.Laps)
	assert.Equal(t, 2.5, c.Run.Speed)
	assert.Equal(t, 150.0, c.Controller.Kp)
	assert.Equal(t, 1.0, c.Controller.Ki)
	assert.Equal(t, "start", c.Tripwires.Finish)
	assert.Equal(t, "Proximity_sensor", c.Tripwires.Stop, "keys missing from a block keep their defaults")
	// untouched sections keep their defaults
	assert.Equal(t, 192, c.Lane.Threshold)
	assert.Len(t, c.Cameras, 2)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := config.Load([]byte("run:\n  lapz: 1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"negative laps":  func(c *config.Config) { c.Run.Laps = -1 },
		"zero max time":  func(c *config.Config) { c.Run.MaxTime = 0 },
		"bad mode":       func(c *config.Config) { c.Vehicle.SteeringMode = "tank" },
		"threshold":      func(c *config.Config) { c.Lane.Threshold = 300 },
		"zero threshold": func(c *config.Config) { c.Lane.Threshold = 0 },
		"scan width":     func(c *config.Config) { c.Lane.ScanWidth = 1 },
		"no cameras":     func(c *config.Config) { c.Cameras = nil },
		"no finish wire": func(c *config.Config) { c.Tripwires.Finish = "" },
		"mongo":          func(c *config.Config) { c.Telemetry.Mongo = &config.Mongo{URI: "mongodb://x"} },
		"kinematic":      func(c *config.Config) { c.Kinematic.Radius = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := config.Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestRuntimeConfig(t *testing.T) {
	rc := config.NewRuntimeConfig(config.Default())
	assert.InDelta(t, 0.7/128, rc.MetersPerPixel, 1e-12)
	assert.False(t, rc.SingleWire())

	c := config.Default()
	c.Tripwires.Stop = ""
	assert.True(t, config.NewRuntimeConfig(c).SingleWire())
}
