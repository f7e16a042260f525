package config

// RuntimeConfig is the validated configuration plus the values derived from it
// once at startup. Components receive copies of their section and never read globals.
type RuntimeConfig struct {
	All Config // full configuration

	MetersPerPixel float64 // floor distance covered by one scan pixel
}

// NewRuntimeConfig derives the runtime values from a validated Config.
func NewRuntimeConfig(config Config) *RuntimeConfig {
	return &RuntimeConfig{
		All:            config,
		MetersPerPixel: config.Lane.FieldOfView / float64(config.Lane.ScanWidth),
	}
}

// SingleWire reports whether the finish wire also ends the run.
func (rc *RuntimeConfig) SingleWire() bool {
	return rc.All.Tripwires.Stop == ""
}
