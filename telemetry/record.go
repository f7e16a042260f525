// Package telemetry records one row per control tick and splits the stream per lap.
package telemetry

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "telemetry")

// Record is one control tick.
type Record struct {
	RunID string  `bson:"run_id"`
	T     float64 `bson:"t"`
	// ground truth position, debugging only
	X float64 `bson:"x"`
	Y float64 `bson:"y"`

	LineScan []int   `bson:"linescan"`
	LinePos  float64 `bson:"line_pos"` // camera pixels, so it overlays the scan
	// second camera, nil/0 when only one camera is configured
	FarScan    []int   `bson:"linescan_far,omitempty"`
	FarLinePos float64 `bson:"line_pos_far,omitempty"`

	Speed       float64 `bson:"speed"`        // m/s measured from the wheels
	LatErr      float64 `bson:"lat_err"`      // m
	IntErr      float64 `bson:"int_err"`      // m·s
	TargetSteer float64 `bson:"target_steer"` // controller output (deg)
	SteerAngle  float64 `bson:"steer_angle"`  // realized after the actuator (deg)
	Lap         int     `bson:"lap"`
}

// Sink consumes records. Rotate starts the stream of the given lap index.
type Sink interface {
	Write(r Record) error
	Rotate(lap int) error
	Close() error
}

// Multi fans records out to several sinks. Every sink sees every call; errors are joined.
type Multi []Sink

func (m Multi) Write(r Record) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Write(r))
	}
	return errors.Join(errs...)
}

func (m Multi) Rotate(lap int) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Rotate(lap))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Discard drops everything, for runs without telemetry.
type Discard struct{}

func (Discard) Write(Record) error { return nil }
func (Discard) Rotate(int) error   { return nil }
func (Discard) Close() error       { return nil }
