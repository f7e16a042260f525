package telemetry

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/lap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is a Sink that keeps the series needed for the end-of-run report.
type Summary struct {
	latErr []float64
	speed  []float64
	steer  []float64
	lost   int
}

func NewSummary() *Summary {
	return &Summary{}
}

func (s *Summary) Write(r Record) error {
	s.latErr = append(s.latErr, r.LatErr)
	s.speed = append(s.speed, r.Speed)
	s.steer = append(s.steer, r.SteerAngle)
	return nil
}

// MarkLost counts a tick where no camera saw the line.
func (s *Summary) MarkLost() {
	s.lost++
}

func (s *Summary) Rotate(int) error { return nil }
func (s *Summary) Close() error     { return nil }

// Report is the run summary logged at the end.
type Report struct {
	Ticks        int
	LostTicks    int
	RMSLatErr    float64 // m
	MaxAbsLatErr float64 // m
	MeanSpeed    float64 // m/s
	SteerStd     float64 // deg
	Laps         int
	BestLap      float64 // s, 0 without laps
	MeanLap      float64
	LapStd       float64
	TotalLapDist float64 // m
}

// Report computes the summary over everything written so far.
func (s *Summary) Report(laps []lap.Lap) Report {
	r := Report{Ticks: len(s.latErr), LostTicks: s.lost, Laps: len(laps)}
	if r.Ticks > 0 {
		r.RMSLatErr = math.Sqrt(stat.Mean(lo.Map(s.latErr, func(v float64, _ int) float64 { return v * v }), nil))
		r.MaxAbsLatErr = floats.Max(lo.Map(s.latErr, func(v float64, _ int) float64 { return math.Abs(v) }))
		r.MeanSpeed = stat.Mean(s.speed, nil)
	}
	if r.Ticks > 1 {
		r.SteerStd = stat.StdDev(s.steer, nil)
	}
	if len(laps) > 0 {
		times := lo.Map(laps, func(l lap.Lap, _ int) float64 { return l.Time })
		r.BestLap = floats.Min(times)
		r.MeanLap = stat.Mean(times, nil)
		if len(times) > 1 {
			r.LapStd = stat.StdDev(times, nil)
		}
		r.TotalLapDist = lo.SumBy(laps, func(l lap.Lap) float64 { return l.Distance })
	}
	return r
}
