package car

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
)

const defaultIntensityThreshold = 192

// LaneScan is one line camera capture, intensities in [0, 255].
type LaneScan []uint8

// IngestScan converts raw samples from the simulator binding into a LaneScan.
// The binding delivers 8-bit pixels as signed bytes, so negative values are
// shifted back by 256. Anything still outside [0, 255] is clamped.
func IngestScan(raw []int) LaneScan {
	return lo.Map(raw, func(v int, _ int) uint8 {
		if v < 0 {
			v += 256
		}
		return uint8(lo.Clamp(v, 0, 255))
	})
}

// Ints returns the scan as plain integers, for telemetry.
func (s LaneScan) Ints() []int {
	return lo.Map(s, func(v uint8, _ int) int { return int(v) })
}

// LaneErrorEstimator reduces a scan to the line position relative to the scan centre,
// in pixels. Conversion to metres belongs to the caller, which knows the camera geometry.
type LaneErrorEstimator struct {
	threshold    int
	centerOffset float64
}

// NewLaneErrorEstimator creates an estimator. The centre offset is half the scan
// width minus one (63 for a 128 pixel scan). An unset threshold selects 192;
// configuration validation rejects 0, so this only applies to zero-value sections.
func NewLaneErrorEstimator(c config.Lane) *LaneErrorEstimator {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = defaultIntensityThreshold
	}
	return &LaneErrorEstimator{
		threshold:    threshold,
		centerOffset: float64(c.ScanWidth/2 - 1),
	}
}

// Detect returns the centroid of the samples strictly above the threshold minus the
// centre offset. ok is false when no sample is bright enough.
func (e *LaneErrorEstimator) Detect(scan LaneScan) (px float64, ok bool) {
	weighted, count := 0, 0
	for i, v := range scan {
		if int(v) > e.threshold {
			weighted += i
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return float64(weighted)/float64(count) - e.centerOffset, true
}

// Estimate is Detect with the lost-line case folded into a neutral 0, so a
// transient loss of the line produces no correction instead of an error.
func (e *LaneErrorEstimator) Estimate(scan LaneScan) float64 {
	px, _ := e.Detect(scan)
	return px
}

// CenterOffset is the pixel index that Estimate reports as 0.
func (e *LaneErrorEstimator) CenterOffset() float64 {
	return e.centerOffset
}
