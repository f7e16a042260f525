package car

import "math"

// WheelAngles are the front wheel steering angles in radians.
type WheelAngles struct {
	Left  float64
	Right float64
}

// Ackermann maps a bicycle-model steering angle theta (radians) to the left and
// right wheel angles for a car with the given half track width.
// The inner wheel turns through a larger angle than the outer one.
// theta == 0 returns zero angles, cot(0) is not evaluated.
func Ackermann(theta, halfTrack float64) WheelAngles {
	if theta == 0 {
		return WheelAngles{}
	}
	cot := 1 / math.Tan(theta)
	return WheelAngles{
		Left:  math.Atan(1 / (-halfTrack + cot)),
		Right: math.Atan(1 / (halfTrack + cot)),
	}
}

// Mean is the bicycle-equivalent angle of a wheel pair.
func (w WheelAngles) Mean() float64 {
	return (w.Left + w.Right) / 2
}
