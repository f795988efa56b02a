package sim

import "math"

// Speeds are degrees moved per tick on each held axis
const (
	MinSpeed     = 0.000001
	MaxSpeed     = 0.001
	DefaultSpeed = 0.00001
)

// Faster doubles speed, capped at MaxSpeed
func Faster(speed float64) float64 {
	return math.Min(speed*2, MaxSpeed)
}

// Slower halves speed, floored at MinSpeed
func Slower(speed float64) float64 {
	return math.Max(speed/2, MinSpeed)
}

// SpeedLabel names a speed for display
func SpeedLabel(speed float64) string {
	switch {
	case speed >= 0.0005:
		return "Very Fast"
	case speed >= 0.0001:
		return "Fast"
	case speed >= 0.00005:
		return "Medium"
	case speed >= 0.000005:
		return "Normal"
	default:
		return "Slow"
	}
}
