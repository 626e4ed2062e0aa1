package camera

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomAngles draws n camera orientations uniformly over the view sphere:
// yaw ~ U(-pi, pi), pitch = acos(1 - 2u) so positions are area-uniform, roll
// fixed at zero.
func RandomAngles(n int, rng *rand.Rand) []Angles {
	out := make([]Angles, n)
	for i := range out {
		out[i] = Angles{
			Yaw:   rng.Float64()*2*math.Pi - math.Pi,
			Pitch: math.Acos(1 - 2*rng.Float64()),
		}
	}
	return out
}

// SweepViews is the number of orientations SweepAngles produces.
const SweepViews = 129

// SweepAngles returns the deterministic latitude sweep: 15 pitch bands from
// pole to pole, each holding a number of yaw steps proportional to sin(pitch),
// 129 views in total.
func SweepAngles() []Angles {
	const steps = 15

	var out []Angles
	for i := 0; i < steps; i++ {
		pitch := 1e-6 + (math.Pi-2e-6)*float64(i)/float64(steps-1)
		count := int(math.Sin(pitch) * steps)
		if count < 1 {
			count = 1
		}
		for j := 0; j < count; j++ {
			yaw := 0.0
			if count > 1 {
				yaw = 2 * math.Pi * float64(j) / float64(count-1)
			}
			out = append(out, Angles{Yaw: yaw, Pitch: pitch})
		}
	}
	return out
}

// FOVSampler draws per-view field-of-view values from a configured
// distribution.
type FOVSampler struct {
	Dist string // "constant", "uniform" or "truncnorm"
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Sample draws n FOV values.
func (s FOVSampler) Sample(n int, rng *rand.Rand) ([]float64, error) {
	out := make([]float64, n)
	switch s.Dist {
	case "constant":
		for i := range out {
			out[i] = s.Mean
		}
	case "uniform":
		if s.Max < s.Min {
			return nil, fmt.Errorf("uniform fov range inverted: min %v > max %v", s.Min, s.Max)
		}
		for i := range out {
			out[i] = s.Min + rng.Float64()*(s.Max-s.Min)
		}
	case "truncnorm":
		if s.Std <= 0 {
			return nil, fmt.Errorf("truncnorm fov requires positive std, got %v", s.Std)
		}
		if s.Max < s.Min {
			return nil, fmt.Errorf("truncnorm fov range inverted: min %v > max %v", s.Min, s.Max)
		}
		for i := range out {
			// Rejection sampling; the tails outside [Min, Max] are discarded.
			for {
				v := s.Mean + rng.NormFloat64()*s.Std
				if v >= s.Min && v <= s.Max {
					out[i] = v
					break
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown fov distribution %q", s.Dist)
	}
	return out, nil
}
