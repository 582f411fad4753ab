package granular

import "math"

// equalPowerPan maps p in [-1,+1] to (L,R) with L^2+R^2=1 (spec §4.2).
func equalPowerPan(p float32) (float32, float32) {
	p = clampF32(p, -1, 1)
	theta := float64(p+1) * math.Pi / 4.0
	return float32(math.Cos(theta)), float32(math.Sin(theta))
}
