package granular

import (
	"math"

	approx "github.com/cwbudde/algo-approx"
)

// fastExpF32 approximates exp(x) for the per-block one-pole smoothing
// coefficients used throughout this package. Grounded on the teacher's
// pow2Approx (piano/utils.go) and the per-sample decay envelope in
// piano/voice.go, both of which reach for approx.FastExp rather than
// math.Exp for audio-rate exponential decay.
func fastExpF32(x float32) float32 {
	return approx.FastExp(x)
}

// isFinite reports whether x is neither NaN nor infinite.
func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func clampF32(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampF64(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func maxF32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func logf(x float32) float32 {
	return float32(math.Log(float64(x)))
}

func expf(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

// wrap01 wraps x into [0,1).
func wrap01(x float64) float64 {
	x = math.Mod(x, 1.0)
	if x < 0 {
		x += 1.0
	}
	return x
}
