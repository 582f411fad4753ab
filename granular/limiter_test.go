package granular

import (
	"math"
	"testing"
)

func TestLimiterClampsSquareWave(t *testing.T) {
	const sr = 48000.0
	lim := NewLimiter(sr, DefaultLimiterConfig())

	const blockSize = 128
	left := make([]float32, blockSize)
	right := make([]float32, blockSize)
	for i := range left {
		left[i] = 1
		right[i] = 1
	}

	var lastL, lastR []float32
	for b := 0; b < 40; b++ {
		lastL, lastR = lim.ProcessBlock(append([]float32{}, left...), append([]float32{}, right...))
	}

	for i, v := range lastL {
		if math.Abs(float64(v)) > 0.98+1e-6 {
			t.Fatalf("left[%d]=%v exceeds ceiling", i, v)
		}
	}
	for i, v := range lastR {
		if math.Abs(float64(v)) > 0.98+1e-6 {
			t.Fatalf("right[%d]=%v exceeds ceiling", i, v)
		}
	}
	if lim.GRDb >= 0 {
		t.Fatalf("expected negative gain reduction under sustained overload, got %v", lim.GRDb)
	}
}

func TestLimiterSanitizesNonFinite(t *testing.T) {
	lim := NewLimiter(48000, DefaultLimiterConfig())
	left := []float32{float32(math.NaN()), float32(math.Inf(1)), 0.1, -0.2}
	right := []float32{float32(math.Inf(-1)), 0, 0.3, -0.1}

	for b := 0; b < 5; b++ {
		outL, outR := lim.ProcessBlock(append([]float32{}, left...), append([]float32{}, right...))
		for _, v := range outL {
			if !isFinite(v) {
				t.Fatalf("non-finite output sample in left channel")
			}
		}
		for _, v := range outR {
			if !isFinite(v) {
				t.Fatalf("non-finite output sample in right channel")
			}
		}
	}
}

func TestLimiterGrowsRingForLargerBlocks(t *testing.T) {
	lim := NewLimiter(48000, DefaultLimiterConfig())
	small := make([]float32, 64)
	big := make([]float32, 2048)

	lim.ProcessBlock(small, make([]float32, len(small)))
	outL, outR := lim.ProcessBlock(big, make([]float32, len(big)))
	if len(outL) != len(big) || len(outR) != len(big) {
		t.Fatalf("expected output length %d, got %d/%d", len(big), len(outL), len(outR))
	}
}
