package granular

import (
	"math"
	"testing"
)

func TestFilterChannelDCStepIsBounded(t *testing.T) {
	const sr = 48000.0
	fc := NewFilterChannel(sr, 25)

	left := make([]float32, 4096)
	right := make([]float32, 4096)
	for i := range left {
		left[i] = 1
		right[i] = 1
	}

	fc.ProcessBlock(left, right, 1000, 0.707, 1, 1, len(left))

	for i, v := range left {
		if !isFinite(v) {
			t.Fatalf("non-finite output at %d", i)
		}
		if math.Abs(float64(v)) > 1.5 {
			t.Fatalf("unbounded DC response at %d: %v", i, v)
		}
	}
}

func TestFilterChannelRolloffAboveCutoff(t *testing.T) {
	const sr = 48000.0
	cutoff := float32(1000)

	measure := func(freq float32, slope float32) float32 {
		fc := NewFilterChannel(sr, 1) // fast smoothing so coefficients settle quickly
		n := 8192
		left := make([]float32, n)
		right := make([]float32, n)
		for i := 0; i < n; i++ {
			s := float32(math.Sin(2 * math.Pi * float64(freq) * float64(i) / sr))
			left[i] = s
			right[i] = s
		}
		// run two blocks so the coefficient smoother has settled on target.
		fc.ProcessBlock(left[:n/2], right[:n/2], cutoff, 0.707, 1, int(slope/12), n/2)
		fc.ProcessBlock(left[n/2:], right[n/2:], cutoff, 0.707, 1, int(slope/12), n/2)

		var sum float64
		for _, v := range left[n/2:] {
			sum += float64(v) * float64(v)
		}
		return float32(math.Sqrt(sum / float64(n/2)))
	}

	below := measure(200, 12)
	above12 := measure(4000, 12)
	above24 := measure(4000, 24)

	if above12 >= below {
		t.Fatalf("expected attenuation above cutoff: below=%v above12=%v", below, above12)
	}
	if above24 >= above12 {
		t.Fatalf("expected steeper rolloff at 24 dB/oct: above12=%v above24=%v", above12, above24)
	}
}
