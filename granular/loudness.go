package granular

import "math"

// LoudnessMap is a per-window RMS summary of the source's channel 0,
// used by the grain spawner for gain compensation (spec §3, §4.5).
// Grounded on the windowRMS helper used throughout the teacher's test
// suite (piano/test_helpers_test.go), generalized into a precomputed,
// read-only summary computed once and consumed every grain spawn.
type LoudnessMap struct {
	RMS        []float32
	WindowLen  int
	SampleRate int
}

// NewLoudnessMap computes a per-window RMS summary of mono from a stereo
// source buffer's left channel, using window frames per bucket.
func NewLoudnessMap(buf *SourceBuffer, window int) *LoudnessMap {
	if buf == nil || window < 1 {
		return nil
	}
	n := buf.Frames()
	if n == 0 {
		return &LoudnessMap{RMS: nil, WindowLen: window, SampleRate: buf.SampleRate}
	}
	numWindows := (n + window - 1) / window
	rms := make([]float32, numWindows)
	for w := 0; w < numWindows; w++ {
		start := w * window
		end := minInt(start+window, n)
		var sum float64
		for i := start; i < end; i++ {
			v := float64(buf.Left[i])
			sum += v * v
		}
		rms[w] = float32(math.Sqrt(sum / float64(maxInt(1, end-start))))
	}
	return &LoudnessMap{RMS: rms, WindowLen: window, SampleRate: buf.SampleRate}
}

// at returns the RMS value for source-time t (seconds). Returns 0 for a
// nil or empty map; t outside the source is clamped to the first or last
// window.
func (m *LoudnessMap) at(t float64) float32 {
	if m == nil || len(m.RMS) == 0 || m.SampleRate <= 0 {
		return 0
	}
	frame := int(t * float64(m.SampleRate))
	if frame < 0 {
		frame = 0
	}
	idx := frame / maxInt(1, m.WindowLen)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.RMS) {
		idx = len(m.RMS) - 1
	}
	return m.RMS[idx]
}
