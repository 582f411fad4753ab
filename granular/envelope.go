package granular

import "math"

// hannTable is a precomputed, linearly-interpolated Hann lookup table
// (spec §4.1). It generalizes the closed-form hannEnv used inline by
// grain processors in the corpus (a single sin^2 evaluation per sample)
// into a precomputed LUT with interpolated lookup, trading a table for
// the trig call on the audio thread.
type hannTable struct {
	table []float32
}

func newHannTable(size int) *hannTable {
	if size < 2 {
		size = 2
	}
	t := make([]float32, size)
	n := float64(size - 1)
	for i := 0; i < size; i++ {
		s := math.Sin(math.Pi * float64(i) / n)
		t[i] = float32(s * s)
	}
	return &hannTable{table: t}
}

// at returns the envelope value for sample position p in a grain of
// length envLen frames. For envLen <= 1 the envelope is 1 (spec §4.1).
func (h *hannTable) at(p, envLen uint32) float32 {
	if envLen <= 1 {
		return 1
	}
	frac := float64(p) / float64(envLen-1) // in [0,1]
	pos := frac * float64(len(h.table)-1)
	i0 := int(pos)
	if i0 >= len(h.table)-1 {
		return h.table[len(h.table)-1]
	}
	t := pos - float64(i0)
	a := h.table[i0]
	b := h.table[i0+1]
	return a + float32(t)*(b-a)
}
