package granular

// SourceBuffer is an immutable (from the engine's point of view) stereo
// PCM buffer (spec §3 "Source buffer"). Channels is 1 or 2; when 1, both
// output channels read the same data.
type SourceBuffer struct {
	Channels   int
	SampleRate int
	Left       []float32
	Right      []float32
}

// Frames returns the buffer length in frames.
func (b *SourceBuffer) Frames() int {
	if b == nil || b.Left == nil {
		return 0
	}
	return len(b.Left)
}

// DurationSeconds returns the buffer's duration in seconds, or 0 for a
// nil/empty buffer.
func (b *SourceBuffer) DurationSeconds() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// sampleAt reads a fractionally-interpolated stereo sample at source-time
// position t (seconds), wrapping on the buffer length. Returns (0,0) for
// a nil/empty buffer (spec §4.10 "missing source buffer").
func (b *SourceBuffer) sampleAt(t float64) (float32, float32) {
	n := b.Frames()
	if n == 0 {
		return 0, 0
	}
	pos := t * float64(b.SampleRate)
	pos = wrapFrame(pos, n)
	i0 := int(pos)
	frac := float32(pos - float64(i0))
	i1 := i0 + 1
	if i1 >= n {
		i1 = 0
	}

	l0, l1 := b.Left[i0], b.Left[i1]
	l := l0 + frac*(l1-l0)

	var r float32
	if b.Channels >= 2 && b.Right != nil {
		r0, r1 := b.Right[i0], b.Right[i1]
		r = r0 + frac*(r1-r0)
	} else {
		r = l
	}
	return l, r
}

func wrapFrame(pos float64, n int) float64 {
	nf := float64(n)
	for pos < 0 {
		pos += nf
	}
	for pos >= nf {
		pos -= nf
	}
	return pos
}
