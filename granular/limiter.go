package granular

import "math"

// Limiter is the look-ahead true-peak limiter from spec §4.8: a stereo
// ring buffer delays the signal by `lookahead` frames while a 2x
// true-peak estimate drives an instant-attack, exponential-release
// gain envelope applied to the delayed content on the way out. The
// estimate covers both the incoming block and the delayed samples being
// emitted, and release never lifts the gain above what that peak allows.
//
// Grounded on the teacher's DelayLine (dsp/dsp.go) for the ring-buffer
// shape, generalized from a single-channel fixed-size delay into a
// growable stereo ring carrying its own peak-detection and envelope
// state rather than being a passive read/write buffer.
type Limiter struct {
	sr float64

	lookahead  int
	ceiling    float32
	releaseS   float64
	masterTrim float32
	extra      int

	bufL, bufR []float32
	ringLen    int
	writeIdx   int
	filled     int // frames written so far, capped at ringLen

	prevL, prevR float32 // last sample written, for cross-block true-peak pairing

	env float32

	TPDb float32
	GRDb float32

	// scratch buffers, reused across calls and grown only alongside the
	// ring (spec §5 "all buffers are sized at construction"; growth here
	// piggybacks on the ring's own rare-growth path).
	scratchSanL, scratchSanR []float32
	scratchOutL, scratchOutR []float32
}

func NewLimiter(sr float64, cfg LimiterConfig) *Limiter {
	lm := &Limiter{
		sr:         sr,
		lookahead:  maxInt(1, int(math.Round(cfg.LookaheadMs/1000*sr))),
		ceiling:    float32(cfg.Ceiling),
		releaseS:   cfg.ReleaseMs / 1000,
		masterTrim: float32(cfg.MasterTrim),
		extra:      cfg.Extra,
		env:        1,
	}
	lm.growRing(128)
	lm.ensureScratch(128)
	return lm
}

func (lm *Limiter) growRing(blockFrames int) {
	needed := lm.lookahead + blockFrames + lm.extra
	if needed <= lm.ringLen {
		return
	}
	newLen := needed
	if lm.ringLen*2 > newLen {
		newLen = lm.ringLen * 2
	}
	newL := make([]float32, newLen)
	newR := make([]float32, newLen)
	// preserve the most recent content, oldest-first, ending at writeIdx.
	if lm.ringLen > 0 {
		n := minInt(lm.filled, lm.ringLen)
		for i := 0; i < n; i++ {
			src := (lm.writeIdx - n + i + lm.ringLen*2) % lm.ringLen
			newL[i] = lm.bufL[src]
			newR[i] = lm.bufR[src]
		}
		lm.writeIdx = n % newLen
	} else {
		lm.writeIdx = 0
	}
	lm.bufL, lm.bufR, lm.ringLen = newL, newR, newLen
}

func (lm *Limiter) ensureScratch(n int) {
	if len(lm.scratchSanL) >= n {
		return
	}
	lm.scratchSanL = make([]float32, n)
	lm.scratchSanR = make([]float32, n)
	lm.scratchOutL = make([]float32, n)
	lm.scratchOutR = make([]float32, n)
}

func sanitizeSample(x float32) float32 {
	if !isFinite(x) {
		return 0
	}
	ax := x
	if ax < 0 {
		ax = -ax
	}
	if ax < 1e-24 {
		return 0
	}
	if ax > 1e6 {
		if x > 0 {
			return 1e6
		}
		return -1e6
	}
	return x
}

// ProcessBlock reads one block of mixed master audio (left and right are
// not modified) and returns the delayed, limited output. The returned
// slices are the limiter's own scratch buffers and are overwritten by
// the next call.
func (lm *Limiter) ProcessBlock(left, right []float32) ([]float32, []float32) {
	n := len(left)
	if n == 0 {
		return left, right
	}
	lm.growRing(n)
	lm.ensureScratch(n)

	sanL := lm.scratchSanL[:n]
	sanR := lm.scratchSanR[:n]
	for i := 0; i < n; i++ {
		sanL[i] = sanitizeSample(left[i]) * lm.masterTrim
		sanR[i] = sanitizeSample(right[i]) * lm.masterTrim
	}

	tp := lm.estimateTruePeak(sanL, sanR)

	for i := 0; i < n; i++ {
		lm.bufL[lm.writeIdx] = sanL[i]
		lm.bufR[lm.writeIdx] = sanR[i]
		lm.writeIdx = (lm.writeIdx + 1) % lm.ringLen
	}
	lm.filled += n
	if lm.filled > lm.ringLen {
		lm.filled = lm.ringLen
	}
	lm.prevL, lm.prevR = sanL[n-1], sanR[n-1]

	// The samples emitted below were written earlier; fold their peak in
	// so the gain also holds them under the ceiling.
	readIdx := (lm.writeIdx - n - lm.lookahead + lm.ringLen*4) % lm.ringLen
	for i, j := 0, readIdx; i < n; i, j = i+1, (j+1)%lm.ringLen {
		tp = float32(math.Max(float64(tp), math.Max(math.Abs(float64(lm.bufL[j])), math.Abs(float64(lm.bufR[j])))))
	}

	needed := float32(1)
	if tp > 1e-9 {
		needed = lm.ceiling / tp
		if needed > 1 {
			needed = 1
		}
	}

	if needed < lm.env {
		lm.env = needed
	} else {
		rel := fastExpF32(float32(-1 / (lm.sr * lm.releaseS)))
		lm.env = 1 - (1-lm.env)*rel
		if lm.env > needed {
			lm.env = needed
		}
	}

	outL := lm.scratchOutL[:n]
	outR := lm.scratchOutR[:n]
	for i := 0; i < n; i++ {
		outL[i] = lm.bufL[readIdx] * lm.env
		outR[i] = lm.bufR[readIdx] * lm.env
		readIdx = (readIdx + 1) % lm.ringLen
	}

	tpAfter := tp * lm.env
	lm.TPDb = linearToDb(tpAfter)
	lm.GRDb = linearToDb(lm.env)

	return outL, outR
}

// estimateTruePeak implements spec §4.8 step 3: linear 2x midpoint
// upsampling across the stereo block, considering the boundary sample
// carried over from the previous block.
func (lm *Limiter) estimateTruePeak(left, right []float32) float32 {
	peak := float32(0)
	consider := func(v float32) {
		a := v
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	prevL, prevR := lm.prevL, lm.prevR
	for i := 0; i < len(left); i++ {
		consider(left[i])
		consider(right[i])
		consider(0.5 * (prevL + left[i]))
		consider(0.5 * (prevR + right[i]))
		prevL, prevR = left[i], right[i]
	}
	return peak
}

func linearToDb(x float32) float32 {
	if x <= 0 {
		return float32(math.Inf(-1))
	}
	return float32(20 * math.Log10(float64(x)))
}
