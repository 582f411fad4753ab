package granular

import "math"

// biquadLP is a single RBJ lowpass biquad in transposed direct-form II,
// per spec §4.3. Grounded on the teacher's Biquad in dsp/dsp.go (same
// RBJ cookbook coefficient derivation and b0/b1/b2/a1/a2 normalization)
// but restructured from direct-form I to TDF2's two-state update, and
// with the denormal-flush DC offset summed into the input rather than
// zeroing the output.
type biquadLP struct {
	b0, b1, b2 float32
	a1, a2     float32
	z1, z2     float32
}

const denormalGuard = 1e-24

func (f *biquadLP) setCoeffs(fcHz, q, sr float64) {
	fcHz = clampF64(fcHz, 15, 0.45*sr)
	if q < 0.25 {
		q = 0.25
	}
	w0 := 2 * math.Pi * fcHz / sr
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0 := (1 - cosw0) / 2
	b1 := 1 - cosw0
	b2 := (1 - cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	f.b0 = float32(b0 / a0)
	f.b1 = float32(b1 / a0)
	f.b2 = float32(b2 / a0)
	f.a1 = float32(a1 / a0)
	f.a2 = float32(a2 / a0)
}

func (f *biquadLP) process(x float32) float32 {
	x += denormalGuard
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

func (f *biquadLP) reset() {
	f.z1, f.z2 = 0, 0
}

// FilterChannel wraps one or two cascaded biquadLP stages per channel
// (12 or 24 dB/oct), a per-block one-pole smoother on cutoff, Q and
// drive, and a pre-filter tanh drive stage (spec §4.3).
type FilterChannel struct {
	sr         float64
	tauSeconds float64

	stagesL [2]biquadLP
	stagesR [2]biquadLP
	stages  int

	fcSmooth    float32
	qSmooth     float32
	driveSmooth float32

	appliedFc float64
	appliedQ  float64
	coeffsSet bool
}

func NewFilterChannel(sr, tauMs float64) *FilterChannel {
	return &FilterChannel{
		sr:         sr,
		tauSeconds: tauMs / 1000,
		stages:     1,
		fcSmooth:   1000,
		qSmooth:    0.707,
	}
}

func blockSmoothingCoef(tauSeconds float64, blockFrames int, sr float64) float32 {
	if tauSeconds <= 0 {
		return 1
	}
	x := float32(-(float64(blockFrames) / sr) / tauSeconds)
	return 1 - fastExpF32(x)
}

// ProcessBlock filters left/right in place. targetFcHz/targetQ/targetDrive
// are this block's parameter-plane values; slopeStages is 1 or 2.
func (fc *FilterChannel) ProcessBlock(left, right []float32, targetFcHz, targetQ, targetDrive float32, slopeStages, blockFrames int) {
	k := blockSmoothingCoef(fc.tauSeconds, blockFrames, fc.sr)
	fc.fcSmooth += (targetFcHz - fc.fcSmooth) * k
	fc.qSmooth += (targetQ - fc.qSmooth) * k
	fc.driveSmooth += (targetDrive - fc.driveSmooth) * k

	if slopeStages < 1 {
		slopeStages = 1
	}
	if slopeStages > 2 {
		slopeStages = 2
	}
	fc.stages = slopeStages

	fcHz := float64(fc.fcSmooth)
	q := float64(fc.qSmooth)
	if !fc.coeffsSet || fcHz != fc.appliedFc || q != fc.appliedQ {
		for s := 0; s < 2; s++ {
			fc.stagesL[s].setCoeffs(fcHz, q, fc.sr)
			fc.stagesR[s].setCoeffs(fcHz, q, fc.sr)
		}
		fc.appliedFc = fcHz
		fc.appliedQ = q
		fc.coeffsSet = true
	}

	drive := fc.driveSmooth
	applyDrive := drive > 1

	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		l, r := left[i], right[i]
		if applyDrive {
			l = tanhf(l * drive)
			r = tanhf(r * drive)
		}
		for s := 0; s < fc.stages; s++ {
			l = fc.stagesL[s].process(l)
			r = fc.stagesR[s].process(r)
		}
		left[i] = l
		right[i] = r
	}
}

func tanhf(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}
