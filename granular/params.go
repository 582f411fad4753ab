package granular

// CursorParams is the enumerated per-cursor parameter contract from
// spec §3. Values are caller-facing (a control thread fills these in and
// sends them through set_params_all/set_params_for); the audio thread
// never sees this type directly — it reads through paramPlane's
// validated snapshot instead.
type CursorParams struct {
	Attack    float32 // seconds, >= 0
	Release   float32 // seconds, >= 0
	GrainSize float32 // multiplier, > 0
	Density   float32 // grains/s, > 0
	Spread    float32 // seconds, >= 0
	Pan       float32 // [-1,+1]
	Pitch     float32 // ratio, > 0
	Cutoff    float32 // Hz if > 1, else normalized [0,1] fraction of 0.45*sr
	Q         float32 // normalized [0,1]
	Drive     float32 // normalized [0,1]
	Slope     float32 // 12 or 24
	LFOFreq   float32 // Hz
	LFODepth  float32 // [0,1]
	ScanSpeed float32 // source-normalized/s
	Gain      float32 // linear, >= 0
}

// DefaultCursorParams returns a conservative, audible default parameter
// set for one cursor.
func DefaultCursorParams() CursorParams {
	return CursorParams{
		Attack:    0.02,
		Release:   0.02,
		GrainSize: 1.0,
		Density:   10,
		Spread:    0.0,
		Pan:       0,
		Pitch:     1.0,
		Cutoff:    1.0, // normalized: fully open
		Q:         0.2,
		Drive:     0,
		Slope:     12,
		LFOFreq:   0,
		LFODepth:  0,
		ScanSpeed: 0,
		Gain:      1.0,
	}
}

// effectiveCutoffHz resolves the Cutoff field into Hz, clamped to the
// biquad's valid range (spec §4.3: [15, 0.45*sr]).
func (p CursorParams) effectiveCutoffHz(sr float64) float32 {
	c := float64(p.Cutoff)
	var hz float64
	if c <= 1.0 {
		hz = c * 0.45 * sr
	} else {
		hz = c
	}
	return float32(clampF64(hz, 15, 0.45*sr))
}

// effectiveQ log-maps the normalized [0,1] Q knob to [0.3,12] (spec §3).
func (p CursorParams) effectiveQ() float32 {
	t := clampF32(p.Q, 0, 1)
	const lo, hi = 0.3, 12.0
	// log-domain interpolation.
	logLo := logf(lo)
	logHi := logf(hi)
	return expf(logLo + t*(logHi-logLo))
}

// effectiveDrive maps the normalized [0,1] drive knob to [1,10].
func (p CursorParams) effectiveDrive() float32 {
	t := clampF32(p.Drive, 0, 1)
	return 1 + t*9
}

// slopeStages returns 1 (12 dB/oct) or 2 (24 dB/oct cascaded biquads).
func (p CursorParams) slopeStages() int {
	if p.Slope >= 18 {
		return 2
	}
	return 1
}

func (p CursorParams) durationSeconds() float64 {
	gs := float64(p.GrainSize)
	if gs <= 0 {
		gs = 1
	}
	d := (float64(p.Attack) + float64(p.Release)) * gs
	if d < 0.002 {
		d = 0.002
	}
	return d
}
