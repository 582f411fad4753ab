package granular

import (
	"math"
	"sync/atomic"
)

const numCursors = 3

type paramField int

const (
	pAttack paramField = iota
	pRelease
	pGrainSize
	pDensity
	pSpread
	pPan
	pPitch
	pCutoff
	pQ
	pDrive
	pSlope
	pLFOFreq
	pLFODepth
	pScanSpeed
	pGain
	numParamFields
)

// paramPlane is the shared parameter snapshot described in spec §3: a
// 3 x numParamFields grid of atomically-stored float32 bit patterns,
// written by the control thread and sampled once per block by the
// audio thread. Each field carries its own last-known-good shadow so a
// single corrupt write (NaN/Inf from a malformed message) degrades
// only that field, not the whole block.
//
// Grounded on the SPSC ring-buffer pattern used for cross-thread
// handoff elsewhere in the corpus, generalized from a queue of full
// messages to a grid of independently-versioned scalar cells —
// appropriate here because only the latest value of each field matters,
// never the history of writes.
type paramPlane struct {
	cells    [numCursors][numParamFields]atomic.Uint32
	lastGood [numCursors][numParamFields]float32
}

func newParamPlane() *paramPlane {
	pp := &paramPlane{}
	for c := 0; c < numCursors; c++ {
		def := DefaultCursorParams()
		pp.setCursor(c, def)
		pp.lastGood[c] = fieldsOf(def)
	}
	return pp
}

func fieldsOf(p CursorParams) [numParamFields]float32 {
	var f [numParamFields]float32
	f[pAttack] = p.Attack
	f[pRelease] = p.Release
	f[pGrainSize] = p.GrainSize
	f[pDensity] = p.Density
	f[pSpread] = p.Spread
	f[pPan] = p.Pan
	f[pPitch] = p.Pitch
	f[pCutoff] = p.Cutoff
	f[pQ] = p.Q
	f[pDrive] = p.Drive
	f[pSlope] = p.Slope
	f[pLFOFreq] = p.LFOFreq
	f[pLFODepth] = p.LFODepth
	f[pScanSpeed] = p.ScanSpeed
	f[pGain] = p.Gain
	return f
}

func paramsFromFields(f [numParamFields]float32) CursorParams {
	return CursorParams{
		Attack:    f[pAttack],
		Release:   f[pRelease],
		GrainSize: f[pGrainSize],
		Density:   f[pDensity],
		Spread:    f[pSpread],
		Pan:       f[pPan],
		Pitch:     f[pPitch],
		Cutoff:    f[pCutoff],
		Q:         f[pQ],
		Drive:     f[pDrive],
		Slope:     f[pSlope],
		LFOFreq:   f[pLFOFreq],
		LFODepth:  f[pLFODepth],
		ScanSpeed: f[pScanSpeed],
		Gain:      f[pGain],
	}
}

// setCursor is called from the control thread (set_params_for/_all).
func (pp *paramPlane) setCursor(cursor int, p CursorParams) {
	if cursor < 0 || cursor >= numCursors {
		return
	}
	fields := fieldsOf(p)
	for f := paramField(0); f < numParamFields; f++ {
		pp.cells[cursor][f].Store(math.Float32bits(fields[f]))
	}
}

// setField is called from the control thread for single-field updates.
func (pp *paramPlane) setField(cursor int, f paramField, v float32) {
	if cursor < 0 || cursor >= numCursors {
		return
	}
	pp.cells[cursor][f].Store(math.Float32bits(v))
}

// snapshot is called once at the start of every audio block. It reads
// every cell, validates for finiteness, and falls back to the last
// good value on failure (spec §3 "parameter validation").
func (pp *paramPlane) snapshot() [numCursors]CursorParams {
	var out [numCursors]CursorParams
	for c := 0; c < numCursors; c++ {
		for f := paramField(0); f < numParamFields; f++ {
			bits := pp.cells[c][f].Load()
			v := math.Float32frombits(bits)
			if isFinite(v) {
				pp.lastGood[c][f] = v
			}
		}
		out[c] = paramsFromFields(pp.lastGood[c])
	}
	return out
}
