package granular

import (
	"math"
	"math/rand"
)

// Engine is the realtime render core (spec §2 C9, §4). It owns the
// grain pool, the per-cursor filters and schedulers, the limiter, and
// the inbox/outbox; everything here runs on the single audio-callback
// thread. Block buffers are sized at construction for 128-frame blocks
// and are grown only when a larger block arrives.
type Engine struct {
	cfg Config
	sr  float64

	cursors    [numCursors]*cursor
	schedulers [numCursors]*poissonScheduler
	params     *paramPlane
	pool       *grainPool
	hann       *hannTable
	limiter    *Limiter
	convolver  *BodyConvolver

	buffer   *SourceBuffer
	loudness *LoudnessMap

	inbox  *inbox
	outbox *outbox

	rng *rand.Rand

	busL [numCursors][]float32
	busR [numCursors][]float32
	mstL []float32
	mstR []float32

	framesSinceTelemetry int
	telemetryPeriod      int
}

// NewEngine constructs the engine. Returns a *ConfigError for any fatal
// precondition in cfg (spec §4.10).
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sr := float64(cfg.SampleRate)
	e := &Engine{
		cfg:     cfg,
		sr:      sr,
		params:  newParamPlane(),
		pool:    newGrainPool(cfg.MaxGrains),
		hann:    newHannTable(cfg.EnvTableSize),
		limiter: NewLimiter(sr, cfg.Limiter),
		inbox:   newInbox(),
		outbox:  newOutbox(),
		rng:     rand.New(rand.NewSource(1)),
	}
	e.convolver = NewBodyConvolver(cfg.SampleRate)
	e.telemetryPeriod = maxInt(1, int(sr/30))
	e.ensureBusCapacity(128)

	for c := 0; c < numCursors; c++ {
		e.cursors[c] = newCursor(sr, cfg.FilterTauMs)
		e.schedulers[c] = newPoissonScheduler(rand.New(rand.NewSource(int64(c) + 1)))
	}
	return e, nil
}

// LoadBodyIR loads a stereo impulse response for the optional body/
// cabinet convolution stage and enables it. Construction-time only:
// callers should load the IR before the first Process call.
func (e *Engine) LoadBodyIR(path string) error {
	return e.convolver.SetIRFromWAV(path)
}

// Inbox returns the handle the control thread pushes messages into.
func (e *Engine) Inbox() *inbox { return e.inbox }

// Outbox returns the handle the control thread drains telemetry from.
func (e *Engine) Outbox() *outbox { return e.outbox }

func (e *Engine) ensureBusCapacity(n int) {
	for c := 0; c < numCursors; c++ {
		if len(e.busL[c]) < n {
			e.busL[c] = make([]float32, n)
			e.busR[c] = make([]float32, n)
		}
	}
	if len(e.mstL) < n {
		e.mstL = make([]float32, n)
		e.mstR = make([]float32, n)
	}
}

// Process renders one block of numFrames frames and returns the left
// and right output buffers (spec §6 "two interleaved-by-channel float
// buffers per call").
func (e *Engine) Process(numFrames int) ([]float32, []float32) {
	if numFrames <= 0 {
		return nil, nil
	}
	e.ensureBusCapacity(numFrames)

	e.inbox.Drain(e.applyMessage)

	snapshot := e.params.snapshot()

	for c := 0; c < numCursors; c++ {
		cur := e.cursors[c]
		p := snapshot[c]
		cur.advanceLFO(float64(p.LFOFreq), numFrames, e.sr)
		cur.advancePosition(float64(p.ScanSpeed), numFrames, e.sr)
		cur.smoothGain(p.Gain, numFrames, e.sr, float64(e.cfg.GainTauMs)/1000)
	}

	e.pool.resetStartFrames()
	sMax := e.cfg.maxSpawnPerBlock()
	for c := 0; c < numCursors; c++ {
		cur := e.cursors[c]
		if !cur.schedulingActive() {
			continue
		}
		p := snapshot[c]
		spawns := e.schedulers[c].advance(e.sr, float64(p.Density), e.pool.live, e.cfg.MaxGrains, numFrames, sMax)
		for _, sp := range spawns {
			e.spawnGrain(c, p, sp.frameOffset)
		}
	}

	for c := 0; c < numCursors; c++ {
		for i := 0; i < numFrames; i++ {
			e.busL[c][i] = 0
			e.busR[c][i] = 0
		}
	}

	e.renderGrains(numFrames)

	for c := 0; c < numCursors; c++ {
		cur := e.cursors[c]
		if cur.softKilling && cur.liveGrains == 0 {
			cur.softKilling = false
		}
	}

	for c := 0; c < numCursors; c++ {
		p := snapshot[c]
		cur := e.cursors[c]
		baseHz := float64(p.effectiveCutoffHz(e.sr))
		mod := 1 + float64(p.LFODepth)*math.Sin(cur.lfoPhase)
		effFc := clampF64(baseHz*mod, 20, 0.45*e.sr)
		cur.filter.ProcessBlock(e.busL[c][:numFrames], e.busR[c][:numFrames], float32(effFc), p.effectiveQ(), p.effectiveDrive(), p.slopeStages(), numFrames)
	}

	for i := 0; i < numFrames; i++ {
		var l, r float32
		// Without a source the master bus stays exactly zero (the filters'
		// denormal offset would otherwise leak through).
		if e.buffer.Frames() > 0 {
			for c := 0; c < numCursors; c++ {
				l += e.busL[c][i]
				r += e.busR[c][i]
			}
		}
		e.mstL[i] = l
		e.mstR[i] = r
	}

	bodyL, bodyR := e.convolver.ProcessBlock(e.mstL[:numFrames], e.mstR[:numFrames])
	outL, outR := e.limiter.ProcessBlock(bodyL, bodyR)

	e.emitTelemetry(numFrames, snapshot)

	return outL, outR
}

func (e *Engine) applyMessage(m Message) {
	switch m.Kind {
	case MsgSetBuffer:
		// Buffer swaps happen here, once per drained message, strictly
		// between blocks: applyMessage only ever runs from inbox.Drain at
		// the top of Process, so a render pass always sees one buffer
		// pointer for its whole duration (spec §5/§8 "no block straddles
		// two different source buffers").
		if m.Buffer != nil {
			e.buffer = m.Buffer
		}
	case MsgSetLoudnessMap:
		e.loudness = m.LoudnessMap
	case MsgSetParamsAll:
		for c := 0; c < numCursors; c++ {
			e.params.setCursor(c, m.ParamsAll[c])
		}
	case MsgSetParamsFor:
		e.params.setCursor(m.Cursor, m.Params)
	case MsgSetPositions:
		n := minInt(m.NumPositions, numCursors)
		for c := 0; c < n; c++ {
			e.cursors[c].position = wrap01(float64(m.Positions[c]))
		}
	case MsgSetPlaying:
		for c := 0; c < numCursors; c++ {
			e.cursors[c].setPlaying(m.Playing)
		}
	case MsgNoteOn:
		if m.Cursor >= 0 && m.Cursor < numCursors {
			e.cursors[m.Cursor].noteOn(m.Semis)
		}
	case MsgNoteOff:
		if m.Cursor >= 0 && m.Cursor < numCursors {
			e.cursors[m.Cursor].noteOff(m.Semis)
		}
	case MsgNoteOnAll:
		for c := 0; c < numCursors; c++ {
			e.cursors[c].noteOn(m.Semis)
		}
	case MsgNoteOffAll:
		for c := 0; c < numCursors; c++ {
			e.cursors[c].noteOff(m.Semis)
		}
	case MsgClearKbNotes:
		if m.Cursor >= 0 && m.Cursor < numCursors {
			e.cursors[m.Cursor].clearKbNotes()
		}
	case MsgKillCursorGrains:
		e.requestKill(m.Cursor)
	case MsgPing:
		e.outbox.Push(Telemetry{Kind: TelReady})
	}
}

func (e *Engine) requestKill(cursorIdx int) {
	tail := int(math.Ceil(e.cfg.KillTailMs / 1000 * e.sr))
	apply := func(c int) {
		e.cursors[c].requestKill(tail)
		for i := 0; i < e.pool.live; i++ {
			if int(e.pool.cursorID[i]) == c {
				lim := e.pool.envPos[i] + uint32(tail)
				if lim < e.pool.envLen[i] {
					e.pool.envLen[i] = lim
				}
			}
		}
	}
	if cursorIdx < 0 {
		for c := 0; c < numCursors; c++ {
			apply(c)
		}
		return
	}
	if cursorIdx < numCursors {
		apply(cursorIdx)
	}
}

func (e *Engine) spawnGrain(c int, p CursorParams, offsetFrames uint16) {
	if e.buffer == nil || e.buffer.Frames() == 0 {
		return
	}
	cur := e.cursors[c]
	srcDur := e.buffer.DurationSeconds()

	dur := p.durationSeconds()
	envLen := uint32(math.Round(dur * e.sr))
	if envLen < 1 {
		envLen = 1
	}

	spread := float64(maxF32(p.Spread, 0))
	jitter := 0.0
	if spread > 0 {
		jitter = (e.rng.Float64()*2 - 1) * spread
	}
	t0 := cur.position*srcDur + jitter
	maxStart := math.Max(0, srcDur-dur)
	t0 = clampF64(t0, 0, maxStart)

	semis := cur.held.next()
	// inc is in source-frames per output-frame.
	inc := float64(p.Pitch) * math.Pow(2, float64(semis)/12) * (float64(e.buffer.SampleRate) / e.sr)

	panL, panR := equalPowerPan(p.Pan)

	gComp := float32(1)
	if e.loudness != nil {
		const target, gamma, eps = 0.12, 0.6, 1e-4
		rms := e.loudness.at(t0)
		gComp = float32(math.Pow(float64(target)/math.Max(eps, float64(rms)), gamma))
	}

	startPhase := t0 * float64(e.buffer.SampleRate)
	e.pool.alloc(uint8(c), startPhase, float32(inc), envLen, panL, panR, gComp, offsetFrames)
}

// renderGrains advances every live grain, accumulates its contribution
// into its owning cursor bus, and frees grains that completed their
// envelope (spec §4.6).
func (e *Engine) renderGrains(numFrames int) {
	for c := 0; c < numCursors; c++ {
		e.cursors[c].liveGrains = 0
	}
	i := 0
	for i < e.pool.live {
		c := int(e.pool.cursorID[i])
		start := int(e.pool.startFrame[i])
		phase := e.pool.phase[i]
		inc := float64(e.pool.inc[i])
		envPos := e.pool.envPos[i]
		envLen := e.pool.envLen[i]
		panL := e.pool.panL[i]
		panR := e.pool.panR[i]
		gComp := e.pool.gainComp[i]
		gainSmooth := e.cursors[c].gainSmooth

		n := e.buffer.Frames()
		bl, br := e.busL[c], e.busR[c]

		for f := start; f < numFrames && envPos < envLen; f++ {
			env := e.hann.at(envPos, envLen)
			l, r := e.sampleSource(phase, n)
			g := env * gComp * gainSmooth
			bl[f] += l * g * panL
			br[f] += r * g * panR
			phase += inc
			envPos++
		}

		e.pool.phase[i] = phase
		e.pool.envPos[i] = envPos

		if envPos >= envLen {
			e.pool.free(i)
			continue
		}
		e.cursors[c].liveGrains++
		i++
	}
}

func (e *Engine) sampleSource(framePhase float64, n int) (float32, float32) {
	if n == 0 {
		return 0, 0
	}
	return e.buffer.sampleAt(framePhase / float64(e.buffer.SampleRate))
}

func (e *Engine) emitTelemetry(numFrames int, snapshot [numCursors]CursorParams) {
	e.framesSinceTelemetry += numFrames
	if e.framesSinceTelemetry < e.telemetryPeriod {
		return
	}
	e.framesSinceTelemetry = 0

	var pos Telemetry
	pos.Kind = TelPositions
	for c := 0; c < numCursors; c++ {
		pos.Positions[c] = float32(e.cursors[c].position)
	}
	e.outbox.Push(pos)

	e.outbox.Push(Telemetry{
		Kind: TelMetrics,
		TPDb: e.limiter.TPDb,
		GRDb: e.limiter.GRDb,
	})
}
