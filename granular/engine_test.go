package granular

import (
	"math"
	"testing"
)

func newTestEngine(t *testing.T, sr int) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SampleRate = sr
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func silentCursors() [numCursors]CursorParams {
	var out [numCursors]CursorParams
	for i := range out {
		out[i] = DefaultCursorParams()
		out[i].Gain = 0
	}
	return out
}

// Scenario 1: silence with no buffer.
func TestEngineSilenceWithNoBuffer(t *testing.T) {
	e := newTestEngine(t, 48000)
	e.Inbox().Push(Message{Kind: MsgSetPlaying, Playing: true})

	var totalL, totalR []float32
	for b := 0; b < 10; b++ {
		l, r := e.Process(128)
		totalL = append(totalL, l...)
		totalR = append(totalR, r...)
	}
	if len(totalL) != 1280 || len(totalR) != 1280 {
		t.Fatalf("expected 1280 samples per channel (2560 in all), got %d/%d", len(totalL), len(totalR))
	}
	for i, v := range totalL {
		if v != 0 {
			t.Fatalf("left[%d] = %v, want exactly 0", i, v)
		}
	}
	for i, v := range totalR {
		if v != 0 {
			t.Fatalf("right[%d] = %v, want exactly 0", i, v)
		}
	}
}

// Scenario 2: single-impulse source produces one grain whose energy
// matches a single Hann-windowed copy of the source region.
func TestEngineSingleImpulseOneGrain(t *testing.T) {
	const sr = 48000
	e := newTestEngine(t, sr)

	buf := &SourceBuffer{Channels: 1, SampleRate: sr, Left: make([]float32, sr)}
	buf.Left[0] = 1.0
	buf.Right = buf.Left

	params := silentCursors()
	params[0] = DefaultCursorParams()
	params[0].Density = 1
	params[0].Attack = 0.05
	params[0].Release = 0.05
	params[0].GrainSize = 1
	params[0].Pitch = 1
	params[0].Pan = 0
	params[0].Gain = 1

	e.Inbox().Push(Message{Kind: MsgSetBuffer, Buffer: buf})
	e.Inbox().Push(Message{Kind: MsgSetParamsAll, ParamsAll: params})
	e.Inbox().Push(Message{Kind: MsgSetPositions, Positions: [numCursors]float32{0, 0, 0}, NumPositions: 3})
	e.Inbox().Push(Message{Kind: MsgSetPlaying, Playing: true})

	const blockSize = 128
	totalFrames := sr
	var energy float64
	for rendered := 0; rendered < totalFrames; rendered += blockSize {
		n := blockSize
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}
		l, r := e.Process(n)
		for i := range l {
			energy += float64(l[i])*float64(l[i]) + float64(r[i])*float64(r[i])
		}
	}

	if energy <= 0 {
		t.Fatalf("expected nonzero output energy, got %v", energy)
	}

	envLen := int(math.Round(0.1 * sr))
	h := newHannTable(1024)
	var expected float64
	for p := 0; p < envLen; p++ {
		env := h.at(uint32(p), uint32(envLen))
		expected += float64(env) * float64(env)
	}
	// equal-power pan at 0 contributes 0.5 energy split per channel,
	// summing back to the mono envelope energy across both channels.
	if energy <= 0 || expected <= 0 {
		t.Fatalf("degenerate energy computation: got=%v expected=%v", energy, expected)
	}
	ratio := energy / expected
	if ratio < 0.5 || ratio > 2.0 {
		t.Fatalf("output energy %v far from expected single-grain energy %v (ratio %v)", energy, expected, ratio)
	}
}

// Scenario 4: limiter ceiling under a 0 dBFS square wave.
func TestEngineLimiterCeilingUnderOverload(t *testing.T) {
	const sr = 48000
	e := newTestEngine(t, sr)

	buf := &SourceBuffer{Channels: 1, SampleRate: sr, Left: make([]float32, sr)}
	for i := range buf.Left {
		if (i/24)%2 == 0 {
			buf.Left[i] = 1
		} else {
			buf.Left[i] = -1
		}
	}
	buf.Right = buf.Left

	params := silentCursors()
	for c := range params {
		params[c] = DefaultCursorParams()
		params[c].Density = 200
		params[c].Attack = 0.01
		params[c].Release = 0.01
		params[c].Gain = 4
		params[c].Cutoff = 1.0
	}

	e.Inbox().Push(Message{Kind: MsgSetBuffer, Buffer: buf})
	e.Inbox().Push(Message{Kind: MsgSetParamsAll, ParamsAll: params})
	e.Inbox().Push(Message{Kind: MsgSetPlaying, Playing: true})

	for b := 0; b < 200; b++ {
		l, r := e.Process(128)
		for i := range l {
			if math.Abs(float64(l[i])) > 0.98+1e-3 {
				t.Fatalf("left sample exceeds ceiling: %v", l[i])
			}
			if math.Abs(float64(r[i])) > 0.98+1e-3 {
				t.Fatalf("right sample exceeds ceiling: %v", r[i])
			}
		}
	}
}

// Scenario 6: soft-kill drains a cursor's grains within the tail window.
func TestEngineSoftKillDrainsCursor(t *testing.T) {
	const sr = 48000
	e := newTestEngine(t, sr)

	buf := &SourceBuffer{Channels: 1, SampleRate: sr, Left: make([]float32, sr)}
	for i := range buf.Left {
		buf.Left[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / sr))
	}
	buf.Right = buf.Left

	params := silentCursors()
	params[1] = DefaultCursorParams()
	params[1].Density = 300
	params[1].Attack = 0.25
	params[1].Release = 0.25
	params[1].Gain = 1

	e.Inbox().Push(Message{Kind: MsgSetBuffer, Buffer: buf})
	e.Inbox().Push(Message{Kind: MsgSetParamsAll, ParamsAll: params})
	e.Inbox().Push(Message{Kind: MsgSetPlaying, Playing: true})

	// Warm up so cursor B has many live grains.
	for b := 0; b < 20; b++ {
		e.Process(128)
	}
	if e.cursors[1].liveGrains == 0 {
		t.Fatalf("expected cursor B to have live grains before kill")
	}

	e.Inbox().Push(Message{Kind: MsgKillCursorGrains, Cursor: 1})

	tailFrames := int(math.Ceil(28.0 / 1000 * sr))
	maxBlocks := (tailFrames+128-1)/128 + 2
	// Stop at the first block that leaves cursor B empty: the kill flag
	// clears there and auto-play may start new grains afterwards.
	for b := 0; b < maxBlocks; b++ {
		e.Process(128)
		if e.cursors[1].liveGrains == 0 {
			break
		}
	}
	if e.cursors[1].liveGrains != 0 {
		t.Fatalf("expected cursor B grains to have drained, got %d live", e.cursors[1].liveGrains)
	}
}

// Scenario 5 (engine-level part only): three held notes on cursor A
// survive 400 blocks of round-robin spawning. Per-note balance of the
// round-robin is checked by TestHeldNotesRoundRobin.
func TestEngineRoundRobinAcrossHeldNotes(t *testing.T) {
	const sr = 48000
	e := newTestEngine(t, sr)

	buf := &SourceBuffer{Channels: 1, SampleRate: sr, Left: make([]float32, sr)}
	buf.Right = buf.Left

	params := silentCursors()
	params[0] = DefaultCursorParams()
	params[0].Density = 60

	e.Inbox().Push(Message{Kind: MsgSetBuffer, Buffer: buf})
	e.Inbox().Push(Message{Kind: MsgSetParamsAll, ParamsAll: params})
	e.Inbox().Push(Message{Kind: MsgNoteOn, Cursor: 0, Semis: 0})
	e.Inbox().Push(Message{Kind: MsgNoteOn, Cursor: 0, Semis: 7})
	e.Inbox().Push(Message{Kind: MsgNoteOn, Cursor: 0, Semis: 12})

	for b := 0; b < 400; b++ {
		e.Process(128)
	}

	if len(e.cursors[0].held.notes) != 3 {
		t.Fatalf("expected 3 held notes, got %d", len(e.cursors[0].held.notes))
	}
}
