package granular

import "math"

// cursorState is one of the states enumerated in spec §4.9.
type cursorState int

const (
	stateIdle cursorState = iota
	stateAutoPlaying
	stateNoteHeld
	stateSoftKilling
)

// cursor holds the realtime state for one of the three playheads
// (spec §3 "Cursor state"). It is owned exclusively by the audio
// context; the control context only ever reaches it indirectly, by
// enqueuing inbox messages.
type cursor struct {
	position   float64 // [0,1)
	lfoPhase   float64 // radians
	held       heldNotes
	gainSmooth float32
	filter     *FilterChannel

	playing     bool // global auto-play is ON
	softKilling bool
	killTail    int // frames; set when kill_cursor_grains arrives

	liveGrains int // count of grains currently owned by this cursor
}

func newCursor(sr float64, tauMs float64) *cursor {
	return &cursor{
		filter: NewFilterChannel(sr, tauMs),
		held:   heldNotes{notes: make([]int16, 0, maxHeldNotes)},
	}
}

// state reports the cursor's logical state per spec §4.9. It is
// informational only: neither the render path nor telemetry reads it,
// and scheduling activity is decided directly by schedulingActive.
func (c *cursor) state() cursorState {
	switch {
	case c.softKilling:
		return stateSoftKilling
	case !c.held.empty():
		return stateNoteHeld
	case c.playing:
		return stateAutoPlaying
	default:
		return stateIdle
	}
}

// schedulingActive reports whether the Poisson scheduler should run for
// this cursor this block (spec §4.9 "Scheduling is active whenever the
// cursor is in AutoPlaying, NoteHeld, or both"). A soft-killing cursor
// spawns nothing until its grains have drained.
func (c *cursor) schedulingActive() bool {
	return !c.softKilling && (c.playing || !c.held.empty())
}

func (c *cursor) setPlaying(on bool) {
	c.playing = on
}

func (c *cursor) noteOn(semis int16) {
	c.held.add(semis)
}

func (c *cursor) noteOff(semis int16) {
	c.held.remove(semis)
}

func (c *cursor) clearKbNotes() {
	c.held.clear()
}

// requestKill marks this cursor for soft-kill; cleared once no grains
// of this cursor remain (spec §4.6).
func (c *cursor) requestKill(tailFrames int) {
	c.softKilling = true
	c.killTail = tailFrames
}

// advanceLFO advances the cutoff-modulation LFO phase by one block.
func (c *cursor) advanceLFO(freqHz float64, blockFrames int, sr float64) {
	c.lfoPhase += 2 * math.Pi * freqHz * (float64(blockFrames) / sr)
	c.lfoPhase = math.Mod(c.lfoPhase, 2*math.Pi)
}

// advancePosition applies scan_speed auto-advance and wraps into [0,1).
func (c *cursor) advancePosition(scanSpeed float64, blockFrames int, sr float64) {
	c.position = wrap01(c.position + scanSpeed*(float64(blockFrames)/sr))
}

// smoothGain updates the one-pole gain smoother toward target (spec §4.6).
func (c *cursor) smoothGain(target float32, blockFrames int, sr, tauSeconds float64) {
	if tauSeconds <= 0 {
		c.gainSmooth = target
		return
	}
	x := float32(-(float64(blockFrames) / sr) / tauSeconds)
	k := 1 - fastExpF32(x)
	c.gainSmooth += (target - c.gainSmooth) * k
}
