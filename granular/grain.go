package granular

// grainPool is the struct-of-arrays grain record from spec §3, sized at
// construction to MAX_GRAINS and never reallocated afterward. Deletion
// is O(1) swap-remove: the last live slot is copied into the freed
// index and the live count shrinks by one, so there is never a hole to
// skip over during render.
//
// Grounded on the teacher's struct-of-arrays conventions for per-sample
// state blocks (modal bank fields in piano/modal_group.go), generalized
// from a fixed bank of resonators to a variable-length pool with
// explicit alloc/free.
type grainPool struct {
	cursorID []uint8
	phase    []float64
	inc      []float32
	envPos   []uint32
	envLen   []uint32
	panL     []float32
	panR     []float32
	gainComp []float32

	// startFrame is transient per-block bookkeeping: the frame offset
	// within the current block at which a freshly spawned grain should
	// begin rendering (spec §4.4 step 4 spawns land mid-block). Reset to
	// 0 for every slot at the top of each block's render pass, and only
	// meaningful for grains spawned during the current block.
	startFrame []uint16

	live int
	cap  int
}

func newGrainPool(capacity int) *grainPool {
	return &grainPool{
		cursorID:   make([]uint8, capacity),
		phase:      make([]float64, capacity),
		inc:        make([]float32, capacity),
		envPos:     make([]uint32, capacity),
		envLen:     make([]uint32, capacity),
		panL:       make([]float32, capacity),
		panR:       make([]float32, capacity),
		gainComp:   make([]float32, capacity),
		startFrame: make([]uint16, capacity),
		cap:        capacity,
	}
}

// alloc appends a new grain and returns its slot index, or -1 if the
// pool is full (spec §4.5 "if full, drop silently").
func (p *grainPool) alloc(cursorID uint8, phase float64, inc float32, envLen uint32, panL, panR, gainComp float32, startFrame uint16) int {
	if p.live >= p.cap {
		return -1
	}
	i := p.live
	p.cursorID[i] = cursorID
	p.phase[i] = phase
	p.inc[i] = inc
	p.envPos[i] = 0
	p.envLen[i] = envLen
	p.panL[i] = panL
	p.panR[i] = panR
	p.gainComp[i] = gainComp
	p.startFrame[i] = startFrame
	p.live++
	return i
}

// free removes slot i via swap-remove with the last live slot.
func (p *grainPool) free(i int) {
	last := p.live - 1
	if i != last {
		p.cursorID[i] = p.cursorID[last]
		p.phase[i] = p.phase[last]
		p.inc[i] = p.inc[last]
		p.envPos[i] = p.envPos[last]
		p.envLen[i] = p.envLen[last]
		p.panL[i] = p.panL[last]
		p.panR[i] = p.panR[last]
		p.gainComp[i] = p.gainComp[last]
		p.startFrame[i] = p.startFrame[last]
	}
	p.live = last
}

func (p *grainPool) resetStartFrames() {
	for i := 0; i < p.live; i++ {
		p.startFrame[i] = 0
	}
}
