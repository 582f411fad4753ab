package granular

import (
	"math"
	"math/rand"
)

// spawnPlan is one emitted spawn instant from the scheduler, carrying
// the in-block frame offset the grain should start rendering from
// (spec §4.4 step 4).
type spawnPlan struct {
	frameOffset uint16
}

// poissonScheduler implements spec §4.4's per-cursor exponential
// inter-arrival generator with backpressure and a per-block spawn cap.
// Grounded on the teacher's seeded-*rand.Rand idiom (irsynth/synth.go),
// generalized from a single offline noise draw to a per-block bounded
// sequence of exponential draws consumed by the realtime render path.
type poissonScheduler struct {
	countdown float64
	rng       *rand.Rand

	// spawns is a reusable scratch buffer for advance's return value,
	// grown once up to sMax and sliced fresh every call rather than
	// appended to from nil (spec §4.4 "the scheduler never ... allocates").
	spawns []spawnPlan
}

func newPoissonScheduler(rng *rand.Rand) *poissonScheduler {
	return &poissonScheduler{rng: rng}
}

func (s *poissonScheduler) ensureCap(n int) {
	if cap(s.spawns) >= n {
		return
	}
	s.spawns = make([]spawnPlan, n)
}

func backpressureFactor(active, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	ratio := float64(active) / float64(capacity)
	switch {
	case ratio < 0.5:
		return 1.0
	case ratio < 0.7:
		return 0.65
	case ratio < 0.85:
		return 0.4
	case ratio < 0.95:
		return 0.2
	default:
		return 0.0
	}
}

// freshDraw returns a fresh exponential inter-arrival in frames,
// D ~ Exp(sr/max(0.1, dEff)), rounded up to >= 1 frame.
func (s *poissonScheduler) freshDraw(sr, dEff float64) float64 {
	meanFrames := sr / math.Max(0.1, dEff)
	u := s.rng.Float64()
	if u >= 1 {
		u = 1 - 1e-12
	}
	draw := -math.Log(1-u) * meanFrames
	if draw < 1 {
		draw = 1
	}
	return math.Ceil(draw)
}

// advance runs one block's worth of scheduling and returns the spawn
// instants that occurred, each with its in-block frame offset.
func (s *poissonScheduler) advance(sr, density float64, active, capacity, blockFrames, sMax int) []spawnPlan {
	n := float64(blockFrames)
	b := backpressureFactor(active, capacity)
	dEff := density * b
	if dEff <= 0 {
		s.countdown -= n
		if s.countdown < 0 {
			s.countdown = 0
		}
		return nil
	}
	if s.countdown <= 0 {
		s.countdown = s.freshDraw(sr, dEff)
	}
	s.ensureCap(sMax)
	spawns := s.spawns[:0]
	for s.countdown <= n && len(spawns) < sMax {
		offset := s.countdown
		if offset < 0 {
			offset = 0
		}
		spawns = append(spawns, spawnPlan{frameOffset: uint16(offset)})
		s.countdown += s.freshDraw(sr, dEff)
	}
	s.countdown -= n
	return spawns
}
