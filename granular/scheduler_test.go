package granular

import (
	"math"
	"math/rand"
	"testing"
)

func TestBackpressureFactorThresholds(t *testing.T) {
	cases := []struct {
		active, capacity int
		want             float64
	}{
		{0, 1000, 1.0},
		{499, 1000, 1.0},
		{500, 1000, 0.65},
		{699, 1000, 0.65},
		{700, 1000, 0.4},
		{849, 1000, 0.4},
		{850, 1000, 0.2},
		{949, 1000, 0.2},
		{950, 1000, 0.0},
		{1000, 1000, 0.0},
	}
	for _, c := range cases {
		got := backpressureFactor(c.active, c.capacity)
		if got != c.want {
			t.Errorf("backpressureFactor(%d,%d) = %v, want %v", c.active, c.capacity, got, c.want)
		}
	}
}

func TestPoissonSchedulerConvergesToDensity(t *testing.T) {
	const sr = 48000.0
	const density = 20.0
	const seconds = 5.0
	const blockFrames = 128

	s := newPoissonScheduler(rand.New(rand.NewSource(42)))
	totalSpawns := 0
	blocks := int(sr * seconds / blockFrames)
	for i := 0; i < blocks; i++ {
		spawns := s.advance(sr, density, 0, 10000, blockFrames, 1000)
		totalSpawns += len(spawns)
	}

	expected := density * seconds
	sigma := math.Sqrt(expected)
	if diff := math.Abs(float64(totalSpawns) - expected); diff > 4*sigma {
		t.Fatalf("spawn count %d too far from expected %v (sigma=%v)", totalSpawns, expected, sigma)
	}
}

func TestPoissonSchedulerZeroDensityDoesNotSpawn(t *testing.T) {
	s := newPoissonScheduler(rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		spawns := s.advance(48000, 0, 0, 1000, 128, 100)
		if len(spawns) != 0 {
			t.Fatalf("expected no spawns at density=0, got %d", len(spawns))
		}
	}
}

func TestPoissonSchedulerRespectsSpawnCap(t *testing.T) {
	s := newPoissonScheduler(rand.New(rand.NewSource(7)))
	spawns := s.advance(48000, 1e6, 0, 1000, 4096, 24)
	if len(spawns) > 24 {
		t.Fatalf("spawn count %d exceeds S_max=24", len(spawns))
	}
}
