package granular

import "testing"

func TestHeldNotesRoundRobin(t *testing.T) {
	var h heldNotes
	h.add(0)
	h.add(7)
	h.add(12)

	counts := map[int16]int{}
	for i := 0; i < 300; i++ {
		counts[h.next()]++
	}
	for _, semis := range []int16{0, 7, 12} {
		if counts[semis] != 100 {
			t.Errorf("semitone %d got %d spawns, want 100", semis, counts[semis])
		}
	}
}

func TestHeldNotesAddDuplicateIsNoOp(t *testing.T) {
	var h heldNotes
	h.add(5)
	h.add(5)
	if len(h.notes) != 1 {
		t.Fatalf("expected 1 note after duplicate add, got %d", len(h.notes))
	}
}

func TestHeldNotesRemoveDropsOne(t *testing.T) {
	var h heldNotes
	h.add(3)
	h.add(9)
	h.remove(3)
	if len(h.notes) != 1 || h.notes[0] != 9 {
		t.Fatalf("expected only note 9 left, got %v", h.notes)
	}
}

func TestHeldNotesEmptyNextReturnsZero(t *testing.T) {
	var h heldNotes
	if v := h.next(); v != 0 {
		t.Fatalf("expected 0 from empty held-note set, got %v", v)
	}
}

func TestHeldNotesCapped(t *testing.T) {
	var h heldNotes
	for i := int16(0); i < maxHeldNotes+10; i++ {
		h.add(i)
	}
	if len(h.notes) != maxHeldNotes {
		t.Fatalf("expected held-note set capped at %d, got %d", maxHeldNotes, len(h.notes))
	}
}
