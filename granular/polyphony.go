package granular

const maxHeldNotes = 16

// heldNotes is the per-cursor held-note set from spec §3/§4.5: an
// ordered set of semitone offsets (duplicates are a no-op on add, and
// removal drops the single matching entry) consumed round-robin by the
// scheduler so that simultaneous held notes each get an equal share of
// spawned grains.
type heldNotes struct {
	notes []int16
	rr    int
}

func (h *heldNotes) add(semis int16) {
	for _, s := range h.notes {
		if s == semis {
			return
		}
	}
	if len(h.notes) >= maxHeldNotes {
		return
	}
	h.notes = append(h.notes, semis)
}

func (h *heldNotes) remove(semis int16) {
	for i, s := range h.notes {
		if s == semis {
			h.notes = append(h.notes[:i], h.notes[i+1:]...)
			if h.rr > i {
				h.rr--
			}
			if h.rr >= len(h.notes) {
				h.rr = 0
			}
			return
		}
	}
}

func (h *heldNotes) clear() {
	h.notes = h.notes[:0]
	h.rr = 0
}

func (h *heldNotes) empty() bool {
	return len(h.notes) == 0
}

// next returns the next round-robin semitone offset, or 0 if the set is
// empty (spec §4.5 "0 if the set is empty").
func (h *heldNotes) next() int16 {
	if len(h.notes) == 0 {
		return 0
	}
	s := h.notes[h.rr]
	h.rr++
	if h.rr >= len(h.notes) {
		h.rr = 0
	}
	return s
}
