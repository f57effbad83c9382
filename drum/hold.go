package drum

type HoldEdge int

const (
	EdgeNone HoldEdge = iota
	EdgeRising
	EdgeFalling
)

func (e HoldEdge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	}
	return "none"
}

// HoldController edge-detects the hold control. Only the previous-vs-current
// comparison matters; a steady level in either direction does nothing.
type HoldController struct {
	held bool
}

// Held reports the level stored by the last Observe.
func (h *HoldController) Held() bool { return h.held }

// Observe stores the new level and returns the edge it produced.
func (h *HoldController) Observe(held bool) HoldEdge {
	prev := h.held
	h.held = held
	switch {
	case prev && !held:
		return EdgeFalling
	case !prev && held:
		return EdgeRising
	}
	return EdgeNone
}

// Release deactivates every active channel in ascending order and emits one
// NoteOff for each, whatever its current sample. Returns the number released.
func (h *HoldController) Release(channels []ChannelState, emit func(Event)) int {
	n := 0
	for i := range channels {
		st := &channels[i]
		if !st.Active || st.Unused() {
			continue
		}
		st.Active = false
		st.DecayFloor = st.Threshold
		emit(Event{Kind: NoteOff, Channel: i, Note: st.Note})
		n++
	}
	return n
}
