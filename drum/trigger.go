package drum

// EnvelopeTrigger turns one pad's decaying amplitude into note transitions.
// It holds only immutable settings; all per-pad state lives in ChannelState.
//
// A strike is the first sample above the threshold while inactive. Further
// excursions above the threshold before release are part of the same strike
// and are not retriggered, whether or not hold is engaged. The first sample
// at or below the threshold releases the pad unless hold is engaged.
type EnvelopeTrigger struct {
	maxSample int
	mode      VelocityMode
}

func NewEnvelopeTrigger(maxSample int, mode VelocityMode) *EnvelopeTrigger {
	if maxSample <= 0 {
		maxSample = DefaultMaxSample
	}
	if mode == "" {
		mode = VelocityFixed
	}
	return &EnvelopeTrigger{maxSample: maxSample, mode: mode}
}

// Step evaluates one sample for the channel at index idx. It returns the
// emitted event and true, or a zero Event and false.
func (t *EnvelopeTrigger) Step(idx int, st *ChannelState, sample int, held bool) (Event, bool) {
	if st.Unused() {
		return Event{}, false
	}
	sample = t.clamp(sample)

	if sample > st.Threshold {
		if st.Active {
			if sample < st.DecayFloor {
				st.DecayFloor = sample
			}
			return Event{}, false
		}
		st.Active = true
		st.DecayFloor = sample
		return Event{Kind: NoteOn, Channel: idx, Note: st.Note, Velocity: t.velocity(st.Threshold, sample)}, true
	}

	if !st.Active {
		return Event{}, false
	}
	if sample < st.DecayFloor {
		st.DecayFloor = sample
	}
	// quiescent
	st.DecayFloor = st.Threshold
	if held {
		return Event{}, false
	}
	st.Active = false
	return Event{Kind: NoteOff, Channel: idx, Note: st.Note}, true
}

func (t *EnvelopeTrigger) clamp(sample int) int {
	if sample < 0 {
		return 0
	}
	if sample > t.maxSample {
		return t.maxSample
	}
	return sample
}

func (t *EnvelopeTrigger) velocity(threshold, sample int) uint8 {
	if t.mode != VelocityProportional {
		return MaxVelocity
	}
	span := t.maxSample - threshold
	if span <= 0 {
		return MaxVelocity
	}
	v := 1 + (sample-threshold)*(MaxVelocity-1)/span
	if v < 1 {
		v = 1
	}
	if v > MaxVelocity {
		v = MaxVelocity
	}
	return uint8(v)
}
