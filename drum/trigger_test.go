package drum

import "testing"

func TestTriggerSingleStrikeEmitsOneNoteOn(t *testing.T) {
	tr := NewEnvelopeTrigger(DefaultMaxSample, VelocityFixed)
	st := ChannelState{Note: 53, Threshold: 30}

	ev, ok := tr.Step(0, &st, 45, false)
	if !ok || ev.Kind != NoteOn || ev.Note != 53 || ev.Velocity != MaxVelocity {
		t.Fatalf("expected NoteOn(53, %d), got %v ok=%v", MaxVelocity, ev, ok)
	}
	if !st.Active || st.DecayFloor != 45 {
		t.Fatalf("expected active with floor 45, got %+v", st)
	}

	for i := 0; i < 3; i++ {
		if ev, ok := tr.Step(0, &st, 45, false); ok {
			t.Fatalf("repeat above-threshold sample %d emitted %v", i, ev)
		}
	}
}

func TestTriggerDecayReleasesOnce(t *testing.T) {
	tr := NewEnvelopeTrigger(DefaultMaxSample, VelocityFixed)
	st := ChannelState{Note: 38, Threshold: 30}
	tr.Step(2, &st, 900, false)

	var offs int
	for _, s := range []int{700, 400, 120, 31, 30, 12, 0} {
		if ev, ok := tr.Step(2, &st, s, false); ok {
			if ev.Kind != NoteOff || ev.Note != 38 || ev.Channel != 2 {
				t.Fatalf("unexpected event %v", ev)
			}
			offs++
		}
	}
	if offs != 1 {
		t.Fatalf("expected exactly one NoteOff, got %d", offs)
	}
	if st.Active {
		t.Fatalf("expected channel inactive after release")
	}
}

func TestTriggerHoldSuppressesRelease(t *testing.T) {
	tr := NewEnvelopeTrigger(DefaultMaxSample, VelocityFixed)
	st := ChannelState{Note: 38, Threshold: 30}
	tr.Step(0, &st, 500, true)

	for _, s := range []int{300, 100, 30, 5, 0} {
		if ev, ok := tr.Step(0, &st, s, true); ok {
			t.Fatalf("held channel emitted %v", ev)
		}
	}
	if !st.Active {
		t.Fatalf("expected channel to stay active while held")
	}
	if st.DecayFloor != 30 {
		t.Fatalf("expected decay floor clamped to threshold, got %d", st.DecayFloor)
	}
}

func TestTriggerNoRetriggerWhileHeld(t *testing.T) {
	tr := NewEnvelopeTrigger(DefaultMaxSample, VelocityFixed)
	st := ChannelState{Note: 38, Threshold: 30}
	tr.Step(0, &st, 500, true)
	tr.Step(0, &st, 10, true)

	if ev, ok := tr.Step(0, &st, 600, true); ok {
		t.Fatalf("second strike while held emitted %v", ev)
	}
	if !st.Active {
		t.Fatalf("expected channel still active")
	}
}

func TestTriggerDecayFloorTracksMinimum(t *testing.T) {
	tr := NewEnvelopeTrigger(DefaultMaxSample, VelocityFixed)
	st := ChannelState{Note: 40, Threshold: 30}
	tr.Step(0, &st, 800, false)
	tr.Step(0, &st, 600, false)
	tr.Step(0, &st, 700, false)
	if st.DecayFloor != 600 {
		t.Fatalf("expected floor 600, got %d", st.DecayFloor)
	}
}

func TestTriggerUnusedSlotNeverFires(t *testing.T) {
	tr := NewEnvelopeTrigger(DefaultMaxSample, VelocityFixed)
	st := ChannelState{Note: 0, Threshold: 30}
	for _, s := range []int{0, 1023, 5000, 1023, 0, -4} {
		if ev, ok := tr.Step(0, &st, s, false); ok {
			t.Fatalf("unused slot emitted %v for sample %d", ev, s)
		}
	}
	if st.Active {
		t.Fatalf("unused slot went active")
	}
}

func TestTriggerClampsOutOfRangeSamples(t *testing.T) {
	tr := NewEnvelopeTrigger(1023, VelocityFixed)
	st := ChannelState{Note: 40, Threshold: 30}
	tr.Step(0, &st, 70000, false)
	if st.DecayFloor != 1023 {
		t.Fatalf("expected floor clamped to 1023, got %d", st.DecayFloor)
	}
	if ev, ok := tr.Step(0, &st, -50, false); !ok || ev.Kind != NoteOff {
		t.Fatalf("expected negative sample to read as silence, got %v ok=%v", ev, ok)
	}
}

func TestTriggerProportionalVelocity(t *testing.T) {
	tr := NewEnvelopeTrigger(1023, VelocityProportional)

	cases := []struct {
		threshold int
		sample    int
		want      uint8
	}{
		{30, 31, 1},
		{31, 1023, 127},
		{31, 527, 64},
	}
	for _, c := range cases {
		st := ChannelState{Note: 40, Threshold: c.threshold}
		ev, ok := tr.Step(0, &st, c.sample, false)
		if !ok {
			t.Fatalf("sample %d: expected NoteOn", c.sample)
		}
		if ev.Velocity != c.want {
			t.Fatalf("sample %d: velocity %d, want %d", c.sample, ev.Velocity, c.want)
		}
	}
}
