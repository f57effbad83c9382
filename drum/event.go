package drum

import "fmt"

// MaxVelocity is the strike strength sent when the velocity mode is fixed.
const MaxVelocity = 127

type EventKind int

const (
	NoteOn EventKind = iota
	NoteOff
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "NOTE_ON"
	case NoteOff:
		return "NOTE_OFF"
	}
	return "UNKNOWN"
}

// Event is a single note transition produced by a channel. Velocity is zero
// for NoteOff.
type Event struct {
	Kind     EventKind
	Channel  int
	Note     uint8
	Velocity uint8
}

func (e Event) String() string {
	if e.Kind == NoteOn {
		return fmt.Sprintf("%s(ch=%d note=%d vel=%d)", e.Kind, e.Channel, e.Note, e.Velocity)
	}
	return fmt.Sprintf("%s(ch=%d note=%d)", e.Kind, e.Channel, e.Note)
}

// Sampler yields one amplitude reading per channel per poll cycle.
type Sampler interface {
	ReadSample(channel int) int
}

// Latcher is implemented by samplers that acquire all channels at once (for
// example one serial frame per cycle). Latch is called once at the start of
// every cycle, before the hold level and any sample is read.
type Latcher interface {
	Latch() error
}

// HoldSensor reports whether the hold control is engaged.
type HoldSensor interface {
	ReadHold() bool
}

// IndicatorOutput mirrors the hold state. Observability only.
type IndicatorOutput interface {
	SetIndicator(on bool)
}

// EventSink encodes an emitted event into the output protocol.
type EventSink interface {
	Emit(ev Event) error
}
