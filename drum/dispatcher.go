package drum

import (
	"context"
	"fmt"
	"log/slog"
)

// IO bundles the collaborators a Dispatcher polls and feeds. Indicator and
// Logger are optional.
type IO struct {
	Sampler   Sampler
	Hold      HoldSensor
	Sink      EventSink
	Indicator IndicatorOutput
	Logger    *slog.Logger
}

// Stats counts what the dispatcher has done since construction.
type Stats struct {
	Cycles      uint64
	NoteOns     uint64
	NoteOffs    uint64
	HoldEdges   uint64
	LatchErrors uint64
	SinkErrors  uint64
}

// Dispatcher runs poll cycles: hold edge detection first, then every channel
// in ascending index order. It is single-threaded; one Cycle runs to
// completion before the next begins.
type Dispatcher struct {
	channels []ChannelState
	trigger  *EnvelopeTrigger
	hold     HoldController
	io       IO
	log      *slog.Logger
	stats    Stats
}

// NewDispatcher validates cfg and builds the channel array. Sampler, Hold and
// Sink must be non-nil.
func NewDispatcher(cfg Config, io IO) (*Dispatcher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if io.Sampler == nil || io.Hold == nil || io.Sink == nil {
		return nil, fmt.Errorf("dispatcher: sampler, hold sensor and sink are required")
	}
	log := io.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		channels: NewChannels(cfg),
		trigger:  NewEnvelopeTrigger(cfg.MaxSample, cfg.Velocity),
		io:       io,
		log:      log,
	}, nil
}

// Channels returns a snapshot of every channel's state.
func (d *Dispatcher) Channels() []ChannelState {
	return append([]ChannelState(nil), d.channels...)
}

func (d *Dispatcher) Stats() Stats { return d.stats }

// Held reports the hold level seen on the last cycle.
func (d *Dispatcher) Held() bool { return d.hold.Held() }

// Cycle runs one poll cycle.
func (d *Dispatcher) Cycle() {
	d.stats.Cycles++

	if l, ok := d.io.Sampler.(Latcher); ok {
		if err := l.Latch(); err != nil {
			// previous frame stays latched
			d.stats.LatchErrors++
			d.log.Warn("drum: sample latch failed", "cycle", d.stats.Cycles, "err", err)
		}
	}

	held := d.io.Hold.ReadHold()
	switch edge := d.hold.Observe(held); edge {
	case EdgeFalling:
		d.stats.HoldEdges++
		n := d.hold.Release(d.channels, d.emit)
		d.log.Debug("drum: hold released", "cycle", d.stats.Cycles, "released", n)
		d.indicate(false)
	case EdgeRising:
		d.stats.HoldEdges++
		d.log.Debug("drum: hold engaged", "cycle", d.stats.Cycles)
		d.indicate(true)
	}

	for i := range d.channels {
		st := &d.channels[i]
		if st.Unused() {
			continue
		}
		sample := d.io.Sampler.ReadSample(i)
		if ev, ok := d.trigger.Step(i, st, sample, held); ok {
			d.emit(ev)
		}
	}
}

// Run drives Cycle back to back. With cycles <= 0 it runs until ctx is
// cancelled; otherwise it stops after exactly that many cycles. It returns
// the number of cycles run.
func (d *Dispatcher) Run(ctx context.Context, cycles int) int {
	n := 0
	for cycles <= 0 || n < cycles {
		select {
		case <-ctx.Done():
			d.log.Info("drum: dispatcher stopped", "cycles", n, "reason", ctx.Err())
			return n
		default:
		}
		d.Cycle()
		n++
	}
	return n
}

// ReleaseAll sends NoteOff for every active channel, ignoring hold. Used on
// shutdown so no note is left sounding.
func (d *Dispatcher) ReleaseAll() int {
	n := d.hold.Release(d.channels, d.emit)
	if n > 0 {
		d.log.Info("drum: panic release", "released", n)
	}
	return n
}

func (d *Dispatcher) emit(ev Event) {
	switch ev.Kind {
	case NoteOn:
		d.stats.NoteOns++
	case NoteOff:
		d.stats.NoteOffs++
	}
	d.log.Debug("drum: event", "kind", ev.Kind, "channel", ev.Channel, "note", ev.Note, "velocity", ev.Velocity)
	if err := d.io.Sink.Emit(ev); err != nil {
		d.stats.SinkErrors++
		d.log.Warn("drum: sink emit failed", "event", ev.String(), "err", err)
	}
}

func (d *Dispatcher) indicate(on bool) {
	if d.io.Indicator != nil {
		d.io.Indicator.SetIndicator(on)
	}
}
