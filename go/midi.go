package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/chase3718/lou-drum/drum"
)

// -------------------- Hot-swap config --------------------

// PREFERRED_PATTERNS: output ports matching any of these are picked first.
var PREFERRED_PATTERNS = []string{"FLUID", "Synth", "IAC"}

// EXCLUDED_PATTERNS: virtual/system ports that are never auto-connected.
var EXCLUDED_PATTERNS = []string{"Midi Through", "Through Port", "Dummy"}

const midiRescanInterval = 1000 * time.Millisecond

// allNotesOff is the channel mode controller that silences a channel.
const allNotesOff = 123

// -------------------- MIDIOutWatcher --------------------

// outPorts is the part of the rtmidi driver the watcher needs.
type outPorts interface {
	Outs() ([]drivers.Out, error)
}

// MIDIOutWatcher monitors available MIDI outputs and maintains a connection
// to the preferred one. It handles hot-plug (port appears) and hot-unplug
// (port disappears) transparently, and is the EventSink for -out midi.
//
// Emit runs on the dispatcher goroutine and Tick on the watcher ticker, so
// both take mu.
type MIDIOutWatcher struct {
	mu           sync.Mutex
	drv          outPorts
	closeDrv     func()
	outPort      drivers.Out
	connected    bool
	selectedName string
	lastRescanAt time.Time
	channel      uint8
	dropped      uint64
	sounding     map[uint8]bool // notes sent NoteOn on the current port
}

// NewMIDIOutWatcher creates a watcher and initialises the underlying rtmidi
// driver. Call Close() when done.
func NewMIDIOutWatcher(channel uint8) (*MIDIOutWatcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &MIDIOutWatcher{
		drv:      drv,
		closeDrv: func() { _ = drv.Close() },
		channel:  channel,
	}, nil
}

// Close shuts down the active MIDI connection and the rtmidi driver.
func (m *MIDIOutWatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeConn()
	if m.closeDrv != nil {
		m.closeDrv()
	}
}

// Emit sends the event to the connected output. With no output connected the
// event is dropped.
func (m *MIDIOutWatcher) Emit(ev drum.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := encodeEvent(ev, m.channel)
	if !m.connected {
		m.dropped++
		logger.Debug("midi: no output, event dropped", "event", ev.String(), "dropped", m.dropped)
		return nil
	}
	logger.Info("pad: "+ev.Kind.String(), "pitch", pitchName(int(ev.Note)), "pad", ev.Channel, "velocity", ev.Velocity, "device", m.selectedName)
	if err := m.outPort.Send(msg.Bytes()); err != nil {
		// port is likely gone; let the next Tick reconnect
		m.closeConn()
		m.lastRescanAt = time.Time{}
		return fmt.Errorf("midi: send %s: %w", msg.String(), err)
	}
	switch ev.Kind {
	case drum.NoteOn:
		if m.sounding == nil {
			m.sounding = make(map[uint8]bool)
		}
		m.sounding[ev.Note] = true
	case drum.NoteOff:
		delete(m.sounding, ev.Note)
	}
	return nil
}

// Tick should be called on a regular interval from the main loop. It scans
// for ports, auto-connects to a preferred one, and detects disappearances.
func (m *MIDIOutWatcher) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.lastRescanAt.IsZero() && now.Sub(m.lastRescanAt) < midiRescanInterval {
		return
	}
	m.lastRescanAt = now

	outputs := m.listOutputs()

	if m.connected {
		for _, n := range outputs {
			if n == m.selectedName {
				return // still there, nothing to do
			}
		}
		logger.Warn("midi: output disappeared", "device", m.selectedName)
		m.closeConn()
		m.lastRescanAt = time.Time{} // rescan immediately next tick
		return
	}

	if len(outputs) == 0 {
		return
	}
	cand, ok := pickPreferred(outputs)
	if !ok {
		logger.Debug("midi: no preferred output found", "available", strings.Join(outputs, ", "))
		return
	}
	if err := m.openByName(cand); err != nil {
		logger.Error("midi: connect failed", "device", cand, "err", err)
	}
}

// Connected reports the selected output name, if any.
func (m *MIDIOutWatcher) Connected() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedName, m.connected
}

// -------------------- internal --------------------

func (m *MIDIOutWatcher) listOutputs() []string {
	outs, err := m.drv.Outs()
	if err != nil {
		logger.Error("midi: list outputs failed", "err", err)
		return nil
	}
	var names []string
	for _, out := range outs {
		name := out.String()
		if excludedName(name) {
			logger.Debug("midi: output excluded", "device", name)
			continue
		}
		names = append(names, name)
	}
	logger.Debug("midi: outputs found", "count", len(names), "devices", strings.Join(names, ", "))
	return names
}

// releaseSounding sends NoteOff for every note still sounding on the current
// port, then All Notes Off, so a port swap never leaves a note hanging.
// Send errors are ignored: the port may already be gone.
func (m *MIDIOutWatcher) releaseSounding() {
	if m.outPort == nil {
		m.sounding = nil
		return
	}
	if len(m.sounding) > 0 {
		logger.Warn("midi: panic releasing sounding notes", "device", m.selectedName, "count", len(m.sounding))
	}
	notes := make([]uint8, 0, len(m.sounding))
	for note := range m.sounding {
		notes = append(notes, note)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
	for _, note := range notes {
		_ = m.outPort.Send(midi.NoteOff(m.channel, note).Bytes())
	}
	_ = m.outPort.Send(midi.ControlChange(m.channel, allNotesOff, 0).Bytes())
	m.sounding = nil
}

func (m *MIDIOutWatcher) closeConn() {
	m.releaseSounding()
	if m.outPort != nil {
		_ = m.outPort.Close()
		m.outPort = nil
	}
	m.connected = false
	m.selectedName = ""
}

func (m *MIDIOutWatcher) openByName(name string) error {
	outs, err := m.drv.Outs()
	if err != nil {
		return err
	}
	var found drivers.Out
	for _, out := range outs {
		if out.String() == name {
			found = out
			break
		}
	}
	if found == nil {
		return fmt.Errorf("output %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	m.outPort = found
	m.connected = true
	m.selectedName = name
	logger.Info("midi: connected", "device", name)
	return nil
}

// -------------------- utility --------------------

func excludedName(name string) bool {
	for _, pat := range EXCLUDED_PATTERNS {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func pickPreferred(names []string) (string, bool) {
	for _, pat := range PREFERRED_PATTERNS {
		for _, name := range names {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(names) == 1 {
		return names[0], true
	}
	return "", false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
