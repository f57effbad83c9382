package main

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/chase3718/lou-drum/drum"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func pitchName(pitch int) string {
	if pitch < 0 {
		return fmt.Sprintf("?\"%d\"", pitch)
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], (pitch/12)-1)
}

// encodeEvent maps a pad event to a 3-byte MIDI channel message.
func encodeEvent(ev drum.Event, channel uint8) midi.Message {
	if ev.Kind == drum.NoteOn {
		return midi.NoteOn(channel, ev.Note, ev.Velocity)
	}
	return midi.NoteOff(channel, ev.Note)
}

// SerialMIDISink hands MIDI messages back to the controller, which forwards
// them on its own MIDI port.
type SerialMIDISink struct {
	port    *SerialPort
	channel uint8
}

func NewSerialMIDISink(port *SerialPort, channel uint8) *SerialMIDISink {
	return &SerialMIDISink{port: port, channel: channel}
}

func (s *SerialMIDISink) Emit(ev drum.Event) error {
	msg := encodeEvent(ev, s.channel)
	logger.Info("pad: "+ev.Kind.String(), "pitch", pitchName(int(ev.Note)), "pad", ev.Channel, "velocity", ev.Velocity, "msg", msg.String())
	return s.port.SendFrame(Frame{Cmd: CmdMIDI, Payload: msg.Bytes()})
}

// LogSink only logs what would be sent.
type LogSink struct {
	channel uint8
}

func (s LogSink) Emit(ev drum.Event) error {
	msg := encodeEvent(ev, s.channel)
	logger.Info("pad: "+ev.Kind.String(), "pitch", pitchName(int(ev.Note)), "pad", ev.Channel, "velocity", ev.Velocity, "bytes", fmt.Sprintf("% X", msg.Bytes()))
	return nil
}
