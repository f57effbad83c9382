package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	SOF0 = 0xAA
	SOF1 = 0x55

	CmdIndicator = 0x11 // host -> MCU: [on]
	CmdMIDI      = 0x12 // host -> MCU: [status][data1][data2]
	CmdSamples   = 0x20 // MCU -> host: [amp0 hi][amp0 lo]...[ampN-1 lo][hold]
)

// maxSyncBytes bounds the hunt for SOF so a line carrying only noise still
// returns to the caller. Two maximum-size frames.
const maxSyncBytes = 2 * (255 + 4)

var (
	errBadChecksum = errors.New("frame: bad checksum")
	errBadLength   = errors.New("frame: bad length")
	errNoSync      = errors.New("frame: no start of frame")
)

// Frame is one command on the serial link.
type Frame struct {
	Cmd     byte
	Payload []byte
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][payload...][CKS]
//
// LEN counts CMD plus payload. CKS is the XOR of LEN, CMD and every payload
// byte.
func (f Frame) Encode() []byte {
	length := byte(len(f.Payload) + 1) // +1 for CMD byte
	cks := length ^ f.Cmd
	for _, b := range f.Payload {
		cks ^= b
	}

	out := make([]byte, 0, len(f.Payload)+5)
	out = append(out, SOF0, SOF1, length, f.Cmd)
	out = append(out, f.Payload...)
	out = append(out, cks)
	return out
}

// FrameReader pulls frames off a byte stream, skipping line noise until a
// start-of-frame marker.
type FrameReader struct {
	r       *bufio.Reader
	Skipped uint64 // bytes discarded while hunting for SOF
	Dropped uint64 // frames rejected for length or checksum
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 512)}
}

// Next returns the next well-formed frame. A corrupt frame is consumed and
// reported as an error; the following call resumes hunting for SOF.
func (fr *FrameReader) Next() (Frame, error) {
	if err := fr.sync(); err != nil {
		return Frame{}, err
	}
	length, err := fr.r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	if length == 0 {
		fr.Dropped++
		return Frame{}, errBadLength
	}
	body := make([]byte, int(length)+1) // CMD + payload + CKS
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return Frame{}, err
	}

	cks := length
	for _, b := range body[:length] {
		cks ^= b
	}
	if cks != body[length] {
		fr.Dropped++
		return Frame{}, fmt.Errorf("%w: cmd 0x%02x got 0x%02x want 0x%02x", errBadChecksum, body[0], body[length], cks)
	}
	return Frame{Cmd: body[0], Payload: body[1:length]}, nil
}

func (fr *FrameReader) sync() error {
	var prev byte
	var n uint64
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return err
		}
		n++
		if n >= 2 && prev == SOF0 && b == SOF1 {
			fr.Skipped += n - 2
			return nil
		}
		if n >= maxSyncBytes {
			fr.Skipped += n
			return errNoSync
		}
		prev = b
	}
}

// DecodeSamples fills dst from a CmdSamples payload and returns the hold
// level. The payload must carry exactly len(dst) amplitudes.
func DecodeSamples(payload []byte, dst []int) (bool, error) {
	if len(payload) != 2*len(dst)+1 {
		return false, fmt.Errorf("%w: samples payload %d bytes for %d channels", errBadLength, len(payload), len(dst))
	}
	for i := range dst {
		dst[i] = int(binary.BigEndian.Uint16(payload[2*i:]))
	}
	return payload[len(payload)-1] != 0, nil
}
