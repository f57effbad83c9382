package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// samplesFrame encodes one acquisition the way the controller does: every
// channel amplitude big-endian, then the hold switch level.
func samplesFrame(samples []int, held bool) Frame {
	payload := make([]byte, 2*len(samples)+1)
	for i, s := range samples {
		if s < 0 {
			s = 0
		}
		if s > 0xFFFF {
			s = 0xFFFF
		}
		binary.BigEndian.PutUint16(payload[2*i:], uint16(s))
	}
	if held {
		payload[len(payload)-1] = 1
	}
	return Frame{Cmd: CmdSamples, Payload: payload}
}

func TestFrameEncodeLayout(t *testing.T) {
	got := Frame{Cmd: CmdIndicator, Payload: []byte{1}}.Encode()
	// LEN=2, CKS = 2 ^ 0x11 ^ 1
	want := []byte{SOF0, SOF1, 0x02, CmdIndicator, 0x01, 0x02 ^ CmdIndicator ^ 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("encode mismatch: got % X want % X", got, want)
	}
}

func TestFrameReaderResyncsAfterNoise(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0xAA, 0x13, 0x55}) // noise, including a lone SOF0
	stream.Write(samplesFrame([]int{45, 1023}, true).Encode())

	fr := NewFrameReader(&stream)
	f, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f.Cmd != CmdSamples {
		t.Fatalf("unexpected cmd 0x%02x", f.Cmd)
	}
	dst := make([]int, 2)
	held, err := DecodeSamples(f.Payload, dst)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if !held || dst[0] != 45 || dst[1] != 1023 {
		t.Fatalf("decoded held=%v samples=%v", held, dst)
	}
	if fr.Skipped != 4 {
		t.Fatalf("expected 4 skipped bytes, got %d", fr.Skipped)
	}
	if _, err := fr.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestFrameReaderRejectsBadChecksum(t *testing.T) {
	bad := samplesFrame([]int{10}, false).Encode()
	bad[len(bad)-1] ^= 0xFF

	var stream bytes.Buffer
	stream.Write(bad)
	stream.Write(samplesFrame([]int{77}, false).Encode())

	fr := NewFrameReader(&stream)
	if _, err := fr.Next(); !errors.Is(err, errBadChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
	f, err := fr.Next()
	if err != nil {
		t.Fatalf("expected recovery on next frame, got %v", err)
	}
	dst := make([]int, 1)
	if _, err := DecodeSamples(f.Payload, dst); err != nil || dst[0] != 77 {
		t.Fatalf("decoded %v err=%v", dst, err)
	}
	if fr.Dropped != 1 {
		t.Fatalf("expected 1 dropped frame, got %d", fr.Dropped)
	}
}

func TestDecodeSamplesLengthMismatch(t *testing.T) {
	f := samplesFrame([]int{1, 2, 3}, false)
	if _, err := DecodeSamples(f.Payload, make([]int, 4)); !errors.Is(err, errBadLength) {
		t.Fatalf("expected length error, got %v", err)
	}
}

func TestDecodeSamplesFullRange(t *testing.T) {
	f := samplesFrame([]int{-5, 70000}, false)
	dst := make([]int, 2)
	if _, err := DecodeSamples(f.Payload, dst); err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if dst[0] != 0 || dst[1] != 0xFFFF {
		t.Fatalf("expected clamped samples, got %v", dst)
	}
}

func TestFrameReaderGivesUpOnEndlessNoise(t *testing.T) {
	noise := bytes.Repeat([]byte{0x13}, 3*maxSyncBytes)
	fr := NewFrameReader(bytes.NewReader(noise))
	if _, err := fr.Next(); !errors.Is(err, errNoSync) {
		t.Fatalf("expected no-sync error, got %v", err)
	}
	if fr.Skipped != maxSyncBytes {
		t.Fatalf("expected %d skipped bytes, got %d", maxSyncBytes, fr.Skipped)
	}
}
