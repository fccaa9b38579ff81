package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWAVHeaderLayout(t *testing.T) {
	pcm := make([]byte, 3200) // 100 ms at 16 kHz mono s16le
	for i := range pcm {
		pcm[i] = byte(i)
	}
	wav := EncodeWAV(pcm)

	if len(wav) != WAVHeaderSize+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), WAVHeaderSize+len(pcm))
	}

	if string(wav[0:4]) != "RIFF" {
		t.Errorf("bytes 0..4 = %q, want RIFF", wav[0:4])
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(len(pcm)+36) {
		t.Errorf("riff size = %d, want %d", got, len(pcm)+36)
	}
	if string(wav[8:12]) != "WAVE" {
		t.Errorf("bytes 8..12 = %q, want WAVE", wav[8:12])
	}
	if string(wav[12:16]) != "fmt " {
		t.Errorf("bytes 12..16 = %q, want 'fmt '", wav[12:16])
	}
	if got := binary.LittleEndian.Uint32(wav[16:20]); got != 16 {
		t.Errorf("fmt chunk size = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 32000 {
		t.Errorf("byte rate = %d, want 32000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 2 {
		t.Errorf("block align = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if string(wav[36:40]) != "data" {
		t.Errorf("bytes 36..40 = %q, want data", wav[36:40])
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
	if !bytes.Equal(wav[WAVHeaderSize:], pcm) {
		t.Error("PCM region does not match input")
	}
}

func TestWAVEmptyPayload(t *testing.T) {
	wav := EncodeWAV(nil)
	if len(wav) != WAVHeaderSize {
		t.Fatalf("wav length = %d, want %d", len(wav), WAVHeaderSize)
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != 36 {
		t.Errorf("riff size = %d, want 36", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != 0 {
		t.Errorf("data size = %d, want 0", got)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	got, err := PCM(EncodeWAV(pcm))
	if err != nil {
		t.Fatalf("PCM: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("round trip = %v, want %v", got, pcm)
	}
}

func TestPCMRejectsGarbage(t *testing.T) {
	if _, err := PCM([]byte("short")); err == nil {
		t.Error("expected error for truncated input")
	}
	bad := EncodeWAV([]byte{1, 2})
	copy(bad[0:4], "RIFX")
	if _, err := PCM(bad); err == nil {
		t.Error("expected error for wrong magic")
	}
}
