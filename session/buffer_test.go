package session

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func TestBufferPreservesOrderAndBytes(t *testing.T) {
	b := NewCaptureBuffer()
	b.Begin()

	var want []byte
	total := 0
	for i := 0; i < 200; i++ {
		chunk := []byte(fmt.Sprintf("chunk-%03d|", i))
		want = append(want, chunk...)
		total += len(chunk)
		b.Put(chunk)
	}

	utt := b.Seal()
	if utt.Bytes != total {
		t.Fatalf("bytes = %d, want %d", utt.Bytes, total)
	}
	if len(utt.Chunks) != 200 {
		t.Fatalf("chunks = %d, want 200", len(utt.Chunks))
	}
	if !bytes.Equal(utt.PCM(), want) {
		t.Fatal("concatenated PCM out of order")
	}
	if utt.Started.IsZero() {
		t.Fatal("utterance start time not recorded")
	}
}

func TestBufferBackpressure(t *testing.T) {
	b := NewCaptureBuffer()
	// No Begin: aggregator discards, but only after taking from the
	// queue, so producers never wedge permanently.
	done := make(chan struct{})
	go func() {
		for i := 0; i < BufferCapacity*3; i++ {
			b.Put([]byte{byte(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked past buffer capacity with live aggregator")
	}
}

func TestSealWithoutBeginIsEmpty(t *testing.T) {
	b := NewCaptureBuffer()
	b.Put([]byte("stray"))
	utt := b.Seal()
	if utt.Bytes != 0 || len(utt.Chunks) != 0 {
		t.Fatalf("pre-Begin chunks leaked into utterance: %+v", utt)
	}
}

func TestFlushDropsEverything(t *testing.T) {
	b := NewCaptureBuffer()
	b.Begin()
	b.Put([]byte("doomed"))
	b.Flush()

	b.Begin()
	b.Put([]byte("kept"))
	utt := b.Seal()
	if utt.Bytes != 4 || string(utt.PCM()) != "kept" {
		t.Fatalf("flush leaked old chunks: %q", utt.PCM())
	}
}

func TestSecondRecordingStartsClean(t *testing.T) {
	b := NewCaptureBuffer()

	b.Begin()
	b.Put([]byte("first"))
	one := b.Seal()
	if string(one.PCM()) != "first" {
		t.Fatalf("first utterance = %q", one.PCM())
	}

	b.Begin()
	b.Put([]byte("second"))
	two := b.Seal()
	if string(two.PCM()) != "second" {
		t.Fatalf("second utterance = %q", two.PCM())
	}
	if two.Started.Before(one.Started) {
		t.Fatal("second utterance started before the first")
	}
}
