package session

import (
	"sync"
	"time"
)

// BufferCapacity bounds the hand-off queue between the capture callback
// and the aggregator. A full queue blocks the producer, which is the
// backpressure against the aggregator falling behind.
const BufferCapacity = 50

// Utterance is one continuous recording, sealed on stop.
type Utterance struct {
	Chunks  [][]byte
	Bytes   int
	Started time.Time
}

// PCM concatenates the chunks in production order.
func (u Utterance) PCM() []byte {
	out := make([]byte, 0, u.Bytes)
	for _, c := range u.Chunks {
		out = append(out, c...)
	}
	return out
}

// CaptureBuffer moves chunks from the capture callback to an aggregator
// goroutine that accumulates the active utterance. The aggregator runs
// for the buffer's whole lifetime; Begin/Seal bracket one recording.
type CaptureBuffer struct {
	queue chan []byte
	seal  chan chan Utterance

	mu      sync.Mutex
	active  bool
	started time.Time
}

func NewCaptureBuffer() *CaptureBuffer {
	b := &CaptureBuffer{
		queue: make(chan []byte, BufferCapacity),
		seal:  make(chan chan Utterance),
	}
	go b.aggregate()
	return b
}

// Begin starts accumulating a fresh utterance. Chunks put before Begin
// belong to no utterance and are dropped by the aggregator.
func (b *CaptureBuffer) Begin() {
	b.mu.Lock()
	b.active = true
	b.started = time.Now()
	b.mu.Unlock()
}

// Put hands one chunk to the aggregator, blocking while the queue is
// full. The chunk is owned by the buffer afterwards.
func (b *CaptureBuffer) Put(chunk []byte) {
	b.queue <- chunk
}

// Seal drains everything already queued, stops accumulation, and
// returns the finished utterance.
func (b *CaptureBuffer) Seal() Utterance {
	reply := make(chan Utterance)
	b.seal <- reply
	return <-reply
}

// Flush discards the queue and any accumulated chunks. Used when a
// recording ends unsuccessfully.
func (b *CaptureBuffer) Flush() {
	b.Seal()
}

func (b *CaptureBuffer) aggregate() {
	var chunks [][]byte
	var total int
	for {
		select {
		case chunk := <-b.queue:
			b.mu.Lock()
			active := b.active
			b.mu.Unlock()
			if !active {
				continue
			}
			chunks = append(chunks, chunk)
			total += len(chunk)
		case reply := <-b.seal:
			// Anything the producer managed to queue before stopping
			// still belongs to this utterance.
		drain:
			for {
				select {
				case chunk := <-b.queue:
					b.mu.Lock()
					active := b.active
					b.mu.Unlock()
					if active {
						chunks = append(chunks, chunk)
						total += len(chunk)
					}
				default:
					break drain
				}
			}

			b.mu.Lock()
			started := b.started
			b.active = false
			b.mu.Unlock()

			reply <- Utterance{Chunks: chunks, Bytes: total, Started: started}
			chunks = nil
			total = 0
		}
	}
}
