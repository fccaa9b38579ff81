// Package transport maintains the duplex websocket channel to the
// transcription server and delivers decoded frames to its owner.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"glasscribe/log"
	"glasscribe/wire"
)

// Status is the lifecycle of the underlying connection.
type Status int

const (
	StatusClosed Status = iota
	StatusConnecting
	StatusOpen
	StatusClosing
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusClosing:
		return "closing"
	}
	return "unknown"
}

// ErrNotOpen is returned by Send when no connection is established.
var ErrNotOpen = errors.New("transport: connection not open")

const (
	dialTimeout = 10 * time.Second
	// Inbound frames carry base64 audio acks and segment batches; the
	// default 32 KiB read limit is too small.
	readLimit = 1 << 20
)

// Transport owns one websocket connection at a time. OnFrame and OnClosed
// are invoked from the read loop goroutine; the owner serialises them.
type Transport struct {
	endpoint string

	onFrame  func(wire.Frame)
	onClosed func(reason string, remote bool)

	mu        sync.Mutex
	conn      *websocket.Conn
	status    Status
	userClose bool
}

func New(endpoint string, onFrame func(wire.Frame), onClosed func(reason string, remote bool)) *Transport {
	return &Transport{
		endpoint: endpoint,
		onFrame:  onFrame,
		onClosed: onClosed,
	}
}

func (t *Transport) Endpoint() string { return t.endpoint }

func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Dial establishes the connection and starts the read loop. It returns
// once the handshake completes or fails; frame delivery happens in the
// background afterwards.
func (t *Transport) Dial(ctx context.Context) error {
	t.mu.Lock()
	if t.status != StatusClosed {
		t.mu.Unlock()
		return fmt.Errorf("transport: dial while %s", t.status)
	}
	t.status = StatusConnecting
	t.userClose = false
	t.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, t.endpoint, nil)
	if err != nil {
		t.mu.Lock()
		t.status = StatusClosed
		t.mu.Unlock()
		return fmt.Errorf("transport: dial %s: %w", t.endpoint, err)
	}
	conn.SetReadLimit(readLimit)

	// A Close issued while the handshake was in flight wins: the fresh
	// connection is discarded and the transport stays down.
	t.mu.Lock()
	if t.status != StatusConnecting {
		t.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "client leaving")
		t.mu.Lock()
		t.status = StatusClosed
		t.mu.Unlock()
		return fmt.Errorf("transport: closed during dial to %s", t.endpoint)
	}
	t.conn = conn
	t.status = StatusOpen
	t.mu.Unlock()

	go t.readLoop(conn)
	return nil
}

// Send encodes and writes one frame. Safe for concurrent use: the
// websocket library serialises writes on the connection itself.
func (t *Transport) Send(f wire.Frame) error {
	data, err := wire.Encode(f)
	if err != nil {
		return err
	}

	t.mu.Lock()
	conn := t.conn
	open := t.status == StatusOpen
	t.mu.Unlock()
	if !open || conn == nil {
		return ErrNotOpen
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("transport: write %s: %w", f.Type, err)
	}
	log.FrameSent(f.Type, len(data))
	return nil
}

// Close tears down the connection deliberately. The pending read loop's
// OnClosed callback is suppressed so a user-initiated close is never
// mistaken for a dropped connection.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.status == StatusClosed || t.status == StatusClosing {
		t.mu.Unlock()
		return
	}
	t.status = StatusClosing
	t.userClose = true
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client leaving")
	}
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	var closeReason string
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != -1 {
				closeReason = fmt.Sprintf("connection closed (status %d)", status)
			} else {
				closeReason = err.Error()
			}
			break
		}

		frame, err := wire.Decode(data)
		if err != nil {
			log.Warnf("discarding malformed frame: %v", err)
			continue
		}
		log.FrameRecv(frame.Type)
		if t.onFrame != nil {
			t.onFrame(frame)
		}
	}

	t.mu.Lock()
	wasUserClose := t.userClose
	t.conn = nil
	t.status = StatusClosed
	t.mu.Unlock()

	if wasUserClose {
		return
	}
	if t.onClosed != nil {
		t.onClosed(closeReason, true)
	}
}
