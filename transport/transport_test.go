package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"glasscribe/wire"
)

// testServer runs an in-process websocket endpoint whose handler gets the
// accepted connection. The returned URL uses the ws scheme.
func testServer(t *testing.T, handler func(*websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type frameCollector struct {
	mu     sync.Mutex
	frames []wire.Frame
	closed []string
	remote []bool
}

func (c *frameCollector) onFrame(f wire.Frame) {
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
}

func (c *frameCollector) onClosed(reason string, remote bool) {
	c.mu.Lock()
	c.closed = append(c.closed, reason)
	c.remote = append(c.remote, remote)
	c.mu.Unlock()
}

func (c *frameCollector) waitFrames(t *testing.T, n int) []wire.Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.frames) >= n {
			out := append([]wire.Frame(nil), c.frames...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames", n)
	return nil
}

func (c *frameCollector) waitClosed(t *testing.T) (string, bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.closed) > 0 {
			reason, remote := c.closed[0], c.remote[0]
			c.mu.Unlock()
			return reason, remote
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for close callback")
	return "", false
}

func (c *frameCollector) closedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.closed)
}

func TestDialSendReceive(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		f, err := wire.Decode(data)
		if err != nil || f.Type != wire.TypePing {
			t.Errorf("expected ping, got %q (%v)", data, err)
			return
		}
		reply, _ := wire.Encode(wire.Frame{Type: wire.TypePong, Timestamp: f.Timestamp})
		conn.Write(ctx, websocket.MessageText, reply)
		conn.Read(ctx) // hold open until client closes
	})

	col := &frameCollector{}
	tr := New(url, col.onFrame, col.onClosed)

	if tr.Status() != StatusClosed {
		t.Fatalf("fresh transport status = %v", tr.Status())
	}
	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if tr.Status() != StatusOpen {
		t.Fatalf("post-dial status = %v", tr.Status())
	}

	if err := tr.Send(wire.Ping()); err != nil {
		t.Fatalf("send: %v", err)
	}

	frames := col.waitFrames(t, 1)
	if frames[0].Type != wire.TypePong {
		t.Fatalf("received %q, want pong", frames[0].Type)
	}

	tr.Close()
}

func TestSendWhenNotOpen(t *testing.T) {
	tr := New("ws://127.0.0.1:1", nil, nil)
	if err := tr.Send(wire.Ping()); err != ErrNotOpen {
		t.Fatalf("send on closed transport = %v, want ErrNotOpen", err)
	}
}

func TestDialFailure(t *testing.T) {
	tr := New("ws://127.0.0.1:1", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tr.Dial(ctx); err == nil {
		t.Fatal("dial to dead endpoint succeeded")
	}
	if tr.Status() != StatusClosed {
		t.Fatalf("status after failed dial = %v, want closed", tr.Status())
	}
}

func TestRemoteCloseInvokesCallback(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		conn.Close(websocket.StatusGoingAway, "shutting down")
	})

	col := &frameCollector{}
	tr := New(url, col.onFrame, col.onClosed)
	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}

	_, remote := col.waitClosed(t)
	if !remote {
		t.Fatal("remote close reported as local")
	}
	if tr.Status() != StatusClosed {
		t.Fatalf("status after remote close = %v", tr.Status())
	}
}

func TestUserCloseSuppressesCallback(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		conn.Read(context.Background())
	})

	col := &frameCollector{}
	tr := New(url, col.onFrame, col.onClosed)
	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}

	tr.Close()
	tr.Close() // idempotent

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if tr.Status() == StatusClosed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := col.closedCount(); got != 0 {
		t.Fatalf("user close triggered %d close callbacks, want 0", got)
	}
}

func TestMalformedFrameSkipped(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		conn.Write(ctx, websocket.MessageText, []byte("not json"))
		conn.Write(ctx, websocket.MessageText, []byte(`{"timestamp":1}`))
		good, _ := wire.Encode(wire.Frame{Type: wire.TypeKeepAlive, Timestamp: 1})
		conn.Write(ctx, websocket.MessageText, good)
		conn.Read(ctx)
	})

	col := &frameCollector{}
	tr := New(url, col.onFrame, col.onClosed)
	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	frames := col.waitFrames(t, 1)
	if frames[0].Type != wire.TypeKeepAlive {
		t.Fatalf("surviving frame = %q, want keep_alive", frames[0].Type)
	}
}

func TestCloseDuringDialWins(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn.Read(context.Background())
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	col := &frameCollector{}
	tr := New(url, col.onFrame, col.onClosed)

	errCh := make(chan error, 1)
	go func() { errCh <- tr.Dial(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && tr.Status() != StatusConnecting {
		time.Sleep(2 * time.Millisecond)
	}
	tr.Close()
	close(release)

	if err := <-errCh; err == nil {
		t.Fatal("dial succeeded although Close was issued first")
	}
	if tr.Status() != StatusClosed {
		t.Fatalf("status = %v, want closed", tr.Status())
	}
	if got := col.closedCount(); got != 0 {
		t.Fatalf("user-initiated close triggered %d close callbacks", got)
	}

	// The transport must be usable again after the aborted dial; the
	// handler's gate is open now, so this handshake goes straight through.
	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("redial after aborted dial: %v", err)
	}
	if tr.Status() != StatusOpen {
		t.Fatalf("status after redial = %v, want open", tr.Status())
	}
	tr.Close()
}

func TestDialWhileOpen(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		conn.Read(context.Background())
	})

	tr := New(url, nil, nil)
	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	if err := tr.Dial(context.Background()); err == nil {
		t.Fatal("second dial on open transport succeeded")
	}
}
