package transport

import (
	"sync"
	"time"

	"glasscribe/log"
	"glasscribe/wire"
)

const (
	// DefaultPingInterval matches the server's idle timeout margin.
	DefaultPingInterval = 20 * time.Second
	DefaultRetryDelay   = 3 * time.Second
	DefaultMaxAttempts  = 5
)

// KeepAlive keeps an established connection warm with periodic pings and
// drives bounded reconnection when the connection drops remotely.
//
// Liveness frames (see IsLivenessFrame) reset the ping timer, so pings
// are only sent across genuinely idle stretches and a busy server never
// looks dead.
type KeepAlive struct {
	PingInterval time.Duration
	RetryDelay   time.Duration
	MaxAttempts  int

	ping        func()
	reconnect   func(attempt int) error
	onExhausted func()

	mu         sync.Mutex
	pingStop   chan struct{}
	pingKick   chan struct{}
	retryStop  chan struct{}
	suppressed bool
}

func NewKeepAlive(ping func(), reconnect func(attempt int) error, onExhausted func()) *KeepAlive {
	return &KeepAlive{
		PingInterval: DefaultPingInterval,
		RetryDelay:   DefaultRetryDelay,
		MaxAttempts:  DefaultMaxAttempts,
		ping:         ping,
		reconnect:    reconnect,
		onExhausted:  onExhausted,
	}
}

// ConnectionOpened starts the idle ping loop and cancels any in-flight
// retry schedule.
func (k *KeepAlive) ConnectionOpened() {
	k.mu.Lock()
	k.stopRetryLocked()
	k.stopPingLocked()
	stop := make(chan struct{})
	kick := make(chan struct{}, 1)
	k.pingStop = stop
	k.pingKick = kick
	k.mu.Unlock()

	go k.pingLoop(stop, kick)
}

// Observe notes an inbound frame. Liveness frames restart the idle
// timer; everything else is ignored.
func (k *KeepAlive) Observe(frameType string) {
	if !IsLivenessFrame(frameType) {
		return
	}
	k.mu.Lock()
	kick := k.pingKick
	k.mu.Unlock()
	if kick == nil {
		return
	}
	select {
	case kick <- struct{}{}:
	default:
	}
}

// ConnectionClosed stops pinging. A remote close starts the retry
// schedule unless reconnection is suppressed.
func (k *KeepAlive) ConnectionClosed(remote bool) {
	k.mu.Lock()
	k.stopPingLocked()
	if !remote || k.suppressed {
		k.mu.Unlock()
		return
	}
	k.stopRetryLocked()
	stop := make(chan struct{})
	k.retryStop = stop
	k.mu.Unlock()

	go k.retryLoop(stop)
}

// Suppress disables automatic reconnection until Resume. Used when the
// user deliberately leaves the conversation.
func (k *KeepAlive) Suppress() {
	k.mu.Lock()
	k.suppressed = true
	k.stopRetryLocked()
	k.mu.Unlock()
}

func (k *KeepAlive) Resume() {
	k.mu.Lock()
	k.suppressed = false
	k.mu.Unlock()
}

// Stop halts all timers. Safe to call repeatedly.
func (k *KeepAlive) Stop() {
	k.mu.Lock()
	k.stopPingLocked()
	k.stopRetryLocked()
	k.mu.Unlock()
}

func (k *KeepAlive) stopPingLocked() {
	if k.pingStop != nil {
		close(k.pingStop)
		k.pingStop = nil
		k.pingKick = nil
	}
}

func (k *KeepAlive) stopRetryLocked() {
	if k.retryStop != nil {
		close(k.retryStop)
		k.retryStop = nil
	}
}

func (k *KeepAlive) pingLoop(stop, kick chan struct{}) {
	timer := time.NewTimer(k.PingInterval)
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(k.PingInterval)
		case <-timer.C:
			k.ping()
			timer.Reset(k.PingInterval)
		}
	}
}

func (k *KeepAlive) retryLoop(stop chan struct{}) {
	for attempt := 1; attempt <= k.MaxAttempts; attempt++ {
		select {
		case <-stop:
			return
		case <-time.After(k.RetryDelay):
		}

		log.Reconnect(attempt, k.MaxAttempts)
		if err := k.reconnect(attempt); err == nil {
			return
		}
	}
	if k.onExhausted != nil {
		k.onExhausted()
	}
}

// IsLivenessFrame reports whether a frame type proves server liveness on
// its own, without carrying conversation payload.
func IsLivenessFrame(frameType string) bool {
	switch frameType {
	case wire.TypePong, wire.TypeKeepAlive, wire.TypeProcessingStatus:
		return true
	}
	return false
}
