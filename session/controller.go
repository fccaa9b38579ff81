// Package session owns the conversation state machine. A single
// event-loop goroutine holds the state; capture, transport, and UI
// workers talk to it only by posting events.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"glasscribe/audio"
	"glasscribe/log"
	"glasscribe/wire"
)

// ErrCaptureUnavailable marks microphone open/read failures.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// DefaultEnrollDuration is the wall-clock length of a voice sample.
const DefaultEnrollDuration = 5 * time.Second

// State is the session's single source of truth. The boolean flags the
// UI needs (connected, recording, busy) are all derivable from it.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateIdle
	StateRecording
	StateAwaitingResult
	StateEnrolling
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateAwaitingResult:
		return "awaiting-result"
	case StateEnrolling:
		return "enrolling"
	}
	return "unknown"
}

// Link is the outbound half of the transport the controller drives.
type Link interface {
	Dial(ctx context.Context) error
	Send(f wire.Frame) error
	Close()
}

// Keeper is the keepalive and reconnection policy attached to the link.
type Keeper interface {
	ConnectionOpened()
	ConnectionClosed(remote bool)
	Observe(frameType string)
	Suppress()
	Resume()
	Stop()
}

// EventSink receives user-visible updates. All methods are invoked on
// the controller loop, so implementations must not call back in.
type EventSink interface {
	StateChanged(s State)
	Status(msg string)
	Segment(e Entry, evicted bool)
	ConversationCleared()
}

type Controller struct {
	link   Link
	keep   Keeper
	audio  audio.Context
	device *audio.DeviceInfo
	sink   EventSink

	events chan Event

	// Everything below is touched only from the Run loop.
	state   State
	buffer  *CaptureBuffer
	history *Log
	capture audio.CaptureDevice

	voiceID        string
	excludeVoice   bool
	mayRecordAgain bool
	enrollCancel   chan struct{}

	audioSent    int
	segmentsRecv int

	EnrollDuration time.Duration
}

func New(link Link, keep Keeper, audioCtx audio.Context, device *audio.DeviceInfo, sink EventSink) *Controller {
	return &Controller{
		link:           link,
		keep:           keep,
		audio:          audioCtx,
		device:         device,
		sink:           sink,
		events:         make(chan Event, 64),
		buffer:         NewCaptureBuffer(),
		history:        NewLog(),
		EnrollDuration: DefaultEnrollDuration,
	}
}

func (c *Controller) Post(ev Event) {
	c.events <- ev
}

// OnFrame is the transport's inbound callback.
func (c *Controller) OnFrame(f wire.Frame) {
	c.Post(inboundFrame{frame: f})
}

// OnTransportClosed is the transport's close callback. The transport
// only fires it for closes the user did not ask for.
func (c *Controller) OnTransportClosed(reason string, remote bool) {
	c.Post(transportClosed{reason: reason, remote: remote})
}

// NotifyOpen is posted by the reconnect path once a dial succeeds.
func (c *Controller) NotifyOpen() {
	c.Post(transportOpen{})
}

func (c *Controller) NotifyReconnectAttempt(attempt, max int) {
	c.Post(reconnectAttempt{attempt: attempt, max: max})
}

func (c *Controller) NotifyReconnectExhausted() {
	c.Post(reconnectExhausted{})
}

// Run consumes events until ctx is cancelled. It is the only goroutine
// allowed to read or mutate the session state.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch ev := ev.(type) {
	case ConnectIntent:
		c.handleConnect()
	case StartRecordIntent:
		c.handleStartRecord()
	case StopRecordIntent:
		c.handleStopRecord()
	case DisconnectIntent:
		c.handleDisconnect()
	case EnrollIntent:
		c.handleEnroll()
	case ExclusionIntent:
		c.handleExclusion(ev.Exclude)

	case transportOpen:
		c.handleOpen()
	case transportFailed:
		c.handleDialFailed(ev.err)
	case transportClosed:
		c.handleClosed(ev.reason, ev.remote)
	case inboundFrame:
		c.handleFrame(ev.frame)
	case captureFailed:
		c.handleCaptureFailed(ev.err)
	case audioDispatched:
		c.handleAudioDispatched(ev.err)
	case registrationDispatched:
		c.handleRegistrationDispatched(ev.err)
	case enrollmentCaptured:
		c.handleEnrollmentCaptured(ev.pcm)
	case reconnectAttempt:
		c.sink.Status(fmt.Sprintf("Reconnecting (attempt %d/%d)...", ev.attempt, ev.max))
	case reconnectExhausted:
		c.sink.Status("Connection lost - please reconnect manually")
	}
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	log.State(c.state.String(), s.String())
	c.state = s
	c.sink.StateChanged(s)
}

func (c *Controller) send(f wire.Frame) error {
	if err := c.link.Send(f); err != nil {
		log.Errorf("send %s: %v", f.Type, err)
		return err
	}
	return nil
}

func (c *Controller) handleConnect() {
	switch c.state {
	case StateConnecting:
		c.sink.Status("Already connecting...")
		return
	case StateDisconnected:
	default:
		// Already connected; reuse the intent as a liveness probe.
		c.sink.Status("Testing server connection...")
		go c.send(wire.Ping())
		return
	}

	c.setState(StateConnecting)
	c.keep.Resume()
	c.sink.Status("Connecting...")
	go func() {
		if err := c.link.Dial(context.Background()); err != nil {
			c.Post(transportFailed{err: err})
			return
		}
		c.Post(transportOpen{})
	}()
}

func (c *Controller) handleOpen() {
	if c.state != StateConnecting && c.state != StateDisconnected {
		return
	}
	c.setState(StateIdle)
	c.keep.ConnectionOpened()
	c.sink.Status("Connected - ready to record")
}

func (c *Controller) handleDialFailed(err error) {
	if c.state != StateConnecting {
		return
	}
	c.setState(StateDisconnected)
	c.sink.Status("Connection failed: " + err.Error())
}

func (c *Controller) handleStartRecord() {
	switch c.state {
	case StateRecording:
		c.sink.Status("Already recording")
		return
	case StateAwaitingResult:
		if c.mayRecordAgain {
			c.sink.Status("Processing previous audio - please wait")
		} else {
			c.sink.Status("Still processing - please wait")
		}
		return
	case StateEnrolling:
		c.sink.Status("Voice enrollment in progress")
		return
	case StateDisconnected, StateConnecting:
		c.sink.Status("Not connected")
		return
	}

	c.history.Clear()
	c.sink.ConversationCleared()
	c.audioSent = 0
	c.segmentsRecv = 0
	c.mayRecordAgain = false

	if err := c.send(wire.ResetSession()); err != nil {
		c.sink.Status("Not connected")
		return
	}

	dev, err := c.audio.NewCapture(c.device, captureConfig())
	if err != nil {
		c.sink.Status("Microphone unavailable: " + err.Error())
		log.Errorf("%v: %v", ErrCaptureUnavailable, err)
		return
	}
	dev.SetCallback(func(data []byte, _ uint32) {
		// The backend reuses its buffer between reads.
		chunk := make([]byte, len(data))
		copy(chunk, data)
		c.buffer.Put(chunk)
	})
	c.buffer.Begin()
	if err := dev.Start(); err != nil {
		dev.Close()
		c.buffer.Flush()
		c.sink.Status("Microphone unavailable: " + err.Error())
		log.Errorf("%v: %v", ErrCaptureUnavailable, err)
		return
	}

	c.capture = dev
	c.setState(StateRecording)
	c.sink.Status("Recording - speak now")
}

func (c *Controller) handleStopRecord() {
	if c.state != StateRecording {
		return
	}

	c.releaseCapture()
	utt := c.buffer.Seal()

	if utt.Bytes == 0 {
		c.setState(StateIdle)
		c.sink.Status("No audio captured")
		return
	}

	c.setState(StateAwaitingResult)
	c.sink.Status(fmt.Sprintf("Sending audio (%.1fs)...", float64(utt.Bytes)/float64(wire.ByteRate)))
	go func(pcm []byte) {
		err := c.link.Send(wire.AudioFromGlasses(pcm))
		c.Post(audioDispatched{err: err})
	}(utt.PCM())
}

func (c *Controller) handleAudioDispatched(err error) {
	if err != nil {
		if c.state == StateAwaitingResult {
			c.setState(StateIdle)
		}
		c.sink.Status("Send failed: " + err.Error())
		return
	}
	c.audioSent++
}

func (c *Controller) handleDisconnect() {
	if c.state == StateDisconnected {
		c.sink.Status("Not connected")
		return
	}
	if c.state == StateRecording {
		c.releaseCapture()
		c.buffer.Flush()
	}
	c.cancelEnrollment()
	c.keep.Suppress()
	c.keep.Stop()
	c.link.Close()
	log.ConversationStats(c.audioSent, c.segmentsRecv)
	c.setState(StateDisconnected)
	c.sink.Status("Disconnected")
}

func (c *Controller) handleClosed(reason string, remote bool) {
	if c.state == StateDisconnected {
		return
	}
	if c.state == StateRecording {
		c.releaseCapture()
		c.buffer.Flush()
	}
	c.cancelEnrollment()
	log.ConversationStats(c.audioSent, c.segmentsRecv)
	c.setState(StateDisconnected)
	if reason == "" {
		c.sink.Status("Connection lost")
	} else {
		c.sink.Status("Connection lost: " + reason)
	}
	c.keep.ConnectionClosed(remote)
}

func (c *Controller) handleFrame(f wire.Frame) {
	c.keep.Observe(f.Type)

	switch f.Type {
	case wire.TypePong:
		if f.StatusCode != 0 {
			c.sink.Status(fmt.Sprintf("Server is alive! (status %d)", f.StatusCode))
		} else {
			c.sink.Status("Server is alive!")
		}
	case wire.TypeKeepAlive, wire.TypeProcessingStatus:
		// Liveness only; Observe above already re-armed the timer.
	case wire.TypeProcessingStarted:
		c.sink.Status("Processing started...")
	case wire.TypeAudioReceived:
		if c.state == StateAwaitingResult {
			c.mayRecordAgain = true
			c.sink.Status("Audio received - processing...")
		}
	case wire.TypeAudioProcessed:
		if c.state == StateAwaitingResult {
			c.setState(StateIdle)
			c.sink.Status("Processing completed - ready to record again")
		}
	case wire.TypeSegmentResult:
		c.handleSegment(f)
	case wire.TypeNoSpeech:
		c.sink.Status("No speech detected")
	case wire.TypeSpeakersList:
		c.sink.Status("Speakers auto-detected")
	case wire.TypeVoiceRegistered:
		if c.state != StateEnrolling {
			return
		}
		c.voiceID = f.VoiceID
		// Registration resets exclusion to the default: include, tag USER.
		c.excludeVoice = false
		go c.send(wire.SetVoiceExclusion(c.excludeVoice, f.VoiceID))
		c.setState(StateIdle)
		c.sink.Status("Voice registered - your segments will be tagged YOU")
	case wire.TypeVoiceRegError:
		if c.state != StateEnrolling {
			return
		}
		c.setState(StateIdle)
		c.sink.Status("Voice registration failed: " + f.Error)
	case wire.TypeError:
		if c.state == StateAwaitingResult {
			c.setState(StateIdle)
		}
		c.sink.Status("Server error: " + f.Error)
	default:
		log.Warnf("ignoring unknown frame type %q", f.Type)
	}
}

func (c *Controller) handleSegment(f wire.Frame) {
	c.segmentsRecv++
	if f.Segment == nil {
		log.Warn("segment_result without segment payload")
		return
	}
	text := f.Segment.Text
	if !ValidSpeech(text) {
		log.SegmentDropped("noise", text)
		return
	}
	e, evicted := c.history.Append(f.Segment.SpeakerID, strings.TrimSpace(text))
	c.sink.Segment(e, evicted)
}

func (c *Controller) handleEnroll() {
	switch c.state {
	case StateIdle:
	case StateDisconnected, StateConnecting:
		c.sink.Status("Not connected")
		return
	default:
		c.sink.Status("Busy - finish the current action first")
		return
	}

	c.setState(StateEnrolling)
	c.sink.Status(fmt.Sprintf("Recording voice sample (%.0fs) - speak naturally", c.EnrollDuration.Seconds()))
	cancel := make(chan struct{})
	c.enrollCancel = cancel
	go c.captureEnrollment(cancel)
}

// cancelEnrollment releases the enrollment microphone early when the
// session leaves Enrolling for a reason other than a finished sample.
func (c *Controller) cancelEnrollment() {
	if c.enrollCancel != nil {
		close(c.enrollCancel)
		c.enrollCancel = nil
	}
}

func (c *Controller) captureEnrollment(cancel <-chan struct{}) {
	dev, err := c.audio.NewCapture(c.device, captureConfig())
	if err != nil {
		c.Post(captureFailed{err: fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)})
		return
	}
	defer dev.Close()

	var mu sync.Mutex
	var pcm []byte
	dev.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		pcm = append(pcm, data...)
		mu.Unlock()
	})
	if err := dev.Start(); err != nil {
		c.Post(captureFailed{err: fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)})
		return
	}

	select {
	case <-time.After(c.EnrollDuration):
	case <-cancel:
		dev.ClearCallback()
		dev.Stop()
		return
	}
	dev.ClearCallback()
	dev.Stop()

	mu.Lock()
	sample := append([]byte(nil), pcm...)
	mu.Unlock()
	c.Post(enrollmentCaptured{pcm: sample})
}

func (c *Controller) handleEnrollmentCaptured(pcm []byte) {
	c.enrollCancel = nil
	if c.state != StateEnrolling {
		return
	}
	if len(pcm) == 0 {
		c.setState(StateIdle)
		c.sink.Status("No audio captured - try again")
		return
	}
	c.sink.Status("Registering voice...")
	go func() {
		err := c.link.Send(wire.RegisterVoice(pcm))
		c.Post(registrationDispatched{err: err})
	}()
}

func (c *Controller) handleRegistrationDispatched(err error) {
	if err == nil {
		return
	}
	if c.state == StateEnrolling {
		c.setState(StateIdle)
	}
	c.sink.Status("Send failed: " + err.Error())
}

func (c *Controller) handleCaptureFailed(err error) {
	switch c.state {
	case StateRecording:
		c.releaseCapture()
		c.buffer.Flush()
		c.setState(StateIdle)
	case StateEnrolling:
		c.enrollCancel = nil
		c.setState(StateIdle)
	}
	c.sink.Status("Microphone unavailable: " + err.Error())
}

func (c *Controller) handleExclusion(exclude bool) {
	switch c.state {
	case StateDisconnected, StateConnecting:
		c.sink.Status("Not connected")
		return
	}
	c.excludeVoice = exclude
	go c.send(wire.SetVoiceExclusion(exclude, c.voiceID))
	if exclude {
		c.sink.Status("Excluding your voice from transcripts")
	} else {
		c.sink.Status("Including your voice (tagged YOU)")
	}
}

func (c *Controller) releaseCapture() {
	if c.capture == nil {
		return
	}
	c.capture.ClearCallback()
	c.capture.Stop()
	c.capture.Close()
	c.capture = nil
}

func captureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate: wire.SampleRate,
		Channels:   wire.Channels,
	}
}
