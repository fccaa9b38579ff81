package session

import "glasscribe/wire"

// Event is anything posted to the controller loop. User intents are
// exported; worker notifications stay package-private.
type Event interface{ sessionEvent() }

// User intents.

type ConnectIntent struct{}
type StartRecordIntent struct{}
type StopRecordIntent struct{}
type DisconnectIntent struct{}
type EnrollIntent struct{}
type ExclusionIntent struct{ Exclude bool }

func (ConnectIntent) sessionEvent()     {}
func (StartRecordIntent) sessionEvent() {}
func (StopRecordIntent) sessionEvent()  {}
func (DisconnectIntent) sessionEvent()  {}
func (EnrollIntent) sessionEvent()      {}
func (ExclusionIntent) sessionEvent()   {}

// Worker notifications.

type transportOpen struct{}

type transportFailed struct{ err error }

type transportClosed struct {
	reason string
	remote bool
}

type inboundFrame struct{ frame wire.Frame }

type captureFailed struct{ err error }

type audioDispatched struct{ err error }

type registrationDispatched struct{ err error }

type enrollmentCaptured struct{ pcm []byte }

type reconnectAttempt struct{ attempt, max int }

type reconnectExhausted struct{}

func (transportOpen) sessionEvent()          {}
func (transportFailed) sessionEvent()        {}
func (transportClosed) sessionEvent()        {}
func (inboundFrame) sessionEvent()           {}
func (captureFailed) sessionEvent()          {}
func (audioDispatched) sessionEvent()        {}
func (registrationDispatched) sessionEvent() {}
func (enrollmentCaptured) sessionEvent()     {}
func (reconnectAttempt) sessionEvent()       {}
func (reconnectExhausted) sessionEvent()     {}
