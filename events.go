package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"glasscribe/session"
)

// Messages the session controller pushes into the display layer.
type StateMsg struct{ State session.State }
type StatusMsg struct{ Text string }
type SegmentMsg struct {
	Entry   session.Entry
	Evicted bool
}
type ClearMsg struct{}

// programSink adapts session.EventSink onto a Bubble Tea program.
// Events arriving before the program starts are dropped; the model
// renders from scratch anyway.
type programSink struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *programSink) attach(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *programSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *programSink) StateChanged(st session.State) { s.send(StateMsg{State: st}) }

func (s *programSink) Status(msg string) { s.send(StatusMsg{Text: msg}) }

func (s *programSink) Segment(e session.Entry, evicted bool) {
	s.send(SegmentMsg{Entry: e, Evicted: evicted})
}

func (s *programSink) ConversationCleared() { s.send(ClearMsg{}) }
