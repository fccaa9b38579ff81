package session

import (
	"fmt"
	"strconv"
	"strings"
)

// LogCap is the display cap; the oldest entry is evicted beyond it.
const LogCap = 15

// PaletteSize is the number of rotating speaker colours. The wearer's
// own entries use a reserved colour outside the rotation (PaletteUser).
const (
	PaletteSize = 10
	PaletteUser = -1
)

const userTag = "USER"

// Entry is one rendered line of the conversation.
type Entry struct {
	Speaker string // display name, already resolved
	Text    string
	Palette int // PaletteUser or a slot in [0, PaletteSize)
	IsUser  bool
}

// DisplayName resolves a server speaker tag for rendering: the enrolled
// wearer becomes "YOU", diarisation labels become "Speaker n", anything
// else passes through.
func DisplayName(tag string) string {
	if tag == userTag {
		return "YOU"
	}
	if n, ok := speakerNumber(tag); ok {
		return fmt.Sprintf("Speaker %d", n)
	}
	return tag
}

// PaletteSlot maps a speaker tag to its colour deterministically, so a
// speaker keeps the same colour across segments.
func PaletteSlot(tag string) int {
	if tag == userTag {
		return PaletteUser
	}
	if n, ok := speakerNumber(tag); ok {
		return n % PaletteSize
	}
	sum := 0
	for _, b := range []byte(tag) {
		sum += int(b)
	}
	return sum % PaletteSize
}

func speakerNumber(tag string) (int, bool) {
	rest, ok := strings.CutPrefix(tag, "SPEAKER_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Log is the bounded, append-only conversation history.
type Log struct {
	entries []Entry
}

func NewLog() *Log {
	return &Log{entries: make([]Entry, 0, LogCap)}
}

// Append adds one entry, evicting the oldest when the cap is exceeded.
// It reports whether an eviction happened.
func (l *Log) Append(tag, text string) (Entry, bool) {
	e := Entry{
		Speaker: DisplayName(tag),
		Text:    text,
		Palette: PaletteSlot(tag),
		IsUser:  tag == userTag,
	}
	l.entries = append(l.entries, e)
	evicted := false
	if len(l.entries) > LogCap {
		l.entries = l.entries[1:]
		evicted = true
	}
	return e, evicted
}

func (l *Log) Clear() {
	l.entries = l.entries[:0]
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy safe to hand across goroutines.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}
