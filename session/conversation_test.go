package session

import (
	"fmt"
	"testing"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"USER", "YOU"},
		{"SPEAKER_0", "Speaker 0"},
		{"SPEAKER_12", "Speaker 12"},
		{"SPEAKER_", "SPEAKER_"},
		{"SPEAKER_x", "SPEAKER_x"},
		{"guest-7", "guest-7"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.tag); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestPaletteSlot(t *testing.T) {
	if got := PaletteSlot("USER"); got != PaletteUser {
		t.Fatalf("USER slot = %d", got)
	}
	if got := PaletteSlot("SPEAKER_3"); got != 3 {
		t.Fatalf("SPEAKER_3 slot = %d", got)
	}
	if got := PaletteSlot("SPEAKER_13"); got != 3 {
		t.Fatalf("SPEAKER_13 slot = %d, want wrap to 3", got)
	}
	// Unrecognised tags still map deterministically inside the palette.
	slot := PaletteSlot("guest-7")
	if slot < 0 || slot >= PaletteSize {
		t.Fatalf("guest slot %d outside palette", slot)
	}
	if again := PaletteSlot("guest-7"); again != slot {
		t.Fatalf("guest slot unstable: %d then %d", slot, again)
	}
}

func TestLogEviction(t *testing.T) {
	l := NewLog()
	for i := 0; i < LogCap; i++ {
		_, evicted := l.Append("SPEAKER_0", fmt.Sprintf("line %d", i))
		if evicted {
			t.Fatalf("eviction at entry %d, below the cap", i)
		}
	}
	if l.Len() != LogCap {
		t.Fatalf("len = %d, want %d", l.Len(), LogCap)
	}

	_, evicted := l.Append("SPEAKER_1", "one too many")
	if !evicted {
		t.Fatal("append past the cap did not evict")
	}
	if l.Len() != LogCap {
		t.Fatalf("len after eviction = %d", l.Len())
	}

	entries := l.Entries()
	if entries[0].Text != "line 1" {
		t.Fatalf("oldest surviving entry = %q, want \"line 1\"", entries[0].Text)
	}
	if entries[LogCap-1].Text != "one too many" {
		t.Fatalf("newest entry = %q", entries[LogCap-1].Text)
	}
}

func TestLogClear(t *testing.T) {
	l := NewLog()
	l.Append("USER", "hi")
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("len after clear = %d", l.Len())
	}
}
