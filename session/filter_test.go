package session

import "testing"

func TestValidSpeech(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", false},
		{"  ", false},
		{"\t\n", false},
		{"um", false},
		{"UM", false},
		{" Hmm ", false},
		{"background", false},
		{"BREATHING", false},
		{"aaaa", false},
		{"aaa", false},
		{"!!!", false},
		{"a", true},
		{"aa", true},
		{"aaab", true},
		{"hello", true},
		{"umm", true}, // not in the token set
		{"好", true},   // single CJK rune
		{"好好好", false}, // repeated rune, any script
		{"what is up", true},
	}
	for _, tt := range tests {
		if got := ValidSpeech(tt.text); got != tt.want {
			t.Errorf("ValidSpeech(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
