package session

import (
	"strings"
	"unicode/utf8"
)

// Non-speech tokens the recognizer tends to emit for background audio.
// Matched case-insensitively against the trimmed segment text.
var noiseTokens = map[string]struct{}{
	"um": {}, "uh": {}, "ah": {}, "eh": {}, "oh": {},
	"mm": {}, "hmm": {},
	"background": {}, "noise": {}, "static": {}, "silence": {},
	"breathing": {}, "cough": {}, "sigh": {}, "yawn": {},
}

// ValidSpeech decides whether a transcript segment is worth rendering.
// Rejected: empty or whitespace-only text, known noise tokens, and any
// string that is one character repeated three or more times.
func ValidSpeech(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if _, noisy := noiseTokens[strings.ToLower(trimmed)]; noisy {
		return false
	}
	if isRepeatedRune(trimmed) {
		return false
	}
	return true
}

func isRepeatedRune(s string) bool {
	if utf8.RuneCountInString(s) < 3 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}
