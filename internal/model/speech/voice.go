package speech

import (
	"fmt"
	"strings"
)

// Voice is one of the fixed synthesis voices.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"

	// DefaultVoice speaks the companion's replies.
	DefaultVoice = VoiceNova
)

var voices = []Voice{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}

// Voices lists the supported voices in display order.
func Voices() []Voice {
	return append([]Voice(nil), voices...)
}

// Valid reports whether v is a supported voice.
func (v Voice) Valid() bool {
	for _, known := range voices {
		if v == known {
			return true
		}
	}
	return false
}

// ParseVoice normalizes s into a supported voice.
func ParseVoice(s string) (Voice, error) {
	v := Voice(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unsupported voice %q", s)
	}
	return v, nil
}
