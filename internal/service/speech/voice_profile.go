package speech

import (
	"strings"

	"github.com/mindchain/mindmate/backend/internal/model/speech"
)

// voiceAliases maps persona voice ids onto the fixed synthesis voices.
var voiceAliases = map[string]speech.Voice{
	"mindmate-warm": speech.VoiceNova,
	"coach-bright":  speech.VoiceShimmer,
	"sleep-soft":    speech.VoiceFable,
	"neutral":       speech.VoiceAlloy,
	"deep":          speech.VoiceOnyx,
	"default":       speech.DefaultVoice,
}

// NormalizeVoiceAlias resolves alias to a supported voice. Unknown aliases
// fall back to fallback, or DefaultVoice when fallback is empty.
func NormalizeVoiceAlias(alias string, fallback speech.Voice) speech.Voice {
	key := strings.ToLower(strings.TrimSpace(alias))
	if v, ok := voiceAliases[key]; ok {
		return v
	}
	if v, err := speech.ParseVoice(key); err == nil {
		return v
	}
	if fallback.Valid() {
		return fallback
	}
	return speech.DefaultVoice
}
