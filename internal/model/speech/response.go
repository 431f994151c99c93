package speech

import (
	"encoding/base64"
	"time"
)

// Audio is an encoded audio payload as produced by speech synthesis.
// Data holds the base64 encoded bytes.
type Audio struct {
	Data   string `json:"audioData"`
	Format string `json:"format"`
	Voice  Voice  `json:"voice,omitempty"`
}

// Decode returns the raw audio bytes.
func (a Audio) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// MIMEType maps the audio format to a content type.
func (a Audio) MIMEType() string {
	return MIMEType(a.Format)
}

// MIMEType maps an audio format name to a content type.
func MIMEType(format string) string {
	switch format {
	case "mp3", "mpeg":
		return "audio/mpeg"
	case "opus", "ogg":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "webm":
		return "audio/webm"
	case "pcm":
		return "audio/pcm"
	default:
		return "application/octet-stream"
	}
}

// TranscriptionResponse is returned by the transcription tool endpoint.
type TranscriptionResponse struct {
	Text      string    `json:"text"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"createdAt"`
}

// SynthesisResponse is returned by the synthesis tool endpoint.
type SynthesisResponse struct {
	Audio
	CreatedAt time.Time `json:"createdAt"`
}
