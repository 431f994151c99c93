package speech

// SynthesisRequest asks for spoken audio of Text. An empty Voice selects
// the session or default voice.
type SynthesisRequest struct {
	Text      string `json:"text"`
	Voice     string `json:"voice"`
	SessionID string `json:"sessionId,omitempty"`
}

// TranscriptionRequest carries a chunk of recorded audio.
type TranscriptionRequest struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"` // webm, mp3, wav, ...
}
