package companion

import "errors"

// Category groups notices by what went wrong.
type Category string

const (
	CategoryMicrophone    Category = "microphone"
	CategoryTranscription Category = "transcription"
	CategoryResponse      Category = "response"
)

// Notice is a short user-visible failure message.
type Notice struct {
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

var (
	MicrophoneNotice = Notice{
		Category:    CategoryMicrophone,
		Title:       "Microphone Error",
		Description: "Could not access microphone. Please check permissions.",
	}
	TranscriptionNotice = Notice{
		Category:    CategoryTranscription,
		Title:       "Error",
		Description: "Could not process audio. Please try again.",
	}
	ResponseNotice = Notice{
		Category:    CategoryResponse,
		Title:       "Error",
		Description: "I'm having trouble responding right now. Please try again.",
	}
)

// NoticeFor maps a companion error onto its notice.
func NoticeFor(err error) (Notice, bool) {
	var (
		permErr   *PermissionError
		transErr  *TranscriptionError
		remoteErr *RemoteCallError
	)
	switch {
	case errors.As(err, &permErr):
		return MicrophoneNotice, true
	case errors.As(err, &transErr):
		return TranscriptionNotice, true
	case errors.As(err, &remoteErr):
		return ResponseNotice, true
	}
	return Notice{}, false
}
