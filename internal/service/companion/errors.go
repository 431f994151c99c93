package companion

import (
	"errors"
	"fmt"
)

var (
	ErrBusy         = errors.New("companion is busy")
	ErrEmptyMessage = errors.New("message is empty")

	errBlankTranscript = errors.New("transcript is blank")
)

// PermissionError means the microphone could not be acquired.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// TranscriptionError means a recording produced no usable text.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// RemoteCallError wraps a failed text, image or speech call.
type RemoteCallError struct {
	Capability string
	Err        error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Capability, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }
