package companion

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mindchain/mindmate/backend/internal/logger"
)

var errNoMicrophone = errors.New("no microphone attached")

// StartRecording acquires the microphone. On failure the session stays idle
// and a microphone notice is sent.
func (o *Orchestrator) StartRecording() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return ErrBusy
	}

	err := errNoMicrophone
	if o.recorder != nil {
		// the capture outlives the request that started it
		err = o.recorder.Start(o.ctx)
	}
	if err != nil {
		perr := &PermissionError{Err: err}
		slog.Warn("[companion] could not start recording", "session", o.opts.SessionID, logger.Err(err))
		o.deps.Notifier.Notify(MicrophoneNotice)
		return perr
	}
	return o.fireLocked(TriggerStart)
}

// StopRecording releases the microphone and, when audio was captured,
// transcribes it and answers the transcript. Stopping while not recording
// does nothing.
func (o *Orchestrator) StopRecording(ctx context.Context) (Result, error) {
	o.mu.Lock()
	if o.state != StateRecording {
		o.mu.Unlock()
		return Result{}, nil
	}
	recording, _ := o.recorder.Stop()
	if err := o.fireLocked(TriggerStop); err != nil {
		o.mu.Unlock()
		return Result{}, err
	}
	o.mu.Unlock()

	if recording.Empty() {
		slog.Debug("[companion] empty recording, nothing to transcribe", "session", o.opts.SessionID)
		return Result{}, o.fire(TriggerEmpty)
	}

	text, err := o.transcribe(ctx, recording.Bytes(), recording.Format)
	if err != nil {
		res := o.fail(Result{}, &TranscriptionError{Err: err})
		return res, o.fire(TriggerFail)
	}

	if err := o.fire(TriggerTranscript); err != nil {
		return Result{}, err
	}
	defer o.settle()

	res := o.respond(ctx, text)
	res.Transcript = text
	return res, nil
}

// CancelRecording drops the current recording without transcribing it.
// It reports whether a recording was running.
func (o *Orchestrator) CancelRecording() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateRecording {
		return false
	}
	o.recorder.Discard()
	return o.fireLocked(TriggerCancel) == nil
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if o.deps.Transcriber == nil {
		return "", errors.New("transcription unavailable")
	}
	text, err := o.deps.Transcriber.Transcribe(ctx, audio, format)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errBlankTranscript
	}
	return text, nil
}
