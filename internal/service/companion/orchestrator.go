// Package companion drives one conversation: it classifies input, calls the
// remote text, image and speech capabilities and records the outcome in the
// session's transcript.
package companion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mindchain/mindmate/backend/internal/analysis/emotion"
	"github.com/mindchain/mindmate/backend/internal/analysis/intent"
	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/metrics"
	"github.com/mindchain/mindmate/backend/internal/model/chat"
	"github.com/mindchain/mindmate/backend/internal/model/persona"
	"github.com/mindchain/mindmate/backend/internal/model/speech"
	"github.com/mindchain/mindmate/backend/internal/service/ai"
	"github.com/mindchain/mindmate/backend/internal/service/transcript"
	"github.com/mindchain/mindmate/backend/internal/service/voice"
)

// ImageReplyText accompanies every generated image.
const ImageReplyText = "I've created a calming image for you based on your request:"

// SpeechSynthesizer turns reply text into an encoded audio payload.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice speech.Voice) (speech.Audio, error)
}

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// AudioPlayer plays synthesized replies without blocking.
type AudioPlayer interface {
	Play(audio speech.Audio)
}

// MediaSaver stores synthesized audio and returns a reference to it.
type MediaSaver interface {
	SaveAudio(ctx context.Context, audio speech.Audio) (string, error)
}

// Notifier receives everything a client needs to render the session.
type Notifier interface {
	Notify(n Notice)
	StateChanged(s State)
	MessageAppended(m chat.Message)
	MessageUpdated(m chat.Message)
}

// Deps are the collaborators of an Orchestrator. Only Text and Images are
// required for typed conversations.
type Deps struct {
	Text        ai.TextGenerator
	Images      ai.ImageGenerator
	Speech      SpeechSynthesizer
	Transcriber Transcriber
	Device      voice.Device
	Player      AudioPlayer
	Media       MediaSaver
	Notifier    Notifier
	Prompts     *ai.PersonaPromptManager
	Metrics     *metrics.Metrics
}

// Options describe one session.
type Options struct {
	SessionID         string
	Persona           persona.Persona
	Voice             speech.Voice
	HistoryLimit      int
	SpeechTimeout     time.Duration
	MaxRecordingBytes int
	Clock             func() time.Time
}

// Result describes what a turn produced. Err and Notice are set when the
// primary call failed; the user message is still recorded.
type Result struct {
	Intent     intent.Intent `json:"intent,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	User       *chat.Message `json:"user,omitempty"`
	Reply      *chat.Message `json:"reply,omitempty"`
	Notice     *Notice       `json:"notice,omitempty"`
	Err        error         `json:"-"`
}

// Orchestrator runs a single conversation. At most one response or
// recording is in progress at a time.
type Orchestrator struct {
	deps     Deps
	opts     Options
	log      *transcript.Log
	recorder *voice.Recorder

	mu    sync.Mutex
	state State

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup
}

// New creates an orchestrator and seeds the transcript with the persona's
// opening line.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Prompts == nil {
		deps.Prompts = ai.NewPersonaPromptManager()
	}
	if !opts.Voice.Valid() {
		opts.Voice = speech.DefaultVoice
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.SpeechTimeout <= 0 {
		opts.SpeechTimeout = 30 * time.Second
	}

	var logOpts []transcript.Option
	if opts.Clock != nil {
		logOpts = append(logOpts, transcript.WithClock(opts.Clock))
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		deps:   deps,
		opts:   opts,
		log:    transcript.New(opts.SessionID, logOpts...),
		state:  StateIdle,
		ctx:    ctx,
		cancel: cancel,
	}
	if deps.Device != nil {
		o.recorder = voice.NewRecorder(deps.Device, opts.MaxRecordingBytes)
	}

	if line := strings.TrimSpace(opts.Persona.OpeningLine); line != "" {
		if _, err := o.log.Append(chat.Message{Role: chat.RoleAssistant, Content: line, Kind: chat.KindText}); err != nil {
			slog.Error("[companion] failed to seed welcome message", "session", opts.SessionID, logger.Err(err))
		}
	}
	return o
}

func (o *Orchestrator) SessionID() string { return o.opts.SessionID }

func (o *Orchestrator) Persona() persona.Persona { return o.opts.Persona }

func (o *Orchestrator) Voice() speech.Voice { return o.opts.Voice }

// State returns the current interaction state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Messages returns the transcript in insertion order.
func (o *Orchestrator) Messages() []chat.Message {
	return o.log.All()
}

// Respond handles one typed message. It fails only when the text is blank
// or the session is busy; remote failures are reported through Result.
func (o *Orchestrator) Respond(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}
	if err := o.fire(TriggerSubmit); err != nil {
		return Result{}, err
	}
	defer o.settle()

	return o.respond(ctx, text), nil
}

// Wait blocks until background speech work has finished.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// Close releases the microphone and stops background work.
func (o *Orchestrator) Close() {
	o.CancelRecording()
	o.cancel()
	o.bg.Wait()
}

func (o *Orchestrator) respond(ctx context.Context, text string) Result {
	history := o.log.Recent(o.opts.HistoryLimit)

	user, err := o.append(chat.Message{Role: chat.RoleUser, Content: text, Kind: chat.KindText})
	if err != nil {
		return o.fail(Result{}, &RemoteCallError{Capability: metrics.CapabilityText, Err: err})
	}

	res := Result{Intent: intent.Classify(text).Intent, User: &user}
	o.deps.Metrics.ObserveResponse(string(res.Intent))

	if res.Intent == intent.ImageRequest {
		return o.respondWithImage(ctx, text, res)
	}
	return o.respondWithText(ctx, text, history, res)
}

func (o *Orchestrator) respondWithImage(ctx context.Context, text string, res Result) Result {
	if o.deps.Images == nil {
		return o.fail(res, &RemoteCallError{Capability: metrics.CapabilityImage, Err: errors.New("image generation unavailable")})
	}

	url, err := o.deps.Images.GenerateImage(ctx, ai.ImagePrompt(text))
	if err != nil {
		return o.fail(res, &RemoteCallError{Capability: metrics.CapabilityImage, Err: err})
	}

	reply, err := o.append(chat.Message{Role: chat.RoleAssistant, Content: ImageReplyText, Kind: chat.KindImage, ImageRef: url})
	if err != nil {
		return o.fail(res, &RemoteCallError{Capability: metrics.CapabilityImage, Err: err})
	}
	res.Reply = &reply
	return res
}

func (o *Orchestrator) respondWithText(ctx context.Context, text string, history []chat.Message, res Result) Result {
	if o.deps.Text == nil {
		return o.fail(res, &RemoteCallError{Capability: metrics.CapabilityText, Err: errors.New("text generation unavailable")})
	}

	mood := emotion.Analyze(text)
	reply, err := o.deps.Text.GenerateText(ctx, ai.TextRequest{
		System:  o.deps.Prompts.BuildSystemPrompt(o.opts.Persona, mood),
		History: history,
		Prompt:  text,
	})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		return o.fail(res, &RemoteCallError{Capability: metrics.CapabilityText, Err: err})
	}

	msg, err := o.append(chat.Message{Role: chat.RoleAssistant, Content: strings.TrimSpace(reply), Kind: chat.KindText})
	if err != nil {
		return o.fail(res, &RemoteCallError{Capability: metrics.CapabilityText, Err: err})
	}
	res.Reply = &msg

	o.speak(msg)
	return res
}

// speak synthesizes msg in the background. Failures are only logged and
// never touch the transcript entry itself.
func (o *Orchestrator) speak(msg chat.Message) {
	if o.deps.Speech == nil {
		return
	}

	o.bg.Add(1)
	go func() {
		defer o.bg.Done()

		ctx, cancel := context.WithTimeout(o.ctx, o.opts.SpeechTimeout)
		defer cancel()

		audio, err := o.deps.Speech.Synthesize(ctx, msg.Content, o.opts.Voice)
		if err != nil {
			slog.Warn("[companion] speech synthesis failed", "session", o.opts.SessionID, "message", msg.ID, logger.Err(err))
			return
		}
		if o.deps.Player != nil {
			o.deps.Player.Play(audio)
		}
		if o.deps.Media == nil {
			return
		}

		ref, err := o.deps.Media.SaveAudio(ctx, audio)
		if err != nil {
			slog.Warn("[companion] failed to store reply audio", "session", o.opts.SessionID, "message", msg.ID, logger.Err(err))
			return
		}
		updated, err := o.log.AttachAudio(msg.ID, ref)
		if err != nil {
			slog.Warn("[companion] failed to attach reply audio", "session", o.opts.SessionID, "message", msg.ID, logger.Err(err))
			return
		}
		o.deps.Notifier.MessageUpdated(updated)
	}()
}

func (o *Orchestrator) append(m chat.Message) (chat.Message, error) {
	stored, err := o.log.Append(m)
	if err != nil {
		return chat.Message{}, err
	}
	o.deps.Notifier.MessageAppended(stored)
	return stored, nil
}

// fail reports err to the client and records it on res.
func (o *Orchestrator) fail(res Result, err error) Result {
	slog.Warn("[companion] turn failed", "session", o.opts.SessionID, logger.Err(err))
	if notice, ok := NoticeFor(err); ok {
		o.deps.Notifier.Notify(notice)
		res.Notice = &notice
	}
	res.Err = err
	return res
}

// fire applies t or returns ErrBusy when the current state does not allow it.
func (o *Orchestrator) fire(t Trigger) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fireLocked(t)
}

func (o *Orchestrator) fireLocked(t Trigger) error {
	next, ok := Next(o.state, t)
	if !ok {
		return ErrBusy
	}
	o.state = next
	o.deps.Notifier.StateChanged(next)
	return nil
}

func (o *Orchestrator) settle() {
	if err := o.fire(TriggerSettled); err != nil {
		slog.Error("[companion] unexpected state on settle", "session", o.opts.SessionID, "state", o.State())
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice)                {}
func (nopNotifier) StateChanged(State)           {}
func (nopNotifier) MessageAppended(chat.Message) {}
func (nopNotifier) MessageUpdated(chat.Message)  {}
