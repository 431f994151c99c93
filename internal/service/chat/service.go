// Package chat keeps the live conversations of the server, one per session.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mindchain/mindmate/backend/internal/metrics"
	"github.com/mindchain/mindmate/backend/internal/model/chat"
	"github.com/mindchain/mindmate/backend/internal/model/persona"
	"github.com/mindchain/mindmate/backend/internal/model/speech"
	"github.com/mindchain/mindmate/backend/internal/service/ai"
	"github.com/mindchain/mindmate/backend/internal/service/companion"
	"github.com/mindchain/mindmate/backend/internal/service/events"
	"github.com/mindchain/mindmate/backend/internal/service/voice"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Speech is the speech capability shared by all sessions.
type Speech interface {
	companion.SpeechSynthesizer
	companion.Transcriber
	ResolveVoice(alias string) speech.Voice
}

// Dependencies are shared by every conversation. Speech and Media may be nil.
type Dependencies struct {
	Personas persona.Store
	Text     ai.TextGenerator
	Images   ai.ImageGenerator
	Speech   Speech
	Media    companion.MediaSaver
	Prompts  *ai.PersonaPromptManager
	Metrics  *metrics.Metrics
}

// Config tunes new conversations.
type Config struct {
	HistoryLimit      int
	SpeechTimeout     time.Duration
	MaxRecordingBytes int
	RecordingFormat   string
}

// Conversation bundles the runtime pieces of one session.
type Conversation struct {
	Session      chat.Session
	Orchestrator *companion.Orchestrator
	Hub          *events.Hub
	Device       *voice.ChannelDevice
	Player       *voice.Player

	now        func() time.Time
	lastActive atomic.Int64
}

// LastActive is the last time a client touched the conversation.
func (c *Conversation) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load()).UTC()
}

// SetMicrophone applies the client's microphone permission. Revoking it
// drops a recording in progress.
func (c *Conversation) SetMicrophone(granted bool, format string) {
	if format != "" {
		c.Device.SetFormat(format)
	}
	c.Device.SetAvailable(granted)
	if !granted && c.Orchestrator.CancelRecording() {
		slog.Info("[chat] recording dropped after microphone was revoked", "session", c.Session.ID)
	}
}

// Touch marks the conversation as in use. Transports call it for every
// inbound client frame; state changes touch it as well.
func (c *Conversation) Touch() {
	c.touch(c.now())
}

// Feed pushes a recorded chunk to the session microphone.
func (c *Conversation) Feed(chunk []byte) error {
	c.Touch()
	return c.Device.Feed(chunk)
}

func (c *Conversation) touch(now time.Time) {
	c.lastActive.Store(now.UnixNano())
}

// activityNotifier forwards orchestrator notifications and records every
// state change as activity.
type activityNotifier struct {
	companion.Notifier
	conv *Conversation
}

func (n activityNotifier) StateChanged(st companion.State) {
	n.conv.Touch()
	n.Notifier.StateChanged(st)
}

func (c *Conversation) close() {
	c.Orchestrator.Close()
	c.Player.Wait()
	c.Hub.Close()
}

// Service encapsulates conversation state management.
type Service struct {
	deps Dependencies
	cfg  Config
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Conversation
}

// NewService creates an empty registry.
func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Personas == nil {
		deps.Personas = persona.NewMemoryStore(persona.Seed())
	}
	if deps.Prompts == nil {
		deps.Prompts = ai.NewPersonaPromptManager()
	}
	return &Service{
		deps:     deps,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Conversation),
	}
}

// CreateSession opens a conversation with a persona; an empty id selects
// the default companion. The transcript starts with the persona greeting.
func (s *Service) CreateSession(_ context.Context, personaID string) (*Conversation, error) {
	p, ok := s.deps.Personas.FindByID(personaID)
	if !ok {
		return nil, ErrPersonaNotFound
	}

	now := s.now()
	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: p.ID,
		Voice:     string(speech.DefaultVoice),
		CreatedAt: now.UTC(),
	}

	hub := events.NewHub(session.ID)
	device := voice.NewChannelDevice(s.cfg.RecordingFormat)
	player := voice.NewPlayer(hub, s.cfg.SpeechTimeout)
	conv := &Conversation{
		Session: session,
		Hub:     hub,
		Device:  device,
		Player:  player,
		now:     s.now,
	}
	conv.touch(now)

	deps := companion.Deps{
		Text:     s.deps.Text,
		Images:   s.deps.Images,
		Device:   device,
		Player:   player,
		Notifier: activityNotifier{Notifier: hub, conv: conv},
		Prompts:  s.deps.Prompts,
		Metrics:  s.deps.Metrics,
	}
	if s.deps.Speech != nil {
		deps.Speech = s.deps.Speech
		deps.Transcriber = s.deps.Speech
		session.Voice = string(s.deps.Speech.ResolveVoice(p.VoiceID))
	}
	if s.deps.Media != nil {
		deps.Media = s.deps.Media
	}

	conv.Orchestrator = companion.New(deps, companion.Options{
		SessionID:         session.ID,
		Persona:           p,
		Voice:             speech.Voice(session.Voice),
		HistoryLimit:      s.cfg.HistoryLimit,
		SpeechTimeout:     s.cfg.SpeechTimeout,
		MaxRecordingBytes: s.cfg.MaxRecordingBytes,
		Clock:             s.now,
	})

	conv.Session = session
	s.mu.Lock()
	s.sessions[session.ID] = conv
	s.mu.Unlock()

	s.deps.Metrics.SessionOpened()
	slog.Info("[chat] session created", "session", session.ID, "persona", p.ID, "voice", session.Voice)
	return conv, nil
}

// Conversation returns the live conversation of a session and marks it active.
func (s *Service) Conversation(sessionID string) (*Conversation, error) {
	s.mu.RLock()
	conv, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	conv.touch(s.now())
	return conv, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	conv, err := s.Conversation(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return conv.Session, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	conv, err := s.Conversation(sessionID)
	if err != nil {
		return nil, err
	}
	return conv.Orchestrator.Messages(), nil
}

// Personas lists the available companions.
func (s *Service) Personas() []persona.Persona {
	return s.deps.Personas.List()
}

// EndSession closes one conversation.
func (s *Service) EndSession(sessionID string) error {
	s.mu.Lock()
	conv, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	conv.close()
	s.deps.Metrics.SessionClosed()
	return nil
}

// ExpireIdle closes conversations that have been idle longer than ttl.
// Conversations flushing or responding are left to finish; an abandoned
// recording is cancelled so the microphone is released.
func (s *Service) ExpireIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	type expiry struct {
		conv       *Conversation
		lastActive time.Time
	}

	s.mu.Lock()
	var expired []expiry
	for id, conv := range s.sessions {
		lastActive := conv.LastActive()
		if lastActive.After(cutoff) {
			continue
		}
		switch conv.Orchestrator.State() {
		case companion.StateFlushing, companion.StateResponding:
			continue
		case companion.StateRecording:
			if !conv.Orchestrator.CancelRecording() {
				// the recording was stopped concurrently and is now being processed
				continue
			}
			slog.Info("[chat] abandoned recording cancelled", "session", id)
		}
		expired = append(expired, expiry{conv: conv, lastActive: lastActive})
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.conv.close()
		s.deps.Metrics.SessionClosed()
		slog.Info("[chat] session expired", "session", e.conv.Session.ID, "lastActive", e.lastActive)
	}
	return len(expired)
}

// Len returns the number of live conversations.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close ends every conversation.
func (s *Service) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Conversation)
	s.mu.Unlock()

	for _, conv := range all {
		conv.close()
		s.deps.Metrics.SessionClosed()
	}
}
