package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mindchain/mindmate/backend/internal/model/speech"
)

var (
	ErrEmptyAudio = errors.New("audio payload is empty")
	ErrEmptyText  = errors.New("text is empty")
)

// Recognizer is the remote speech-to-text capability.
type Recognizer interface {
	TranscribeAudio(ctx context.Context, audio []byte, format, language string) (string, error)
}

// Synthesizer is the remote text-to-speech capability.
type Synthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, voice, format string) ([]byte, error)
}

// Config holds speech defaults.
type Config struct {
	Voice    speech.Voice
	Format   string
	Language string
	Timeout  time.Duration
}

// Service applies defaults and timeouts around the remote speech calls.
type Service struct {
	recognizer  Recognizer
	synthesizer Synthesizer
	cfg         Config
}

// NewService creates a speech service. Either capability may be nil.
func NewService(recognizer Recognizer, synthesizer Synthesizer, cfg Config) *Service {
	if !cfg.Voice.Valid() {
		cfg.Voice = speech.DefaultVoice
	}
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Service{recognizer: recognizer, synthesizer: synthesizer, cfg: cfg}
}

// DefaultVoice is the voice used when a request names none.
func (s *Service) DefaultVoice() speech.Voice {
	return s.cfg.Voice
}

// ResolveVoice maps a persona voice id onto a supported voice.
func (s *Service) ResolveVoice(alias string) speech.Voice {
	return NormalizeVoiceAlias(alias, s.cfg.Voice)
}

// Transcribe turns recorded audio into text.
func (s *Service) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if s.recognizer == nil {
		return "", errors.New("speech recognition unavailable")
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	text, err := s.recognizer.TranscribeAudio(ctx, audio, format, s.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("transcribe %s audio: %w", format, err)
	}
	return strings.TrimSpace(text), nil
}

// Synthesize speaks text with voice and returns a base64 payload.
func (s *Service) Synthesize(ctx context.Context, text string, voice speech.Voice) (speech.Audio, error) {
	if s.synthesizer == nil {
		return speech.Audio{}, errors.New("speech synthesis unavailable")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return speech.Audio{}, ErrEmptyText
	}
	if !voice.Valid() {
		voice = s.cfg.Voice
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := s.synthesizer.SynthesizeSpeech(ctx, text, string(voice), s.cfg.Format)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("synthesize with voice %s: %w", voice, err)
	}
	return speech.Audio{
		Data:   base64.StdEncoding.EncodeToString(data),
		Format: s.cfg.Format,
		Voice:  voice,
	}, nil
}
