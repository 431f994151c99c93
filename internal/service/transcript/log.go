// Package transcript holds the append-only conversation log of a session.
package transcript

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mindchain/mindmate/backend/internal/model/chat"
)

var (
	ErrInvalidMessage  = errors.New("invalid message")
	ErrMessageNotFound = errors.New("message not found")
	ErrAudioAttached   = errors.New("audio already attached")
)

// Log is an ordered, append-only record of messages. Entries are never
// edited or removed; supplementary audio is tracked beside them and
// projected on read.
type Log struct {
	mu      sync.RWMutex
	prefix  string
	seq     uint64
	entries []chat.Message
	index   map[string]int
	audio   map[string]string
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New creates an empty log. Message ids are "<prefix>-<n>".
func New(prefix string, opts ...Option) *Log {
	if prefix == "" {
		prefix = "msg"
	}
	l := &Log{
		prefix:  prefix,
		entries: make([]chat.Message, 0, 16),
		index:   make(map[string]int),
		audio:   make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append assigns id and createdAt and adds m to the end of the log.
func (l *Log) Append(m chat.Message) (chat.Message, error) {
	if err := validate(m); err != nil {
		return chat.Message{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	m.ID = fmt.Sprintf("%s-%d", l.prefix, l.seq)

	createdAt := l.now().UTC()
	if n := len(l.entries); n > 0 && createdAt.Before(l.entries[n-1].CreatedAt) {
		createdAt = l.entries[n-1].CreatedAt
	}
	m.CreatedAt = createdAt

	l.index[m.ID] = len(l.entries)
	l.entries = append(l.entries, m)
	return m, nil
}

// AttachAudio records a synthesized audio reference for a text message.
// It can be set once per message.
func (l *Log) AttachAudio(id, ref string) (chat.Message, error) {
	if ref == "" {
		return chat.Message{}, fmt.Errorf("%w: empty audio reference", ErrInvalidMessage)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.index[id]
	if !ok {
		return chat.Message{}, ErrMessageNotFound
	}
	entry := l.entries[pos]
	if entry.Kind != chat.KindText {
		return chat.Message{}, fmt.Errorf("%w: audio can only accompany text, got %s", ErrInvalidMessage, entry.Kind)
	}
	if _, exists := l.audio[id]; exists {
		return chat.Message{}, ErrAudioAttached
	}
	l.audio[id] = ref
	return l.project(entry), nil
}

// All returns a copy of the log in insertion order.
func (l *Log) All() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]chat.Message, len(l.entries))
	for i, entry := range l.entries {
		out[i] = l.project(entry)
	}
	return out
}

// Recent returns up to n trailing messages in insertion order.
func (l *Log) Recent(n int) []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if n >= 0 && len(l.entries) > n {
		start = len(l.entries) - n
	}
	out := make([]chat.Message, 0, len(l.entries)-start)
	for _, entry := range l.entries[start:] {
		out = append(out, l.project(entry))
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// project overlays attached audio; such messages are reported as audio.
func (l *Log) project(m chat.Message) chat.Message {
	if ref, ok := l.audio[m.ID]; ok {
		m.Kind = chat.KindAudio
		m.AudioRef = ref
	}
	return m
}

func validate(m chat.Message) error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, m.Role)
	}
	switch m.Kind {
	case chat.KindText:
		if m.AudioRef != "" || m.ImageRef != "" {
			return fmt.Errorf("%w: text message carries a media reference", ErrInvalidMessage)
		}
	case chat.KindAudio:
		if m.AudioRef == "" || m.ImageRef != "" {
			return fmt.Errorf("%w: audio message needs exactly an audio reference", ErrInvalidMessage)
		}
	case chat.KindImage:
		if m.ImageRef == "" || m.AudioRef != "" {
			return fmt.Errorf("%w: image message needs exactly an image reference", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	return nil
}
