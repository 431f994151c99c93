// Package events fans session activity out to connected clients.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mindchain/mindmate/backend/internal/model/chat"
	"github.com/mindchain/mindmate/backend/internal/model/speech"
	"github.com/mindchain/mindmate/backend/internal/service/companion"
)

// Type names an event.
type Type string

const (
	TypeState          Type = "state"
	TypeMessage        Type = "message"
	TypeMessageUpdated Type = "message_updated"
	TypeNotice         Type = "notice"
	TypeAudio          Type = "audio"
)

// ErrClosed is returned by Play after the hub was closed.
var ErrClosed = errors.New("event hub closed")

// Event is one notification for the clients of a session.
type Event struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"sessionId"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// StateData is the payload of a state event.
type StateData struct {
	State companion.State `json:"state"`
}

// AudioData is the payload of an audio event. Data is raw audio and is
// base64 encoded in JSON.
type AudioData struct {
	Format   string `json:"format"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

const defaultBuffer = 32

// Hub broadcasts events to subscribers. Slow subscribers miss events
// rather than block the publisher.
type Hub struct {
	sessionID string
	now       func() time.Time

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

// NewHub creates a hub for one session.
func NewHub(sessionID string) *Hub {
	return &Hub{
		sessionID: sessionID,
		now:       time.Now,
		subs:      make(map[int]chan Event),
	}
}

// Subscribe registers a listener. The channel is closed by cancel or when
// the hub closes.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of active listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers an event to every subscriber.
func (h *Hub) Publish(t Type, data any) {
	evt := Event{Type: t, SessionID: h.sessionID, Data: data, Timestamp: h.now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			slog.Warn("[events] subscriber is lagging, event dropped", "session", h.sessionID, "subscriber", id, "type", t)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) Notify(n companion.Notice) { h.Publish(TypeNotice, n) }

func (h *Hub) StateChanged(s companion.State) { h.Publish(TypeState, StateData{State: s}) }

func (h *Hub) MessageAppended(m chat.Message) { h.Publish(TypeMessage, m) }

func (h *Hub) MessageUpdated(m chat.Message) { h.Publish(TypeMessageUpdated, m) }

// Play hands decoded audio to the connected clients, which play it.
func (h *Hub) Play(ctx context.Context, audio []byte, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	h.Publish(TypeAudio, AudioData{Format: format, MIMEType: speech.MIMEType(format), Data: audio})
	return nil
}
