package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindchain/mindmate/backend/internal/model/chat"
	"github.com/mindchain/mindmate/backend/internal/service/companion"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	h := NewHub("s1")
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelA()
	defer cancelB()

	h.StateChanged(companion.StateResponding)

	for _, ch := range []<-chan Event{a, b} {
		evt := <-ch
		assert.Equal(t, TypeState, evt.Type)
		assert.Equal(t, "s1", evt.SessionID)
		assert.Equal(t, StateData{State: companion.StateResponding}, evt.Data)
		assert.False(t, evt.Timestamp.IsZero())
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub("s1")
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.MessageAppended(chat.Message{ID: "s1-1"})
	h.MessageAppended(chat.Message{ID: "s1-2"})

	evt := <-ch
	assert.Equal(t, "s1-1", evt.Data.(chat.Message).ID)
	assert.Empty(t, ch)
}

func TestCancelAndClose(t *testing.T) {
	h := NewHub("s1")
	ch, cancel := h.Subscribe(1)
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers())

	other, _ := h.Subscribe(1)
	h.Close()
	h.Close()
	_, ok = <-other
	assert.False(t, ok)

	late, _ := h.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
	assert.ErrorIs(t, h.Play(context.Background(), []byte("x"), "mp3"), ErrClosed)
}

func TestPlayPublishesAudio(t *testing.T) {
	h := NewHub("s1")
	ch, cancel := h.Subscribe(1)
	defer cancel()

	require.NoError(t, h.Play(context.Background(), []byte("mp3-bytes"), "mp3"))

	evt := <-ch
	require.Equal(t, TypeAudio, evt.Type)
	audio := evt.Data.(AudioData)
	assert.Equal(t, []byte("mp3-bytes"), audio.Data)
	assert.Equal(t, "audio/mpeg", audio.MIMEType)
}

func TestNotify(t *testing.T) {
	h := NewHub("s1")
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Notify(companion.ResponseNotice)
	evt := <-ch
	assert.Equal(t, TypeNotice, evt.Type)
	assert.Equal(t, companion.ResponseNotice, evt.Data)
}
