package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSession(t *testing.T, h *Handler, sessionID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newRouter(h))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/speech/ws/" + sessionID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readUntil reads frames until one of type typ arrives, collecting the
// types seen and whether a binary frame was received.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) (frame, []string, bool) {
	t.Helper()
	var seen []string
	binary := false
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		msgType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if msgType == websocket.BinaryMessage {
			binary = true
			continue
		}
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		seen = append(seen, f.Type)
		if f.Type == typ {
			return f, seen, binary
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: typ, Data: raw}))
}

func TestWebSocketUnknownSession(t *testing.T) {
	chatSvc := newChatService(t, nil)
	r := newRouter(New(nil, chatSvc))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/speech/ws/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWebSocketTextTurn(t *testing.T) {
	chatSvc := newChatService(t, nil)
	conv, err := chatSvc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	conn := dialSession(t, New(nil, chatSvc), conv.Session.ID)

	connected, _, _ := readUntil(t, conn, "connected")
	assert.Contains(t, string(connected.Data), "I'm MindMate")

	send(t, conn, "text", TextMessage{Text: "How can I relax tonight?"})

	var seen []string
	for {
		f, types, _ := readUntil(t, conn, "message")
		seen = append(seen, types...)
		if strings.Contains(string(f.Data), "Let's breathe together.") {
			break
		}
	}
	assert.Equal(t, []string{"state", "message", "message"}, seen)

	send(t, conn, "text", TextMessage{Text: "  "})
	f, _, _ := readUntil(t, conn, "error")
	assert.Contains(t, string(f.Data), "empty_message")
}

func TestWebSocketRecording(t *testing.T) {
	fakeSvc := &fakeSpeechService{}
	chatSvc := newChatService(t, fakeSvc)
	conv, err := chatSvc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	conn := dialSession(t, New(fakeSvc, chatSvc), conv.Session.ID)
	readUntil(t, conn, "connected")

	send(t, conn, "record", RecordMessage{Action: "start"})
	f, _, _ := readUntil(t, conn, "error")
	assert.Contains(t, string(f.Data), "microphone")

	send(t, conn, "mic", MicMessage{Granted: true})
	readUntil(t, conn, "mic")

	send(t, conn, "record", RecordMessage{Action: "start"})
	readUntil(t, conn, "state")
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("chunk-1")))
	send(t, conn, "audio", map[string]any{"audioData": []byte("chunk-2"), "format": "webm"})
	send(t, conn, "record", RecordMessage{Action: "stop"})

	// the transcript reply and the synthesized audio may arrive in either order
	var transcript string
	var audio []byte
	prev := ""
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for transcript == "" || audio == nil {
		msgType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if msgType == websocket.BinaryMessage {
			assert.Equal(t, "audio", prev)
			audio = data
			continue
		}
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		prev = f.Type
		if f.Type == "transcript" {
			transcript = string(f.Data)
		}
	}

	assert.Contains(t, transcript, "I feel calm")
	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, []byte("chunk-1chunk-2"), fakeSvc.lastAudio())
}
