package speech

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/model/speech"
	chatservice "github.com/mindchain/mindmate/backend/internal/service/chat"
	"github.com/mindchain/mindmate/backend/internal/service/companion"
	"github.com/mindchain/mindmate/backend/internal/service/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 3 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 20 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 25 * time.Second

	// Largest inbound frame, audio chunks included.
	readLimit = 1 << 20

	sendBuffer = 64
)

// WebSocketHandler binds a websocket to a live conversation. Clients send
// text, recording controls and audio chunks; every session event is pushed
// back, synthesized audio as a binary frame after its header.
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage is a typed user message.
type TextMessage struct {
	Text string `json:"text"`
}

// RecordMessage controls the recorder: start, stop or cancel.
type RecordMessage struct {
	Action string `json:"action"`
	Format string `json:"format,omitempty"`
}

// MicMessage reports the browser's microphone permission.
type MicMessage struct {
	Granted bool   `json:"granted"`
	Format  string `json:"format,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type wsConn struct {
	conn *websocket.Conn
	conv *chatservice.Conversation

	ctx    context.Context
	cancel context.CancelFunc
	out    chan outgoingMessage
	work   sync.WaitGroup
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := h.chatSvc.Conversation(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[websocket] upgrade failed", "session", sessionID, logger.Err(err))
		return
	}
	slog.Info("[websocket] new connection", "session", sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsConn{
		conn:   conn,
		conv:   conv,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan outgoingMessage, sendBuffer),
	}

	sub, unsubscribe := conv.Hub.Subscribe(sendBuffer)
	c.reply("connected", map[string]any{
		"session":  conv.Session,
		"persona":  conv.Orchestrator.Persona(),
		"state":    conv.Orchestrator.State(),
		"messages": conv.Orchestrator.Messages(),
	})

	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		c.sendLoop(sub)
	}()

	c.recvLoop()

	cancel()
	<-sendDone
	unsubscribe()
	c.work.Wait()
	slog.Info("[websocket] connection closed", "session", sessionID)
}

func (c *wsConn) recvLoop() {
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[websocket] read error", "session", c.conv.Session.ID, logger.Err(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conv.Touch()

		switch msgType {
		case websocket.BinaryMessage:
			c.feed(data)
		case websocket.TextMessage:
			var msg inboundMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.sendError("bad_request", "invalid message")
				continue
			}
			if msg.SessionID != "" && msg.SessionID != c.conv.Session.ID {
				c.sendError("bad_request", "session mismatch")
				continue
			}
			c.handleMessage(&msg)
		}
	}
}

func (c *wsConn) handleMessage(msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("bad_request", "invalid text payload")
			return
		}
		c.spawn(func() {
			if _, err := c.conv.Orchestrator.Respond(c.ctx, text.Text); err != nil {
				c.sendActionError(err)
			}
		})
	case "record":
		var rec RecordMessage
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			c.sendError("bad_request", "invalid record payload")
			return
		}
		c.handleRecord(rec)
	case "audio":
		var chunk speech.TranscriptionRequest
		if err := json.Unmarshal(msg.Data, &chunk); err != nil {
			c.sendError("bad_request", "invalid audio payload")
			return
		}
		c.feed(chunk.AudioData)
	case "mic":
		var mic MicMessage
		if err := json.Unmarshal(msg.Data, &mic); err != nil {
			c.sendError("bad_request", "invalid mic payload")
			return
		}
		c.conv.SetMicrophone(mic.Granted, mic.Format)
		c.reply("mic", map[string]any{"granted": mic.Granted})
	default:
		c.sendError("bad_request", "unsupported message type: "+msg.Type)
	}
}

func (c *wsConn) handleRecord(rec RecordMessage) {
	orch := c.conv.Orchestrator
	switch rec.Action {
	case "start":
		if rec.Format != "" {
			c.conv.Device.SetFormat(rec.Format)
		}
		if err := orch.StartRecording(); err != nil {
			c.sendActionError(err)
		}
	case "stop":
		c.spawn(func() {
			res, err := orch.StopRecording(c.ctx)
			if err != nil {
				c.sendActionError(err)
				return
			}
			if res.Transcript != "" {
				c.reply("transcript", map[string]string{"text": res.Transcript})
			}
		})
	case "cancel":
		orch.CancelRecording()
	default:
		c.sendError("bad_request", "unsupported record action: "+rec.Action)
	}
}

func (c *wsConn) feed(chunk []byte) {
	if err := c.conv.Feed(chunk); err != nil {
		c.sendError("audio_rejected", err.Error())
	}
}

// spawn runs a slow action off the read loop so pongs keep being read.
func (c *wsConn) spawn(fn func()) {
	c.work.Add(1)
	go func() {
		defer c.work.Done()
		fn()
	}()
}

func (c *wsConn) sendLoop(sub <-chan events.Event) {
	pingTicker := time.NewTicker(pingPeriod)
	defer func() {
		pingTicker.Stop()
		c.cancel()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.out:
			if err := c.write(msg); err != nil {
				slog.Warn("[websocket] write failed", "session", c.conv.Session.ID, logger.Err(err))
				return
			}
		case evt, ok := <-sub:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"))
				return
			}
			if err := c.writeEvent(evt); err != nil {
				slog.Warn("[websocket] write failed", "session", c.conv.Session.ID, logger.Err(err))
				return
			}
		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) write(msg outgoingMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// writeEvent forwards a hub event. Audio goes out as a JSON header followed
// by the raw bytes in a binary frame.
func (c *wsConn) writeEvent(evt events.Event) error {
	msg := outgoingMessage{
		Type:      string(evt.Type),
		SessionID: evt.SessionID,
		Data:      evt.Data,
		Timestamp: evt.Timestamp.Unix(),
	}

	audio, isAudio := evt.Data.(events.AudioData)
	if !isAudio {
		return c.write(msg)
	}

	msg.Data = map[string]any{
		"format":   audio.Format,
		"mimeType": audio.MIMEType,
		"size":     len(audio.Data),
	}
	if err := c.write(msg); err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, audio.Data)
}

func (c *wsConn) reply(typ string, data interface{}) {
	msg := outgoingMessage{
		Type:      typ,
		SessionID: c.conv.Session.ID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	select {
	case c.out <- msg:
	case <-c.ctx.Done():
	}
}

func (c *wsConn) sendError(code, message string) {
	c.reply("error", map[string]string{"code": code, "message": message})
}

func (c *wsConn) sendActionError(err error) {
	var permErr *companion.PermissionError
	switch {
	case errors.Is(err, companion.ErrBusy):
		c.sendError("busy", err.Error())
	case errors.Is(err, companion.ErrEmptyMessage):
		c.sendError("empty_message", err.Error())
	case errors.As(err, &permErr):
		// the microphone notice was already published
		c.sendError("microphone", err.Error())
	default:
		slog.Error("[websocket] action failed", "session", c.conv.Session.ID, logger.Err(err))
		c.sendError("internal", err.Error())
	}
}
