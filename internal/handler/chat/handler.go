package chat

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/model/chat"
	"github.com/mindchain/mindmate/backend/internal/model/persona"
	"github.com/mindchain/mindmate/backend/internal/service/companion"
	chatService "github.com/mindchain/mindmate/backend/internal/service/chat"
	"github.com/mindchain/mindmate/backend/internal/service/voice"
	"github.com/mindchain/mindmate/backend/pkg/utils"
)

// maxChunkBytes caps a single uploaded recording chunk.
const maxChunkBytes = 1 << 20

// Handler serves session and conversation routes.
type Handler struct {
	chatSvc *chatService.Service
}

func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the session routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(sr chi.Router) {
		sr.Get("/", h.handleGetSession)
		sr.Delete("/", h.handleEndSession)
		sr.Get("/messages", h.handleListMessages)
		sr.Post("/messages", h.handleSendMessage)
		sr.Post("/microphone", h.handleMicrophone)
		sr.Post("/recording/start", h.handleStartRecording)
		sr.Post("/recording/stop", h.handleStopRecording)
		sr.Post("/recording/cancel", h.handleCancelRecording)
		sr.Post("/recording/audio", h.handleRecordingAudio)
	})
}

type sessionView struct {
	Session  chat.Session    `json:"session"`
	Persona  persona.Persona `json:"persona"`
	State    companion.State `json:"state"`
	Messages []chat.Message  `json:"messages,omitempty"`
}

func view(conv *chatService.Conversation, withMessages bool) sessionView {
	v := sessionView{
		Session: conv.Session,
		Persona: conv.Orchestrator.Persona(),
		State:   conv.Orchestrator.State(),
	}
	if withMessages {
		v.Messages = conv.Orchestrator.Messages()
	}
	return v
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		if errors.Is(err, chatService.ErrPersonaNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "persona not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, view(conv, true))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, view(conv, false))
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.EndSession(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := conv.Orchestrator.Respond(r.Context(), payload.Text)
	if err != nil {
		respondActionError(w, err)
		return
	}
	respondResult(w, res, conv.Orchestrator.State())
}

func (h *Handler) handleMicrophone(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload struct {
		Granted bool   `json:"granted"`
		Format  string `json:"format"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv.SetMicrophone(payload.Granted, payload.Format)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"granted": payload.Granted,
		"state":   conv.Orchestrator.State(),
	})
}

func (h *Handler) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	if format := r.URL.Query().Get("format"); format != "" {
		conv.Device.SetFormat(format)
	}
	if err := conv.Orchestrator.StartRecording(); err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"state": conv.Orchestrator.State()})
}

func (h *Handler) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	res, err := conv.Orchestrator.StopRecording(r.Context())
	if err != nil {
		respondActionError(w, err)
		return
	}
	respondResult(w, res, conv.Orchestrator.State())
}

func (h *Handler) handleCancelRecording(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	cancelled := conv.Orchestrator.CancelRecording()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"cancelled": cancelled,
		"state":     conv.Orchestrator.State(),
	})
}

func (h *Handler) handleRecordingAudio(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBytes))
	if err != nil {
		utils.RespondError(w, http.StatusRequestEntityTooLarge, "audio chunk too large")
		return
	}

	switch err := conv.Feed(chunk); {
	case errors.Is(err, voice.ErrNotRecording):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, voice.ErrBufferFull):
		utils.RespondError(w, http.StatusTooManyRequests, err.Error())
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) (*chatService.Conversation, bool) {
	conv, err := h.chatSvc.Conversation(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return conv, true
}

type resultView struct {
	companion.Result
	State companion.State `json:"state"`
	Error string          `json:"error,omitempty"`
}

func respondResult(w http.ResponseWriter, res companion.Result, state companion.State) {
	v := resultView{Result: res, State: state}
	status := http.StatusOK
	if res.Err != nil {
		v.Error = res.Err.Error()
		status = http.StatusBadGateway
	}
	utils.RespondJSON(w, status, v)
}

// StatusFor maps a rejected action onto an HTTP status.
func StatusFor(err error) int {
	var permErr *companion.PermissionError
	switch {
	case errors.Is(err, companion.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, companion.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &permErr):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondActionError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("[chat] action failed", logger.Err(err))
	}
	body := map[string]any{"error": err.Error()}
	if notice, ok := companion.NoticeFor(err); ok {
		body["notice"] = notice
	}
	utils.RespondJSON(w, status, body)
}
