package speech

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/model/speech"
	chatservice "github.com/mindchain/mindmate/backend/internal/service/chat"
	speechsvc "github.com/mindchain/mindmate/backend/internal/service/speech"
	"github.com/mindchain/mindmate/backend/pkg/utils"
)

// maxUploadBytes matches the remote transcription upload limit.
const maxUploadBytes = 25 << 20

// SpeechService abstracts the speech capability for the tool endpoints.
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
	Synthesize(ctx context.Context, text string, voice speech.Voice) (speech.Audio, error)
	DefaultVoice() speech.Voice
}

// Handler serves the speech tools and the session websocket.
type Handler struct {
	speechSvc SpeechService
	chatSvc   *chatservice.Service
}

// New creates a speech handler. Either service may be nil, in which case
// its routes answer 501.
func New(speechSvc SpeechService, chatSvc *chatservice.Service) *Handler {
	return &Handler{speechSvc: speechSvc, chatSvc: chatSvc}
}

// RegisterRoutes mounts /speech on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Get("/voices", h.handleVoices)
		speechRouter.Get("/health", h.handleHealth)

		if h.speechSvc != nil {
			speechRouter.Post("/transcribe", h.handleTranscribe)
			speechRouter.Post("/synthesize", h.handleSynthesize)
		} else {
			speechRouter.Post("/transcribe", notImplemented("speech recognition not available"))
			speechRouter.Post("/synthesize", notImplemented("speech synthesis not available"))
		}

		if h.chatSvc != nil {
			NewWebSocketHandler(h.chatSvc).RegisterWebSocketRoutes(speechRouter)
		} else {
			speechRouter.Get("/ws/{sessionID}", notImplemented("session websocket not available"))
		}
	})
}

func notImplemented(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotImplemented, message)
	}
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.FormValue("format")))
	if format == "" {
		format = inferAudioFormat(header.Filename)
	}

	text, err := h.speechSvc.Transcribe(r.Context(), audio, format)
	if err != nil {
		if errors.Is(err, speechsvc.ErrEmptyAudio) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("[speech] transcription failed", "format", format, logger.Err(err))
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, speech.TranscriptionResponse{
		Text:      text,
		Format:    format,
		CreatedAt: time.Now().UTC(),
	})
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speech.SynthesisRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	voice, err := h.resolveVoice(req)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	audio, err := h.speechSvc.Synthesize(r.Context(), req.Text, voice)
	if err != nil {
		slog.Error("[speech] synthesis failed", "voice", voice, logger.Err(err))
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		utils.RespondJSON(w, http.StatusOK, speech.SynthesisResponse{Audio: audio, CreatedAt: time.Now().UTC()})
		return
	}

	data, err := audio.Decode()
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "invalid audio payload")
		return
	}
	w.Header().Set("Content-Type", audio.MIMEType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", "attachment; filename=speech."+audio.Format)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("[speech] failed to write audio response", logger.Err(err))
	}
}

// resolveVoice prefers an explicit voice, then the session's voice.
func (h *Handler) resolveVoice(req speech.SynthesisRequest) (speech.Voice, error) {
	if strings.TrimSpace(req.Voice) != "" {
		return speech.ParseVoice(req.Voice)
	}
	if h.chatSvc != nil && req.SessionID != "" {
		if session, err := h.chatSvc.GetSession(context.Background(), req.SessionID); err == nil {
			return speech.Voice(session.Voice), nil
		}
	}
	return h.speechSvc.DefaultVoice(), nil
}

func (h *Handler) handleVoices(w http.ResponseWriter, _ *http.Request) {
	def := speech.DefaultVoice
	if h.speechSvc != nil {
		def = h.speechSvc.DefaultVoice()
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"voices":  speech.Voices(),
		"default": def,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if h.speechSvc == nil {
		status = "disabled"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "speech",
	})
}

// inferAudioFormat guesses the container from the uploaded file name.
func inferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".wav", ".webm", ".m4a", ".ogg", ".flac", ".mp4":
		return strings.TrimPrefix(ext, ".")
	case ".mpeg", ".mpga":
		return "mp3"
	default:
		return "webm"
	}
}
