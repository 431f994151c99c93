package stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mindchain/mindmate/backend/internal/logger"
	chatService "github.com/mindchain/mindmate/backend/internal/service/chat"
	"github.com/mindchain/mindmate/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler streams session events via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	heartbeat time.Duration
}

func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc, heartbeat: defaultHeartbeat}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// handleStream sends a snapshot of the session followed by every event
// until the client leaves or the session ends.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := h.chatSvc.Conversation(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, unsubscribe := conv.Hub.Subscribe(0)
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	snapshot := map[string]any{
		"session":  conv.Session,
		"state":    conv.Orchestrator.State(),
		"messages": conv.Orchestrator.Messages(),
	}
	if err := utils.SendSSEEvent(w, flusher, "snapshot", snapshot); err != nil {
		return
	}
	slog.Info("[stream] client subscribed", "session", sessionID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Info("[stream] client left", "session", sessionID)
			return
		case evt, ok := <-sub:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "end", map[string]string{"sessionId": sessionID})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(evt.Type), evt); err != nil {
				slog.Warn("[stream] write failed", "session", sessionID, logger.Err(err))
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat "+t.UTC().Format(time.RFC3339)); err != nil {
				return
			}
		}
	}
}
