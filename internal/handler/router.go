package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mindchain/mindmate/backend/internal/handler/chat"
	"github.com/mindchain/mindmate/backend/internal/handler/media"
	"github.com/mindchain/mindmate/backend/internal/handler/persona"
	"github.com/mindchain/mindmate/backend/internal/handler/speech"
	"github.com/mindchain/mindmate/backend/internal/handler/stream"
	"github.com/mindchain/mindmate/backend/internal/handler/tools"
	"github.com/mindchain/mindmate/backend/internal/metrics"
	middlewarePkg "github.com/mindchain/mindmate/backend/internal/middleware"
	personaModel "github.com/mindchain/mindmate/backend/internal/model/persona"
	aiService "github.com/mindchain/mindmate/backend/internal/service/ai"
	chatService "github.com/mindchain/mindmate/backend/internal/service/chat"
	speechService "github.com/mindchain/mindmate/backend/internal/service/speech"
	mediaStore "github.com/mindchain/mindmate/backend/internal/store/media"
	"github.com/mindchain/mindmate/backend/pkg/utils"
)

// Dependencies are the services the HTTP surface is built from. Speech,
// Text and Images may be nil when the capability is not configured.
type Dependencies struct {
	Personas personaModel.Store
	Chat     *chatService.Service
	Speech   *speechService.Service
	Text     aiService.TextGenerator
	Images   aiService.ImageGenerator
	Prompts  *aiService.PersonaPromptManager
	Media    mediaStore.Store
	Metrics  *metrics.Metrics
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// a nil *Service must not become a non-nil interface
	var speechSvc speech.SpeechService
	if deps.Speech != nil {
		speechSvc = deps.Speech
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": deps.Chat.Len(),
			"speech":   speechSvc != nil,
			"text":     deps.Text != nil,
			"images":   deps.Images != nil,
		})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas).RegisterRoutes(api)
		chat.New(deps.Chat).RegisterRoutes(api)
		stream.New(deps.Chat).RegisterRoutes(api)
		speech.New(speechSvc, deps.Chat).RegisterRoutes(api)
		tools.New(deps.Text, deps.Images, deps.Prompts, deps.Personas).RegisterRoutes(api)
		if deps.Media != nil {
			media.New(deps.Media).RegisterRoutes(api)
		}
	})

	return r
}
