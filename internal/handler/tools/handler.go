// Package tools exposes the remote AI capabilities directly, outside of a
// conversation.
package tools

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mindchain/mindmate/backend/internal/analysis/emotion"
	"github.com/mindchain/mindmate/backend/internal/analysis/intent"
	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/model/persona"
	"github.com/mindchain/mindmate/backend/internal/service/ai"
	"github.com/mindchain/mindmate/backend/pkg/utils"
)

type Handler struct {
	text     ai.TextGenerator
	images   ai.ImageGenerator
	prompts  *ai.PersonaPromptManager
	personas persona.Store
}

func New(text ai.TextGenerator, images ai.ImageGenerator, prompts *ai.PersonaPromptManager, personas persona.Store) *Handler {
	if prompts == nil {
		prompts = ai.NewPersonaPromptManager()
	}
	if personas == nil {
		personas = persona.NewMemoryStore(persona.Seed())
	}
	return &Handler{text: text, images: images, prompts: prompts, personas: personas}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tools", func(tr chi.Router) {
		tr.Post("/text", h.handleText)
		tr.Post("/image", h.handleImage)
		tr.Post("/classify", h.handleClassify)
	})
}

type textRequest struct {
	Prompt    string `json:"prompt"`
	PersonaID string `json:"personaId"`
}

type textResponse struct {
	Text string           `json:"text"`
	Mood emotion.Decision `json:"mood"`
}

func (h *Handler) handleText(w http.ResponseWriter, r *http.Request) {
	if h.text == nil {
		utils.RespondError(w, http.StatusNotImplemented, "text generation not available")
		return
	}

	var req textRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	p, ok := h.personas.FindByID(req.PersonaID)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
		return
	}

	mood := emotion.Analyze(prompt)
	reply, err := h.text.GenerateText(r.Context(), ai.TextRequest{
		System: h.prompts.BuildSystemPrompt(p, mood),
		Prompt: prompt,
	})
	if err != nil {
		slog.Error("[tools] text generation failed", logger.Err(err))
		utils.RespondError(w, http.StatusBadGateway, "text generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, textResponse{Text: reply, Mood: mood})
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	// Raw skips the calming image framing.
	Raw bool `json:"raw"`
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		utils.RespondError(w, http.StatusNotImplemented, "image generation not available")
		return
	}

	var req imageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !req.Raw {
		prompt = ai.ImagePrompt(prompt)
	}

	url, err := h.images.GenerateImage(r.Context(), prompt)
	if err != nil {
		slog.Error("[tools] image generation failed", logger.Err(err))
		utils.RespondError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"url": url, "prompt": prompt})
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"intent": intent.Classify(req.Text),
		"mood":   emotion.Analyze(req.Text),
	})
}
