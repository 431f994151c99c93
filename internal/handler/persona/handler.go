package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindchain/mindmate/backend/internal/model/persona"
	"github.com/mindchain/mindmate/backend/pkg/utils"
)

// Handler serves the companion personas.
type Handler struct {
	personas persona.Store
}

func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/personas/{personaID}", h.handleGetPersona)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "personaID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
