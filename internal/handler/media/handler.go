// Package media serves stored media assets by id.
package media

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mindchain/mindmate/backend/internal/logger"
	mediastore "github.com/mindchain/mindmate/backend/internal/store/media"
	"github.com/mindchain/mindmate/backend/pkg/utils"
)

type Handler struct {
	store mediastore.Store
}

func New(store mediastore.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/media/{mediaID}", h.handleGet)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	asset, err := h.store.Get(r.Context(), chi.URLParam(r, "mediaID"))
	if errors.Is(err, mediastore.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "media not found")
		return
	}
	if err != nil {
		slog.Error("[media] load asset failed", logger.Err(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to load media")
		return
	}

	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(asset.Data); err != nil {
		slog.Warn("[media] write asset failed", logger.Err(err))
	}
}
