package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/httputil"
)

// MaxIndexBodyBytes bounds a single-product index request.
const MaxIndexBodyBytes = 1 << 20

// AdminHandler serves the index maintenance endpoints.
type AdminHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.SearchService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// BulkIndexRequest is the JSON request body for bulk indexing products.
type BulkIndexRequest struct {
	Products []domain.ProductRecord `json:"products" validate:"required,min=1,max=1000"`
}

// SynonymsRequest is the JSON request body for replacing a synonym list.
type SynonymsRequest struct {
	Synonyms []string `json:"synonyms" validate:"required,dive,required"`
}

// IndexProduct handles POST /api/v1/search/index
func (h *AdminHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxIndexBodyBytes)

	var record domain.ProductRecord
	if err := httputil.DecodeJSON(w, r, &record); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.IndexProduct(r.Context(), &record); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"id": record.ID, "status": "indexed"})
}

// BulkIndex handles POST /api/v1/search/bulk
func (h *AdminHandler) BulkIndex(w http.ResponseWriter, r *http.Request) {
	var req BulkIndexRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	n, err := h.service.BulkIndex(r.Context(), req.Products)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{
		"indexed": n,
		"skipped": len(req.Products) - n,
		"status":  "ok",
	})
}

// DeleteProduct handles DELETE /api/v1/search/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// Reindex handles POST /api/v1/search/reindex. Concurrent requests share one
// run; a request that times out leaves the run going in the background.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Reindex(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			httputil.WriteData(w, http.StatusAccepted, map[string]string{"status": "reindex in progress"})
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// PutSynonyms handles PUT /api/v1/search/synonyms/{word}
func (h *AdminHandler) PutSynonyms(w http.ResponseWriter, r *http.Request) {
	word := strings.TrimSpace(chi.URLParam(r, "word"))

	var req SynonymsRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.AddSynonyms(r.Context(), word, req.Synonyms); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{"word": word, "synonyms": req.Synonyms})
}

// AddSuggestion handles POST /api/v1/search/suggestions
func (h *AdminHandler) AddSuggestion(w http.ResponseWriter, r *http.Request) {
	var s domain.Suggestion
	if err := httputil.DecodeJSON(w, r, &s); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.AddSuggestion(r.Context(), s); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, s)
}
