package microservice

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/illmade-knight/go-klaracatalog/pkg/catalog"
	"github.com/illmade-knight/go-klaracatalog/pkg/override"
	"github.com/rs/zerolog"
)

const maxOverrideBody = 1 << 20

// CatalogServer serves the storefront and admin catalog routes.
type CatalogServer struct {
	*BaseServer
	catalog *catalog.Service
	logger  zerolog.Logger
}

// NewCatalogServer creates a CatalogServer and registers its routes.
func NewCatalogServer(svc *catalog.Service, httpPort string, logger zerolog.Logger) *CatalogServer {
	s := &CatalogServer{
		BaseServer: NewBaseServer(logger, httpPort),
		catalog:    svc,
		logger:     logger.With().Str("component", "CatalogServer").Logger(),
	}
	s.registerHandlers()
	return s
}

func (s *CatalogServer) registerHandlers() {
	mux := s.Mux()
	mux.HandleFunc("GET /api/klara/articles", s.handleListArticles)
	mux.HandleFunc("GET /api/klara/articles/{id}", s.handleGetArticle)
	mux.HandleFunc("GET /api/klara/categories", s.handleCategories)
	mux.HandleFunc("GET /api/klara/categories/{id}/count", s.handleCategoryCount)

	mux.HandleFunc("GET /api/admin/klara/articles", s.handleAdminArticles)
	mux.HandleFunc("PUT /api/admin/klara/articles/{id}/override", s.handleSaveOverride)
	mux.HandleFunc("DELETE /api/admin/klara/articles/{id}/override", s.handleDeleteOverride)
	mux.HandleFunc("POST /api/admin/klara/cache/clear", s.handleClearCache)
	mux.HandleFunc("GET /api/admin/klara/cache/stats", s.handleCacheStats)
}

func (s *CatalogServer) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.writeJSON(w, http.StatusOK, s.catalog.ListArticles(r.Context(), q.Get("category"), q.Get("search"), false))
}

func (s *CatalogServer) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	row, err := s.catalog.GetArticle(r.Context(), r.PathValue("id"))
	if err != nil || !row.Visible {
		s.writeError(w, http.StatusNotFound, "article not found")
		return
	}
	s.writeJSON(w, http.StatusOK, row.ArticleView)
}

func (s *CatalogServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog.Categories(r.Context()))
}

type categoryCount struct {
	CategoryID string `json:"categoryId"`
	Count      int    `json:"count"`
}

func (s *CatalogServer) handleCategoryCount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.writeJSON(w, http.StatusOK, categoryCount{CategoryID: id, Count: s.catalog.CountArticlesInCategory(r.Context(), id)})
}

func (s *CatalogServer) handleAdminArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.writeJSON(w, http.StatusOK, s.catalog.AdminArticles(r.Context(), q.Get("category"), q.Get("search")))
}

func (s *CatalogServer) handleSaveOverride(w http.ResponseWriter, r *http.Request) {
	var form override.Form
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOverrideBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&form); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.catalog.SaveOverride(r.Context(), r.PathValue("id"), form)
	switch {
	case errors.Is(err, catalog.ErrArticleNotFound):
		s.writeError(w, http.StatusNotFound, "article not found")
	case errors.Is(err, override.ErrInvalidOverride):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error().Err(err).Str("article_id", r.PathValue("id")).Msg("Failed to save override.")
		s.writeError(w, http.StatusInternalServerError, "failed to save override")
	default:
		s.writeJSON(w, http.StatusOK, saved)
	}
}

func (s *CatalogServer) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteOverride(r.Context(), r.PathValue("id")); err != nil {
		s.logger.Error().Err(err).Str("article_id", r.PathValue("id")).Msg("Failed to delete override.")
		s.writeError(w, http.StatusInternalServerError, "failed to delete override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *CatalogServer) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.catalog.ClearCache(r.Context(), "admin")
	w.WriteHeader(http.StatusNoContent)
}

func (s *CatalogServer) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	stats, ok := s.catalog.CacheStats()
	if !ok {
		s.writeError(w, http.StatusNotImplemented, "cache statistics not available")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *CatalogServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write JSON response.")
	}
}

func (s *CatalogServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
