// Package server exposes the read-only query API over HTTP. All state is
// loaded before the router is built; handlers never mutate it.
package server

import (
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tradelens/internal/usecase"
)

//go:embed static
var staticFS embed.FS

type Server struct {
	explore      *usecase.ExploreUseCase
	logger       *slog.Logger
	defaultLimit int
}

func New(explore *usecase.ExploreUseCase, logger *slog.Logger, defaultLimit int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultLimit <= 0 {
		defaultLimit = 1000
	}
	return &Server{
		explore:      explore,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/stats", s.handleStats)
	r.Get("/api/products", s.handleProducts)
	r.Get("/api/products/{hs6}", s.handleProductDetail)
	r.Get("/api/naics", s.handleNAICSList)
	r.Get("/api/naics/{code}", s.handleNAICSDetail)
	r.Get("/api/critical", s.handleCritical)

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "index not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.explore.Stats())
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit := s.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	s.writeJSON(w, s.explore.Products(search, limit))
}

func (s *Server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	hs6 := chi.URLParam(r, "hs6")
	detail, err := s.explore.ProductDetailFor(hs6)
	if errors.Is(err, usecase.ErrProductNotFound) {
		// Not-found travels in the body; the status stays 200 for
		// compatibility with existing consumers.
		s.writeJSON(w, map[string]string{"error": "Product not found"})
		return
	}
	if err != nil {
		s.logger.Error("product detail failed", "hs6", hs6, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, detail)
}

func (s *Server) handleNAICSList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.explore.NAICSSummaries())
}

func (s *Server) handleNAICSDetail(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.explore.NAICSDetailFor(chi.URLParam(r, "code")))
}

func (s *Server) handleCritical(w http.ResponseWriter, r *http.Request) {
	var minDeficit int64
	minScore := 0

	if raw := r.URL.Query().Get("min_china_deficit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "min_china_deficit must be an integer", http.StatusBadRequest)
			return
		}
		minDeficit = n
	}
	if raw := r.URL.Query().Get("min_defense_score"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "min_defense_score must be an integer", http.StatusBadRequest)
			return
		}
		minScore = n
	}

	s.writeJSON(w, s.explore.CriticalMatrixFor(minDeficit, minScore))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
