// Package api exposes the aggregation pipeline over a small JSON HTTP API.
// An empty result set is a 200 with an empty list; only real failures
// return 5xx, so "no products found" stays distinguishable from errors.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/services"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/storage"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

// Server wires the HTTP routes to the aggregation services.
type Server struct {
	aggregator *services.Aggregator
	persister  *services.Persister
	reports    *services.ReportService
	store      storage.ProductStore
	logger     *utils.Logger
	router     *mux.Router
}

// NewServer builds the router and handlers.
func NewServer(
	aggregator *services.Aggregator,
	persister *services.Persister,
	reports *services.ReportService,
	store storage.ProductStore,
	logger *utils.Logger,
) *Server {
	s := &Server{
		aggregator: aggregator,
		persister:  persister,
		reports:    reports,
		store:      store,
		logger:     logger,
		router:     mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/products", s.handleProducts).Methods(http.MethodGet)
	s.router.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodGet)
	s.router.HandleFunc("/api/report", s.handleReport).Methods(http.MethodGet)

	return s
}

// ListenAndServe starts the HTTP server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("[api] Listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProducts returns everything currently in the store.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.FetchAll(r.Context())
	if err != nil {
		s.logger.Error("[api] Fetch products failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "could not load products")
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(products))
}

// handleSearch runs a live aggregation for ?q=, persists the results and
// returns them price-sorted.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	products := s.aggregator.Aggregate(r.Context(), query)
	if len(products) > 0 {
		if _, err := s.persister.Persist(r.Context(), products); err != nil {
			s.logger.Error("[api] Persist failed for %q: %v", query, err)
			s.writeError(w, http.StatusInternalServerError, "could not store results")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, nonNil(products))
}

// handleReport runs a live aggregation for ?q= and returns the comparison
// statistics.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	products := s.aggregator.Aggregate(r.Context(), query)
	s.writeJSON(w, http.StatusOK, s.reports.Build(products))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("[api] Encode response failed: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// nonNil keeps empty result sets rendering as [] instead of null.
func nonNil(products []models.Product) []models.Product {
	if products == nil {
		return []models.Product{}
	}
	return products
}
