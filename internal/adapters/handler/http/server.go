package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/services"
)

const (
	notFoundMessage = "hostname does not exist."
	maxBodyBytes    = 1 << 20
)

type Server struct {
	router        *chi.Mux
	inventory     *services.InventoryService
	healthSvc     *services.HealthService
	hub           *Hub
	enableMetrics bool
}

func NewServer(inventory *services.InventoryService, healthSvc *services.HealthService, hub *Hub, enableMetrics bool) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		inventory:     inventory,
		healthSvc:     healthSvc,
		hub:           hub,
		enableMetrics: enableMetrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	if s.enableMetrics {
		s.router.Use(MetricsMiddleware)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if s.enableMetrics {
		s.router.Handle("/metrics", MetricsHandler())
	}

	// Kubernetes probes
	s.router.Get("/health/live", s.handleLiveness)
	s.router.Get("/health/ready", s.handleReadiness)
	s.router.Get("/health/detailed", s.handleDetailedHealth)

	s.router.Route("/inventory", func(r chi.Router) {
		r.Delete("/", s.handleResetSystems)
		r.Get("/systems", s.handleListSystems)
		r.Get("/systems/reservation", s.handleListReservations)
		r.Post("/systems/reservation", s.handleAddReservation)
		r.Post("/systems/property", s.handleSystemProperty)
		r.Get("/systems/{hostname}", s.handleGetSystem)
		r.Get("/hosts/status", s.handleHostStatuses)
		r.Get("/events", s.handleWS)
		r.Get("/deadletters", s.handleListDeadLetters)
		r.Post("/deadletters/{id}/retry", s.handleRetryDeadLetter)
	})
}

// Handler returns the traced root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "inventory-http")
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	status, code := s.healthSvc.SimpleHealthCheck(r.Context())
	w.WriteHeader(code)
	w.Write([]byte(status))
}

func (s *Server) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	report := s.healthSvc.CheckHealth(r.Context())

	statusCode := http.StatusOK
	if report.Status == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, report)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ServeWs(s.hub, w, r)
}

func (s *Server) handleListSystems(w http.ResponseWriter, r *http.Request) {
	systems, err := s.inventory.ListSystems(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, systems)
}

func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")
	system, err := s.inventory.GetSystem(r.Context(), hostname)
	if errors.Is(err, services.ErrSystemNotFound) {
		writeText(w, http.StatusNotFound, notFoundMessage)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, system)
}

func (s *Server) handleResetSystems(w http.ResponseWriter, r *http.Request) {
	if err := s.inventory.ResetSystems(r.Context()); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.inventory.ListReservations(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (s *Server) handleSystemProperty(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	propertyName := string(body)
	s.inventory.RequestProperty(r.Context(), propertyName)
	writeText(w, http.StatusOK, fmt.Sprintf("Request successful for the %s property\n", propertyName))
}

func (s *Server) handleAddReservation(w http.ResponseWriter, r *http.Request) {
	var res domain.Reservation
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&res); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	s.inventory.SubmitReservation(r.Context(), res)
	writeText(w, http.StatusOK, fmt.Sprintf("Request successful for the %s property\n", res.Username))
}

func (s *Server) handleHostStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.inventory.HostStatuses())
}

func (s *Server) handleListDeadLetters(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	if offset < 0 || limit <= 0 {
		writeText(w, http.StatusBadRequest, "offset must be >= 0 and limit > 0")
		return
	}
	entries, err := s.inventory.ListDeadLetters(r.Context(), offset, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRetryDeadLetter(w http.ResponseWriter, r *http.Request) {
	res, err := s.inventory.RetryDeadLetter(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrDeadLetterNotFound) {
		writeText(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	writeText(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(msg))
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
