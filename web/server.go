// Package web exposes the engine's control and reporting API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"autocheckin/models"
	"autocheckin/service"
)

// Server hosts the HTTP API
type Server struct {
	httpServer *http.Server
	runs       service.RunService
	stats      service.StatsService
	token      string
}

// NewServer creates the API server. An empty token disables authentication.
func NewServer(addr string, runs service.RunService, stats service.StatsService, token string) *Server {
	s := &Server{
		runs:  runs,
		stats: stats,
		token: token,
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/runs", s.handleTriggerRun).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleRecentRuns).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.handleRollups).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{email}/history", s.handleAccountHistory).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{email}/ledger", s.handleAccountLedger).Methods(http.MethodGet)
	api.HandleFunc("/summary/daily", s.handleDailySummary).Methods(http.MethodGet)
	api.HandleFunc("/ledger", s.handleTrimLedger).Methods(http.MethodDelete)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute, // a synchronous run trigger can take a while
	}

	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Infof("API listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTriggerRun starts a batch run and blocks until it finishes
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get("X-Triggered-By")
	if actor == "" {
		actor = r.RemoteAddr
	}

	summary, err := s.runs.TriggerRun(r.Context(), models.TriggerAPI, actor)
	if errors.Is(err, service.ErrRunInProgress) {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	if err != nil {
		log.Errorf("API-triggered run failed: %v", err)
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 20)

	runs, err := s.runs.GetRecentRuns(r.Context(), limit)
	if err != nil {
		log.Errorf("Failed to list recent runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.GetStatistics(r.Context())
	if err != nil {
		log.Errorf("Failed to get statistics: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get statistics")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRollups(w http.ResponseWriter, r *http.Request) {
	rollups, err := s.stats.GetAccountRollups(r.Context())
	if err != nil {
		log.Errorf("Failed to get account rollups: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get accounts")
		return
	}

	writeJSON(w, http.StatusOK, rollups)
}

func (s *Server) handleAccountHistory(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	days := intQuery(r, "days", 30)

	entries, err := s.stats.GetAccountHistory(r.Context(), email, days)
	if err != nil {
		log.Errorf("Failed to get history for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAccountLedger(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	days := intQuery(r, "days", 30)
	source := r.URL.Query().Get("source")

	records, err := s.stats.GetAccountLedger(r.Context(), email, days, source)
	if err != nil {
		log.Errorf("Failed to get ledger for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "failed to get ledger")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	days := intQuery(r, "days", 30)

	summaries, err := s.stats.GetDailySummary(r.Context(), email, days)
	if err != nil {
		log.Errorf("Failed to get daily summary: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get daily summary")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleTrimLedger deletes records older than the given number of days
func (s *Server) handleTrimLedger(w http.ResponseWriter, r *http.Request) {
	days := intQuery(r, "older_than_days", 0)
	if days <= 0 {
		writeError(w, http.StatusBadRequest, "older_than_days must be a positive integer")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := s.stats.TrimLedger(r.Context(), cutoff)
	if err != nil {
		log.Errorf("Failed to trim ledger: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to trim ledger")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
