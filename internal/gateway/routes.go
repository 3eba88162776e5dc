package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shankarsamidala/deals/internal/sink"
	"github.com/shankarsamidala/deals/internal/version"
)

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /channels", s.handleChannels)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /recent", s.handleRecent)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status      string  `json:"status"`
	Version     string  `json:"version"`
	Subscribers int     `json:"subscribers"`
	UptimeSec   float64 `json:"uptimeSec"`
	Monitor     any     `json:"monitor"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.mon.Health()
	status := "ok"
	if !h.Running {
		status = "down"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      status,
		Version:     version.Version,
		Subscribers: s.clients.Count(),
		UptimeSec:   time.Since(s.startedAt).Seconds(),
		Monitor:     h,
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels := s.mon.Channels()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(channels),
		"channels": channels,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "no persistent store configured")
		return
	}
	st, err := s.stats.Stats()
	if err != nil {
		s.log.Error().Err(err).Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "no persistent store configured")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	recs, err := s.stats.Recent(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("recent query failed")
		writeError(w, http.StatusInternalServerError, "recent query failed")
		return
	}
	if recs == nil {
		recs = []sink.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "no persistent store configured")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	recs, err := s.stats.Search(query, limit)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("search query failed")
		writeError(w, http.StatusInternalServerError, "search query failed")
		return
	}
	if recs == nil {
		recs = []sink.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "records": recs})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
