package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/movementmemory/internal/engine"
	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/progression"
	"github.com/claude/movementmemory/internal/storage"
)

var noData = map[string]string{"status": "no_data"}

// setRequest is the body of POST /api/v1/sets and PUT /api/v1/sets/{id}.
type setRequest struct {
	ExerciseID     string   `json:"exercise_id"`
	SessionID      string   `json:"session_id"`
	SessionDate    string   `json:"session_date"`
	SessionContext string   `json:"session_context"`
	SetOrder       int      `json:"set_order"`
	Weight         *float64 `json:"weight"`
	Reps           *int     `json:"reps"`
	Effort         *float64 `json:"effort"`
	IsWarmup       bool     `json:"is_warmup"`
}

func (req setRequest) record(userID int) (models.SetRecord, error) {
	set := models.SetRecord{
		UserID:         userID,
		ExerciseID:     models.ExerciseSlug(req.ExerciseID),
		SessionID:      req.SessionID,
		SessionContext: req.SessionContext,
		SetOrder:       req.SetOrder,
		Weight:         req.Weight,
		Reps:           req.Reps,
		Effort:         req.Effort,
		IsWarmup:       req.IsWarmup,
	}
	if req.SessionDate != "" {
		date, err := parseFlexTime(req.SessionDate)
		if err != nil {
			return set, fmt.Errorf("invalid session_date: %w", err)
		}
		set.SessionDate = date
	}
	return set, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	result, err := s.alpha.Ingest(r.Context(), r.Body, userIDFromContext(r))
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) decodeSet(w http.ResponseWriter, r *http.Request) (models.SetRecord, bool) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return models.SetRecord{}, false
	}
	set, err := req.record(userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return set, false
	}
	return set, true
}

func setID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	set, ok := s.decodeSet(w, r)
	if !ok {
		return
	}
	res, err := s.engine.LogSet(r.Context(), set)
	if err != nil {
		s.writeError(w, "log set", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleEditSet(w http.ResponseWriter, r *http.Request) {
	id, ok := setID(w, r)
	if !ok {
		return
	}
	set, ok := s.decodeSet(w, r)
	if !ok {
		return
	}
	set.ID = id
	res, err := s.engine.EditSet(r.Context(), set)
	if err != nil {
		s.writeError(w, "edit set", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id, ok := setID(w, r)
	if !ok {
		return
	}
	mem, err := s.engine.DeleteSet(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeError(w, "delete set", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "memory": mem})
}

func exerciseKey(r *http.Request) progression.Key {
	return progression.Key{
		UserID:     userIDFromContext(r),
		ExerciseID: models.ExerciseSlug(chi.URLParam(r, "exercise")),
	}
}

func (s *Server) handleQuerySets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sets, err := s.store.QuerySets(r.Context(), exerciseKey(r), start, end)
	if err != nil {
		s.writeError(w, "query sets", err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	mem, err := s.engine.Memory(r.Context(), exerciseKey(r))
	if err != nil {
		s.writeError(w, "memory", err)
		return
	}
	if mem == nil {
		writeJSON(w, http.StatusOK, noData)
		return
	}
	writeJSON(w, http.StatusOK, mem)
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	sc := &progression.SessionContext{Tag: r.URL.Query().Get("context")}
	if v := r.URL.Query().Get("date"); v != "" {
		date, err := parseFlexTime(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date: " + err.Error()})
			return
		}
		sc.Date = date
	}

	sug, err := s.engine.Suggestion(r.Context(), exerciseKey(r), sc)
	if err != nil {
		s.writeError(w, "suggestion", err)
		return
	}
	if sug == nil {
		writeJSON(w, http.StatusOK, noData)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	mem, err := s.engine.Recompute(r.Context(), exerciseKey(r))
	if err != nil {
		s.writeError(w, "recompute", err)
		return
	}
	if mem == nil {
		writeJSON(w, http.StatusOK, noData)
		return
	}
	writeJSON(w, http.StatusOK, mem)
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	mems, err := s.engine.Memories(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, "memories", err)
		return
	}
	if mems == nil {
		mems = []progression.MovementMemory{}
	}
	writeJSON(w, http.StatusOK, mems)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(n, 500)
	}

	logs, err := s.store.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		s.writeError(w, "import logs", err)
		return
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// writeError maps engine and storage errors to a status. Anything unknown is
// treated as the store being unavailable.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidSet):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrSetNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "set not found"})
	default:
		s.log.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// parseTimeRange reads start and end query parameters. Without a start the
// range defaults to the last 90 days; a date-only end covers that whole day.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	end = time.Now()
	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
			}
			end = end.Add(24 * time.Hour)
		}
	}

	if startStr == "" {
		return end.AddDate(0, 0, -90), end, nil
	}
	start, err = parseFlexTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	return start, end, nil
}
