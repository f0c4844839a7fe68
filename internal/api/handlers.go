package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"goconform/app"
	"goconform/domain/core"
	"goconform/domain/run"
)

// predictRequest is a feature batch, optionally with labels for
// coverage evaluation
type predictRequest struct {
	Features [][]float64 `json:"features"`
	Labels   []int       `json:"labels,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	req := s.defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	record, err := s.calibrations.Calibrate(r.Context(), req)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusCreated, record)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := s.calibrations.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  records,
		"count": len(records),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	record, err := s.calibrations.GetRun(r.Context(), id)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	if err := s.calibrations.DeleteRun(r.Context(), id); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePredictSets(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.Features) == 0 {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("features must not be empty"))
		return
	}

	sets, threshold, err := s.calibrations.PredictSets(r.Context(), id, req.Features)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"prediction_sets": sets,
		"threshold":       threshold,
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	coverage, err := s.calibrations.Coverage(r.Context(), id, req.Features, req.Labels)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"coverage": coverage,
		"samples":  len(req.Features),
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req app.SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	outcome, err := s.sweeps.Run(r.Context(), req)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	record, err := s.calibrations.GetRun(r.Context(), id)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, s.reports.Markdown(record))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(s.reports.HTML(record))
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=calibration-%s.xlsx", record.ID))
		if err := s.workbooks.Write(w, []*run.Record{record}); err != nil {
			s.logger.Error("xlsx report for run %s: %v", record.ID, err)
		}
	default:
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("unknown report format %q", r.URL.Query().Get("format")))
	}
}

// runID parses the run ID path parameter, writing the error response
// itself on failure
func (s *Server) runID(w http.ResponseWriter, r *http.Request) (core.RunID, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid run id: %w", err))
		return "", false
	}
	return id, true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
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
