package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"goconform/adapters/excel"
	"goconform/app"
	"goconform/domain/core"
	"goconform/internal/logx"
)

// Server exposes the calibration services over a JSON HTTP API
type Server struct {
	router       *chi.Mux
	calibrations *app.CalibrationService
	sweeps       *app.SweepService
	reports      *app.ReportBuilder
	workbooks    *excel.ReportWriter
	defaults     app.CalibrationRequest
	logger       *logx.Logger
}

// NewServer creates the API server and mounts its routes. defaults
// fills any fields a calibration request omits.
func NewServer(calibrations *app.CalibrationService, sweeps *app.SweepService, defaults app.CalibrationRequest, logger *logx.Logger) *Server {
	if logger == nil {
		logger = logx.Default
	}
	s := &Server{
		router:       chi.NewRouter(),
		calibrations: calibrations,
		sweeps:       sweeps,
		reports:      app.NewReportBuilder(),
		workbooks:    excel.NewReportWriter(),
		defaults:     defaults,
		logger:       logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/calibrations", s.handleCalibrate)
		r.Get("/calibrations", s.handleListRuns)
		r.Get("/calibrations/{id}", s.handleGetRun)
		r.Delete("/calibrations/{id}", s.handleDeleteRun)
		r.Post("/calibrations/{id}/prediction-sets", s.handlePredictSets)
		r.Post("/calibrations/{id}/coverage", s.handleCoverage)
		r.Get("/calibrations/{id}/report", s.handleReport)
		r.Post("/sweep", s.handleSweep)
	})
}

// Router returns the chi router for mounting or testing
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server on the given address
func (s *Server) Start(addr string) error {
	s.logger.Info("API server listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// statusFor maps domain sentinel errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotFitted):
		return http.StatusConflict
	case errors.Is(err, core.ErrLabelMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidConfiguration),
		errors.Is(err, core.ErrDimensionMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
