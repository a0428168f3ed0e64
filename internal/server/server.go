package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/config"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/metrics"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/store"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

type Server struct {
	cfg      config.ServerConfig
	registry *Registry
	store    store.Store
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	creates  *rate.Limiter
}

func New(cfg config.ServerConfig, registry *Registry, st store.Store, logger *zap.SugaredLogger, m *metrics.Metrics) *Server {
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 100 * time.Millisecond
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	var srv = &Server{
		cfg:      cfg,
		registry: registry,
		store:    st,
		logger:   logger,
		metrics:  m,
	}
	if cfg.CreateRate > 0 {
		srv.creates = rate.NewLimiter(rate.Limit(cfg.CreateRate), max(cfg.CreateBurst, 1))
	}
	return srv
}

func (s *Server) Router() http.Handler {
	var r = chi.NewRouter()
	if s.cfg.LocalCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(s.countRequests)

	r.Get("/api/ping", s.handlePing)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/api/results", s.handleResult)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/connect", s.handleConnect)
			r.Post("/disconnect", s.handleDisconnect)
			r.Put("/position", s.handlePosition)
			r.Get("/pgn", s.handlePGN)
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/stop", s.handleStop)
			r.Put("/autoplay", s.handleAutoplay)
			r.Get("/complexity", s.handleComplexity)
			r.Put("/dimension", s.handleDimension)
			r.Get("/ws", s.handleStream)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down and disconnects every session.
func (s *Server) Run(ctx context.Context) error {
	var srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var serveErr = make(chan error, 1)
	go func() {
		s.logger.Infof("Server is running on %s", s.cfg.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		s.registry.CloseAll()
		return err
	case <-ctx.Done():
	}

	var shutdownCtx, cancel = context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	var err = srv.Shutdown(shutdownCtx)
	s.registry.CloseAll()
	if errors.Is(<-serveErr, http.ErrServerClosed) {
		s.logger.Info("server stopped")
	}
	return err
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		var route = r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		var status = ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(route, status)
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.creates != nil && !s.creates.Allow() {
		writeError(w, ErrCreateRateLimited)
		return
	}
	var id, _, err = s.registry.Create()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{ID: id})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ctrl.Connect(r.Context()); err != nil {
		s.logger.Warnw("connect failed", "id", chi.URLParam(r, "id"), "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ctrl.Disconnect(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

type positionRequest struct {
	FEN string `json:"fen"`
	PGN string `json:"pgn"`
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PGN != "" {
		err = ctrl.SetPositionPGN(req.PGN)
	} else {
		if req.FEN == "" || req.FEN == "startpos" {
			req.FEN = common.InitialPositionFen
		}
		err = ctrl.SetPosition(req.FEN)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var text = ctrl.PGN()
	if text == "" {
		writeError(w, analysis.ErrNoPosition)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

type analyzeRequest struct {
	Strategy string `json:"strategy"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var strategy domain.Strategy
	if req.Strategy != "" {
		var ok bool
		strategy, ok = domain.ParseStrategy(req.Strategy)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown strategy " + req.Strategy})
			return
		}
	}
	plan, err := ctrl.Analyze(r.Context(), strategy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, plan)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ctrl.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

type autoplayRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req autoplayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctrl.SetAutoplay(req.Enabled)
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

type complexityResponse struct {
	FEN        string  `json:"fen"`
	Complexity float64 `json:"complexity"`
	Dimension  float64 `json:"dimension"`
}

func (s *Server) handleComplexity(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	score, err := ctrl.Complexity()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, complexityResponse{
		FEN:        ctrl.FEN(),
		Complexity: score,
		Dimension:  ctrl.Snapshot().Dimension,
	})
}

type dimensionRequest struct {
	Dimension float64 `json:"dimension"`
}

type dimensionResponse struct {
	Dimension float64 `json:"dimension"`
}

func (s *Server) handleDimension(w http.ResponseWriter, r *http.Request) {
	var ctrl, err = s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req dimensionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dimensionResponse{Dimension: ctrl.SetDimension(req.Dimension)})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var fen = r.URL.Query().Get("fen")
	var pos, err = common.NewPositionFromFEN(fen)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.store.Get(r.Context(), pos.String())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
