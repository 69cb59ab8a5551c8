// Package web exposes the snapshot and risk evaluation pipeline over HTTP.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/riskgate/internal/domain"
)

const (
	eventPollInterval = 2 * time.Second
	heartbeatInterval = 30 * time.Second
	maxBodyBytes      = 1 << 20
)

type riskService interface {
	Pair() domain.Pair
	Snapshot(ctx context.Context) (domain.IndicatorSnapshot, error)
	Evaluate(ctx context.Context, proposal domain.TradeProposal, portfolio domain.PortfolioContext) (domain.RiskDecisionEvent, error)
	RecordOutcome(decisionID string, outcome domain.TradeOutcome) (domain.TradeOutcomeEvent, error)
	EventsAfter(index uint64) ([]domain.EventRecord, error)
}

// EvaluateRequest body of POST /api/evaluate.
type EvaluateRequest struct {
	Proposal  domain.TradeProposal    `json:"proposal"`
	Portfolio domain.PortfolioContext `json:"portfolio"`
}

// OutcomeRequest body of POST /api/outcomes.
type OutcomeRequest struct {
	DecisionID  string    `json:"decision_id"`
	RealizedPnL *float64  `json:"realized_pnl"`
	ClosedAt    time.Time `json:"closed_at"`
}

// Server exposes HTTP endpoints for snapshots, evaluations and the decision journal.
type Server struct {
	Addr    string
	logger  *zap.Logger
	service riskService
	metrics http.Handler
}

// NewServer creates a new web server instance. A nil metrics handler disables /metrics.
func NewServer(logger *zap.Logger, addr string, service riskService, metrics http.Handler) *Server {
	return &Server{Addr: addr, logger: logger, service: service, metrics: metrics}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/decisions", s.handleDecisions)
		r.Get("/decisions/stream", s.handleDecisionStream)
		r.Post("/outcomes", s.handleOutcome)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("HTTP API listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"pair":   s.service.Pair().String(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, "snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	side, err := domain.ParseSide(string(req.Proposal.Side))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Proposal.Side = side
	if req.Proposal.Confidence < 0 || req.Proposal.Confidence > 1 {
		writeError(w, http.StatusBadRequest, "confidence must be within [0, 1]")
		return
	}
	if req.Portfolio.TotalBalance < 0 {
		writeError(w, http.StatusBadRequest, "total_balance must be non-negative")
		return
	}

	event, err := s.service.Evaluate(r.Context(), req.Proposal, req.Portfolio)
	if err != nil {
		s.writeServiceError(w, "evaluate", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	after, err := parseAfter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.service.EventsAfter(after)
	if err != nil {
		s.writeServiceError(w, "decisions", err)
		return
	}
	if records == nil {
		records = []domain.EventRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DecisionID == "" {
		writeError(w, http.StatusBadRequest, "decision_id is required")
		return
	}
	if req.RealizedPnL == nil {
		writeError(w, http.StatusBadRequest, "realized_pnl is required")
		return
	}

	event, err := s.service.RecordOutcome(req.DecisionID, domain.TradeOutcome{
		ClosedAt:    req.ClosedAt,
		RealizedPnL: *req.RealizedPnL,
	})
	if err != nil {
		s.writeServiceError(w, "outcome", err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// handleDecisionStream pushes journal entries as server-sent events.
func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	lastIndex, err := parseAfter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat keeps proxies from closing the connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(eventPollInterval)
	defer pollTicker.Stop()

	sendEvents := func() error {
		records, err := s.service.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: %s\n", record.Type)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendEvents(); err != nil {
		http.Error(w, "failed to load decisions", http.StatusInternalServerError)
		s.logger.Error("decision stream initial load", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendEvents(); err != nil {
				s.logger.Warn("decision stream poll", zap.Error(err))
			}
		}
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDecisionIDRequired):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDecisionNotFound):
		status = http.StatusNotFound
	}
	s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, status, err.Error())
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func parseAfter(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("after")
	if raw == "" {
		return 0, nil
	}
	after, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid 'after' query param %q", raw)
	}
	return after, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
