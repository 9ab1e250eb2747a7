package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/transit"
	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// EventSource is implemented by controllers that can stream status events.
type EventSource interface {
	Subscribe(buffer int) (<-chan domain.StatusEvent, func())
}

// Server exposes a ports.Controller over HTTP.
type Server struct {
	Controller ports.Controller
	Logger     *slog.Logger
	Gatherer   prometheus.Gatherer

	// Limiter throttles the mutating routes. Nil disables throttling.
	Limiter *rate.Limiter
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithRateLimit allows limit mutating requests per second with the given burst.
// Every accepted transition supersedes the running one, so a client in a loop
// would otherwise keep the orchestrator cancelling forever.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.Limiter = rate.NewLimiter(limit, max(burst, 1))
		}
	}
}

// NewHandler creates a new HTTP handler for the controller.
func NewHandler(ctrl ports.Controller, opts ...Option) http.Handler {
	s := &Server{
		Controller: ctrl,
		Logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/status", s.GetStatus)
	r.Get("/policies", s.GetPolicies)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/transitions", func(r chi.Router) {
		r.Use(s.throttle)
		r.Post("/", s.StartTransition)
		r.Post("/cancel", s.CancelTransition)
		r.Post("/retry", s.RetryTransition)
		r.Post("/clear-cache-retry", s.ClearCacheAndRetry)
	})

	r.Route("/gates", func(r chi.Router) {
		r.Get("/", s.ListGates)
		r.With(s.throttle).Post("/{id}/hold", s.HoldGate)
		r.With(s.throttle).Post("/{id}/release", s.ReleaseGate)
	})

	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Limiter != nil && !s.Limiter.Allow() {
			s.Logger.Warn("rate limit exceeded", "path", r.URL.Path)
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, map[string]string{
		"app":     "transit-http",
		"version": strings.TrimSpace(transit.Version),
	})
}

// GetStatus handles the GET /status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, s.Controller.Status())
}

// GetPolicies handles the GET /policies request.
func (s *Server) GetPolicies(w http.ResponseWriter, r *http.Request) {
	table := make(map[domain.FailureKind]domain.Policy, len(domain.FailureKinds))
	for _, k := range domain.FailureKinds {
		table[k] = domain.PolicyFor(k)
	}
	writeJSON(w, s.Logger, http.StatusOK, table)
}

// StartTransition handles the POST /transitions request.
// The transition runs in the background unless ?wait=true is given.
func (s *Server) StartTransition(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("StartTransition: invalid request body", "err", err)
		return
	}
	req, err := domain.DecodeRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.dispatch(w, r, "run", func(ctx context.Context) error {
		return s.Controller.Run(ctx, req)
	})
}

// CancelTransition handles the POST /transitions/cancel request.
func (s *Server) CancelTransition(w http.ResponseWriter, r *http.Request) {
	s.Controller.CancelCurrent()
	writeJSON(w, s.Logger, http.StatusAccepted, s.Controller.Status())
}

// RetryTransition handles the POST /transitions/retry request.
func (s *Server) RetryTransition(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, "retry", s.Controller.Retry)
}

// ClearCacheAndRetry handles the POST /transitions/clear-cache-retry request.
func (s *Server) ClearCacheAndRetry(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, "clear_cache_retry", s.Controller.ClearCacheAndRetry)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) error) {
	if r.URL.Query().Get("wait") != "true" {
		// Detached so the run outlives the request.
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := fn(ctx); err != nil {
				s.Logger.Warn("transition request failed", "op", op, "err", err)
			}
		}()
		writeJSON(w, s.Logger, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	err := fn(r.Context())
	if err == nil {
		writeJSON(w, s.Logger, http.StatusOK, s.Controller.Status())
		return
	}
	var terr *domain.TransitionError
	switch {
	case errors.As(err, &terr):
		writeJSON(w, s.Logger, http.StatusConflict, s.Controller.Status())
	case errors.Is(err, domain.ErrNothingToRetry), errors.Is(err, domain.ErrNoCache):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
		s.Logger.Error("transition request failed", "op", op, "err", err)
	}
}

// ListGates handles the GET /gates request.
func (s *Server) ListGates(w http.ResponseWriter, r *http.Request) {
	held := s.Controller.Gates().Held()
	if held == nil {
		held = []domain.GateID{}
	}
	writeJSON(w, s.Logger, http.StatusOK, map[string]any{"held": held})
}

// HoldGate handles the POST /gates/{id}/hold request.
func (s *Server) HoldGate(w http.ResponseWriter, r *http.Request) {
	id := domain.GateID(chi.URLParam(r, "id"))
	s.Controller.Gates().Hold(id)
	s.Logger.Info("gate held", "gate", id)
	w.WriteHeader(http.StatusNoContent)
}

// ReleaseGate handles the POST /gates/{id}/release request.
func (s *Server) ReleaseGate(w http.ResponseWriter, r *http.Request) {
	id := domain.GateID(chi.URLParam(r, "id"))
	s.Controller.Gates().Release(id)
	s.Logger.Info("gate released", "gate", id)
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	source, ok := s.Controller.(EventSource)
	if !ok {
		http.Error(w, "Event streaming not supported", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := source.Subscribe(32)
	defer unsubscribe()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Error("SSE: failed to encode event", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
