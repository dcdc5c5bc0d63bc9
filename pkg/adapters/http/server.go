// Package http exposes the engine as a chat webhook.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/ledgerchat"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/aretw0/ledgerchat/pkg/observability"
)

// maxBodySize bounds webhook request bodies. Message size itself is enforced
// by the engine.
const maxBodySize = 64 << 10

// Engine is the part of ledgerchat.Engine the server drives.
type Engine interface {
	Session(ctx context.Context, channelID string) (*domain.Session, error)
	StartFlow(ctx context.Context, channelID string, flowType flow.Type) (*ledgerchat.StepResult, error)
	Handle(ctx context.Context, channelID, input string) (*ledgerchat.StepResult, error)
	ClearFlowState(ctx context.Context, channelID string) (*ledgerchat.StepResult, error)
}

// Server serves the webhook routes.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics exposes m on GET /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WebhookRequest is the body of POST /webhook.
type WebhookRequest struct {
	ChannelID string `json:"channel_id"`
	Input     string `json:"input"`
}

// WebhookResponse wraps a step result with its chat rendering.
type WebhookResponse struct {
	*ledgerchat.StepResult
	Markdown string `json:"markdown,omitempty"`
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Post("/webhook", s.Webhook)
	r.Post("/webhook/{channel}/flows/{flow}", s.StartFlow)
	r.Get("/sessions/{channel}", s.GetSession)
	r.Delete("/sessions/{channel}/flow", s.ClearFlow)
	r.Get("/sessions/{channel}/events", s.SubscribeEvents)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Webhook handles POST /webhook.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	var body WebhookRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Webhook: invalid request body", "err", err)
		return
	}
	if strings.TrimSpace(body.ChannelID) == "" {
		http.Error(w, "channel_id is required", http.StatusBadRequest)
		return
	}

	s.respond(w, r, body.ChannelID, func(ctx context.Context) (*ledgerchat.StepResult, error) {
		return s.Engine.Handle(ctx, body.ChannelID, body.Input)
	})
}

// StartFlow handles POST /webhook/{channel}/flows/{flow}.
func (s *Server) StartFlow(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")
	flowType := flow.Type(chi.URLParam(r, "flow"))

	s.respond(w, r, channelID, func(ctx context.Context) (*ledgerchat.StepResult, error) {
		return s.Engine.StartFlow(ctx, channelID, flowType)
	})
}

// ClearFlow handles DELETE /sessions/{channel}/flow.
func (s *Server) ClearFlow(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")

	s.respond(w, r, channelID, func(ctx context.Context) (*ledgerchat.StepResult, error) {
		return s.Engine.ClearFlowState(ctx, channelID)
	})
}

// GetSession handles GET /sessions/{channel}. The jwt is never returned and
// an unknown channel is a 404; reading never creates a session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")
	sess, err := s.Engine.Session(r.Context(), channelID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, domain.UserMessage(err), http.StatusServiceUnavailable)
		s.logger.Error("GetSession failed", "channel_id", channelID, "err", err)
		return
	}
	view := sess.Clone()
	view.JWTToken = ""
	writeJSON(w, http.StatusOK, view, s.logger)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(ledgerchat.Version),
	}, s.logger)
}

// respond runs call, broadcasts the session diff it caused and writes the
// result.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, channelID string, call func(context.Context) (*ledgerchat.StepResult, error)) {
	ctx := r.Context()

	var before *domain.Session
	if s.Streams.Has(channelID) {
		before, _ = s.Engine.Session(ctx, channelID)
	}

	res, err := call(ctx)
	if res == nil {
		http.Error(w, domain.UserMessage(err), http.StatusInternalServerError)
		s.logger.Error("request failed without a result", "channel_id", channelID, "err", err)
		return
	}

	if s.Streams.Has(channelID) {
		if after, loadErr := s.Engine.Session(ctx, channelID); loadErr == nil {
			if diff := domain.Diff(before, after); diff != nil {
				if raw, err := json.Marshal(diff); err == nil {
					s.Streams.Broadcast(channelID, string(raw))
				}
			}
		}
	}

	writeJSON(w, statusCode(res, err), WebhookResponse{StepResult: res, Markdown: ledgerchat.Markdown(res)}, s.logger)
}

// statusCode maps a result onto an HTTP status. Rejected input is a normal
// conversational turn and answers 200.
func statusCode(res *ledgerchat.StepResult, err error) int {
	if res.Status != ledgerchat.StatusFailed {
		return http.StatusOK
	}
	switch res.ErrorType {
	case domain.ErrorTypeFlow, domain.ErrorTypeInput:
		if errors.Is(err, flow.ErrInvalidFlowType) {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case domain.ErrorTypeAPI:
		return http.StatusBadGateway
	}
	var sysErr *domain.SystemError
	if errors.As(err, &sysErr) && sysErr.Code == domain.CodeFlowTimeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}

// SubscribeEvents handles GET /sessions/{channel}/events (SSE). The optional
// watch query parameter filters diffs by "step", "data" or "sections".
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	channelID := chi.URLParam(r, "channel")
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(channelID)
	defer cancel()
	s.logger.Info("SSE: subscribing to session updates", "channel_id", channelID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !watched(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func watched(msg string, fields []string) bool {
	var diff domain.SessionDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "step":
			if diff.Step != nil {
				return true
			}
		case "data":
			if len(diff.Data) > 0 {
				return true
			}
		case "sections":
			if len(diff.Sections) > 0 {
				return true
			}
		}
	}
	return false
}
