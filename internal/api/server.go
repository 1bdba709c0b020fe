// Package api exposes the question answering pipeline over a JSON HTTP API.
package api

import (
	"errors"
	"log/slog"
	"net/http"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Resolver   QuestionResolver // Required
	Feedback   FeedbackRecorder // Required
	Retrainer  Retrainer        // Optional: nil disables POST /api/v1/retrain
	DB         Pinger           // Optional: nil skips the database readiness check
	TrustProxy bool             // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst  int              // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if cfg.Feedback == nil {
		return nil, errors.New("feedback recorder is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	ah := &askHandler{resolver: cfg.Resolver, logger: logger}
	mux.HandleFunc("POST /api/v1/ask", ah.ask)

	fh := &feedbackHandler{recorder: cfg.Feedback, logger: logger}
	mux.HandleFunc("POST /api/v1/feedback", fh.submit)

	if cfg.Retrainer != nil {
		rh := &retrainHandler{retrainer: cfg.Retrainer, logger: logger}
		mux.HandleFunc("POST /api/v1/retrain", rh.trigger)
	}

	// Per-IP token bucket, 1 token/sec refill.
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> RateLimit -> Routes
	// RequestID must precede Logging so request_id is available in log
	// attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.DB))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
