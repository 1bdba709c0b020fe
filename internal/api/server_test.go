package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mathagent/mathagent/internal/answer"
	"github.com/mathagent/mathagent/internal/feedback"
	"github.com/mathagent/mathagent/internal/log"
	"github.com/mathagent/mathagent/internal/resolve"
	"github.com/mathagent/mathagent/internal/retrain"
)

type stubResolver struct {
	answer answer.Answer
	err    error
	asked  []string
	levels []answer.ExplainLevel
}

func (s *stubResolver) Resolve(_ context.Context, question string, level answer.ExplainLevel) (answer.Answer, error) {
	s.asked = append(s.asked, question)
	s.levels = append(s.levels, level)
	return s.answer, s.err
}

type stubRecorder struct {
	entries []feedback.Entry
	err     error
}

func (s *stubRecorder) Append(_ context.Context, e feedback.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

type stubRetrainer struct {
	report retrain.Report
	err    error
}

func (s *stubRetrainer) RunExclusive(context.Context) (retrain.Report, error) {
	return s.report, s.err
}

func goodAnswer() answer.Answer {
	return answer.Answer{
		Steps:       []string{"Apply the power rule"},
		FinalAnswer: "f'(x) = 3x^2",
		Confidence:  0.91,
		Sources:     []string{"kb-1"},
		Origin:      answer.OriginKnowledgeBase,
	}
}

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = &stubResolver{answer: goodAnswer()}
	}
	if cfg.Feedback == nil {
		cfg.Feedback = &stubRecorder{}
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 1000
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(ServerConfig{Feedback: &stubRecorder{}}); err == nil {
		t.Error("expected error without resolver")
	}
	if _, err := NewServer(ServerConfig{Resolver: &stubResolver{}}); err == nil {
		t.Error("expected error without feedback recorder")
	}
}

func TestAsk(t *testing.T) {
	resolver := &stubResolver{answer: goodAnswer()}
	srv := newTestServer(t, ServerConfig{Resolver: resolver})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ask", `{"question":"Differentiate x^3"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.FinalAnswer != "f'(x) = 3x^2" || got.Confidence != 0.91 {
		t.Errorf("response = %+v", got)
	}
	if len(resolver.asked) != 1 || resolver.asked[0] != "Differentiate x^3" {
		t.Errorf("resolver asked = %v", resolver.asked)
	}
	if resolver.levels[0] != answer.ExplainDetailed {
		t.Errorf("level = %q, want detailed by default", resolver.levels[0])
	}
}

func TestAskExplainLevel(t *testing.T) {
	tests := []struct {
		name string
		body string
		want answer.ExplainLevel
	}{
		{"simple", `{"question":"Differentiate x^3","explain_level":"simple"}`, answer.ExplainSimple},
		{"detailed", `{"question":"Differentiate x^3","explain_level":"detailed"}`, answer.ExplainDetailed},
		{"omitted defaults to detailed", `{"question":"Differentiate x^3"}`, answer.ExplainDetailed},
		{"unknown defaults to detailed", `{"question":"Differentiate x^3","explain_level":"verbose"}`, answer.ExplainDetailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &stubResolver{answer: goodAnswer()}
			srv := newTestServer(t, ServerConfig{Resolver: resolver})

			rec := doJSON(t, srv, http.MethodPost, "/api/v1/ask", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if len(resolver.levels) != 1 || resolver.levels[0] != tt.want {
				t.Errorf("levels = %v, want [%q]", resolver.levels, tt.want)
			}
		})
	}
}

func TestAskRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"question":`},
		{"unknown field", `{"question":"x","bogus":1}`},
		{"empty question", `{"question":"   "}`},
		{"trailing garbage", `{"question":"x"}{"again":true}`},
	}

	srv := newTestServer(t, ServerConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/ask", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAskErrorMapping(t *testing.T) {
	tests := []struct {
		kind       resolve.Kind
		wantStatus int
	}{
		{resolve.KindNotMathDomain, http.StatusUnprocessableEntity},
		{resolve.KindUnsafeContent, http.StatusUnprocessableEntity},
		{resolve.KindGenerationInvalid, http.StatusBadGateway},
		{resolve.KindEmbeddingUnavailable, http.StatusServiceUnavailable},
		{resolve.KindGenerationUnavailable, http.StatusServiceUnavailable},
		{resolve.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			resolver := &stubResolver{err: &resolve.Error{Kind: tt.kind, Reason: "nope"}}
			srv := newTestServer(t, ServerConfig{Resolver: resolver})

			rec := doJSON(t, srv, http.MethodPost, "/api/v1/ask", `{"question":"solve 1"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error.Code != string(tt.kind) {
				t.Errorf("error code = %q, want %q", body.Error.Code, tt.kind)
			}
		})
	}
}

func TestFeedback(t *testing.T) {
	recorder := &stubRecorder{}
	srv := newTestServer(t, ServerConfig{Feedback: recorder})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/feedback",
		`{"user_id":"user-1","question":"Differentiate x^3","rating":5,"feedback":"great"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(recorder.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(recorder.entries))
	}
	e := recorder.entries[0]
	if e.UserID != "user-1" || e.Rating != 5 || e.Question != "Differentiate x^3" {
		t.Errorf("entry = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestFeedbackGeneratesUserID(t *testing.T) {
	recorder := &stubRecorder{}
	srv := newTestServer(t, ServerConfig{Feedback: recorder})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/feedback",
		`{"question":"Differentiate x^3","rating":4}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if recorder.entries[0].UserID == "" {
		t.Error("missing user_id should be auto-generated")
	}
}

func TestFeedbackValidationErrors(t *testing.T) {
	recorder := &stubRecorder{err: feedback.ErrInvalidRating}
	srv := newTestServer(t, ServerConfig{Feedback: recorder})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/feedback",
		`{"user_id":"u","question":"q 1","rating":9}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFeedbackWriteFailure(t *testing.T) {
	recorder := &stubRecorder{err: errors.New("disk full")}
	srv := newTestServer(t, ServerConfig{Feedback: recorder})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/feedback",
		`{"user_id":"u","question":"q 1","rating":3}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRetrain(t *testing.T) {
	rt := &stubRetrainer{report: retrain.Report{Scanned: 3, Accepted: 2, Skipped: 1}}
	srv := newTestServer(t, ServerConfig{Retrainer: rt})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/retrain", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var report retrain.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Accepted != 2 || report.Scanned != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestRetrainConflict(t *testing.T) {
	rt := &stubRetrainer{err: retrain.ErrAlreadyRunning}
	srv := newTestServer(t, ServerConfig{Retrainer: rt})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/retrain", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRetrainDisabledWithoutRetrainer(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/retrain", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when retraining is not wired", rec.Code)
	}
}

func TestHealthProbes(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/health = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/ready = %d, want 200 with no database configured", rec.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestReadinessChecksDatabase(t *testing.T) {
	srv := newTestServer(t, ServerConfig{DB: failingPinger{}})

	rec := doJSON(t, srv, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready = %d, want 503 when the database is down", rec.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	srv := newTestServer(t, ServerConfig{RateBurst: 2})

	var lastCode int
	for i := 0; i < 4; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/ask", `{"question":"solve 1"}`)
		lastCode = rec.Code
	}
	if lastCode != http.StatusTooManyRequests {
		t.Errorf("fourth request = %d, want 429 after burst of 2", lastCode)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Resolver: panicResolver{}})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ask", `{"question":"solve 1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 after panic", rec.Code)
	}
}

type panicResolver struct{}

func (panicResolver) Resolve(context.Context, string, answer.ExplainLevel) (answer.Answer, error) {
	panic("boom")
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ask", `{"question":"solve 1"}`)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID response header")
	}
}

func TestClientIP(t *testing.T) {
	mk := func(remote, xri, xff string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remote
		if xri != "" {
			r.Header.Set("X-Real-IP", xri)
		}
		if xff != "" {
			r.Header.Set("X-Forwarded-For", xff)
		}
		return r
	}

	tests := []struct {
		name       string
		req        *http.Request
		trustProxy bool
		want       string
	}{
		{"remote addr only", mk("10.0.0.1:1234", "", ""), false, "10.0.0.1"},
		{"headers ignored without trust", mk("10.0.0.1:1234", "1.2.3.4", ""), false, "10.0.0.1"},
		{"x-real-ip trusted", mk("10.0.0.1:1234", "1.2.3.4", ""), true, "1.2.3.4"},
		{"x-forwarded-for first hop", mk("10.0.0.1:1234", "", "1.2.3.4, 5.6.7.8"), true, "1.2.3.4"},
		{"invalid header falls back", mk("10.0.0.1:1234", "not-an-ip", ""), true, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clientIP(tt.req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
