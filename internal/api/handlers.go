package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mathagent/mathagent/internal/answer"
	"github.com/mathagent/mathagent/internal/feedback"
	"github.com/mathagent/mathagent/internal/resolve"
	"github.com/mathagent/mathagent/internal/retrain"
)

// maxRequestBytes bounds request bodies; math questions are short.
const maxRequestBytes = 64 << 10

// QuestionResolver answers one question. Implemented by resolve.Resolver.
type QuestionResolver interface {
	Resolve(ctx context.Context, question string, level answer.ExplainLevel) (answer.Answer, error)
}

// FeedbackRecorder appends one feedback entry. Implemented by feedback.Log.
type FeedbackRecorder interface {
	Append(ctx context.Context, entry feedback.Entry) error
}

// Retrainer runs one retraining pass. Implemented by retrain.Job.
type Retrainer interface {
	RunExclusive(ctx context.Context) (retrain.Report, error)
}

type askHandler struct {
	resolver QuestionResolver
	logger   *slog.Logger
}

type askRequest struct {
	UserID       string `json:"user_id"`
	Question     string `json:"question"`
	ExplainLevel string `json:"explain_level"` // "simple" or "detailed"; empty defaults to detailed
}

type askResponse struct {
	Question string `json:"question"`
	answer.Answer
}

// ask handles POST /api/v1/ask.
func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "empty_question", "question is required", h.logger)
		return
	}

	a, err := h.resolver.Resolve(r.Context(), req.Question, answer.NormalizeExplainLevel(req.ExplainLevel))
	if err != nil {
		writeResolveError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, askResponse{Question: req.Question, Answer: a})
}

// writeResolveError maps pipeline failure kinds onto HTTP statuses.
func writeResolveError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var rerr *resolve.Error
	if !errors.As(err, &rerr) {
		WriteError(w, http.StatusInternalServerError, "internal_error", "question resolution failed", logger)
		return
	}

	status := http.StatusInternalServerError
	switch rerr.Kind {
	case resolve.KindNotMathDomain, resolve.KindUnsafeContent:
		status = http.StatusUnprocessableEntity
	case resolve.KindGenerationInvalid:
		status = http.StatusBadGateway
	case resolve.KindEmbeddingUnavailable, resolve.KindGenerationUnavailable:
		status = http.StatusServiceUnavailable
	}

	logger.Warn("resolution failed", "kind", rerr.Kind, "error", rerr)
	WriteError(w, status, string(rerr.Kind), rerr.Reason, logger)
}

type feedbackHandler struct {
	recorder FeedbackRecorder
	logger   *slog.Logger
}

type feedbackRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// submit handles POST /api/v1/feedback. Recording feedback never triggers
// retraining; that runs on its own endpoint and schedule.
func (h *feedbackHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	entry := feedback.Entry{
		UserID:       req.UserID,
		Question:     req.Question,
		Rating:       req.Rating,
		FeedbackText: req.Feedback,
		Timestamp:    time.Now().UTC(),
	}
	if err := h.recorder.Append(r.Context(), entry); err != nil {
		switch {
		case errors.Is(err, feedback.ErrInvalidRating),
			errors.Is(err, feedback.ErrEmptyQuestion),
			errors.Is(err, feedback.ErrEmptyUserID):
			WriteError(w, http.StatusBadRequest, "invalid_feedback", err.Error(), h.logger)
		default:
			h.logger.Error("feedback append failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "feedback_write_failed", "could not record feedback", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

type retrainHandler struct {
	retrainer Retrainer
	logger    *slog.Logger
}

// trigger handles POST /api/v1/retrain.
func (h *retrainHandler) trigger(w http.ResponseWriter, r *http.Request) {
	report, err := h.retrainer.RunExclusive(r.Context())
	if errors.Is(err, retrain.ErrAlreadyRunning) {
		WriteError(w, http.StatusConflict, "retrain_in_progress", "a retraining run is already in progress", h.logger)
		return
	}
	if err != nil {
		h.logger.Error("retraining run failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "retrain_failed", "retraining run failed", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// decodeBody decodes a JSON request body into dst, writing a 400 and
// returning false on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", logger)
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", logger)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be a single JSON object", logger)
		return false
	}
	return true
}
