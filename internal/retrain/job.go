// Package retrain folds highly rated user feedback back into the knowledge
// base. A run scans the feedback log, admits entries at or above the rating
// cutoff, embeds them, and upserts them by canonical question, so repeated
// runs over the same log converge instead of duplicating.
package retrain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mathagent/mathagent/internal/feedback"
	"github.com/mathagent/mathagent/internal/knowledge"
)

// ErrAlreadyRunning indicates another retraining run holds the lock.
var ErrAlreadyRunning = errors.New("retraining already in progress")

// defaultAnswerBody is stored when an admitted feedback entry carries no
// usable text of its own.
const defaultAnswerBody = "Correct answer provided by user"

// feedbackTag labels knowledge entries learned from feedback.
const feedbackTag = "user_feedback"

// Source yields the feedback entries to scan. Implemented by feedback.Log.
type Source interface {
	ReadAll(ctx context.Context) ([]feedback.Entry, error)
}

// Embedder produces the embedding for one entry text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Report summarizes one retraining run.
type Report struct {
	Scanned  int `json:"scanned"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Job runs retraining over a feedback source and a knowledge index.
type Job struct {
	source    Source
	embedder  Embedder
	index     knowledge.Index
	minRating int
	lockPath  string
	logger    *slog.Logger
}

// NewJob creates a Job. minRating is the inclusive admission cutoff (1..5);
// lockPath is the cross-process single-flight lock file. A nil logger falls
// back to slog.Default().
func NewJob(source Source, embedder Embedder, index knowledge.Index, minRating int, lockPath string, logger *slog.Logger) (*Job, error) {
	if source == nil || embedder == nil || index == nil {
		return nil, fmt.Errorf("source, embedder and index are required")
	}
	if minRating < 1 || minRating > 5 {
		return nil, fmt.Errorf("min rating must be in 1..5, got %d", minRating)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		source:    source,
		embedder:  embedder,
		index:     index,
		minRating: minRating,
		lockPath:  lockPath,
		logger:    logger,
	}, nil
}

// RunExclusive runs the job under the retraining lock. A concurrent run
// returns ErrAlreadyRunning immediately instead of queueing.
func (j *Job) RunExclusive(ctx context.Context) (Report, error) {
	lock := flock.New(j.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("acquire retrain lock: %w", err)
	}
	if !ok {
		return Report{}, ErrAlreadyRunning
	}
	defer lock.Unlock() //nolint:errcheck

	return j.Run(ctx)
}

// Run scans the feedback log once. Per-entry failures are counted, logged,
// and never abort the run; only a failure to read the log itself is fatal.
func (j *Job) Run(ctx context.Context) (Report, error) {
	start := time.Now()

	entries, err := j.source.ReadAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read feedback log: %w", err)
	}

	var report Report
	report.Scanned = len(entries)

	for _, e := range entries {
		if !j.admit(e) {
			report.Skipped++
			continue
		}
		if err := j.learn(ctx, e); err != nil {
			report.Failed++
			j.logger.Warn("retraining entry failed",
				"user_id", e.UserID, "error", err)
			continue
		}
		report.Accepted++
	}

	j.logger.Info("retraining run completed",
		"scanned", report.Scanned,
		"accepted", report.Accepted,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", time.Since(start))
	return report, nil
}

// admit reports whether a feedback entry qualifies for the knowledge base.
func (j *Job) admit(e feedback.Entry) bool {
	return e.Rating >= j.minRating && strings.TrimSpace(e.Question) != ""
}

// learn embeds one admitted entry and upserts it. An existing entry with
// the same canonical question is replaced in place, keeping its id.
func (j *Job) learn(ctx context.Context, e feedback.Entry) error {
	question := strings.TrimSpace(e.Question)
	body := strings.TrimSpace(e.FeedbackText)
	if body == "" {
		body = defaultAnswerBody
	}

	vec, err := j.embedder.EmbedText(ctx, knowledge.RetrainText(question, body))
	if err != nil {
		return fmt.Errorf("embed feedback entry: %w", err)
	}

	entry := knowledge.Entry{
		ID:          uuid.NewString(),
		Question:    question,
		FinalAnswer: body,
		Steps:       []string{body},
		Tags:        []string{feedbackTag},
		Embedding:   vec,
		CreatedAt:   time.Now().UTC(),
	}
	if err := j.index.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("upsert feedback entry: %w", err)
	}
	return nil
}
