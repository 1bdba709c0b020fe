// Package feedback records user ratings of served answers in an append-only
// CSV log. The log is the input corpus for retraining.
package feedback

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
)

// Validation sentinels, checkable with errors.Is().
var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrEmptyUserID   = errors.New("user id must not be empty")
	ErrWriteFailed   = errors.New("feedback write failed")
)

// Entry is one feedback record.
type Entry struct {
	UserID       string
	Question     string
	Rating       int
	FeedbackText string
	Timestamp    time.Time
}

// Validate checks the entry before it is written.
func (e Entry) Validate() error {
	if e.UserID == "" {
		return ErrEmptyUserID
	}
	if e.Question == "" {
		return ErrEmptyQuestion
	}
	if e.Rating < 1 || e.Rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, e.Rating)
	}
	return nil
}

// Log is a CSV-backed feedback store. Concurrent writers from multiple
// processes are serialized with a file lock next to the log file.
type Log struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewLog creates a Log writing to path. The parent directory is created if
// missing. A nil logger falls back to slog.Default().
func NewLog(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create feedback directory: %w", err)
	}
	return &Log{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}, nil
}

// Append validates entry and appends it to the log under the file lock.
func (l *Log) Append(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if _, err := l.lock.TryLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("%w: acquire lock: %w", ErrWriteFailed, err)
	}
	defer l.lock.Unlock() //nolint:errcheck

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open log: %w", ErrWriteFailed, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		entry.UserID,
		entry.Question,
		entry.FeedbackText,
		strconv.Itoa(entry.Rating),
		entry.Timestamp.UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	l.logger.Debug("feedback recorded", "user_id", entry.UserID, "rating", entry.Rating)
	return nil
}

// ReadAll returns every well-formed entry in the log. Malformed rows are
// skipped with a warning, never fatal. A missing log file yields an empty
// slice.
func (l *Log) ReadAll(ctx context.Context) ([]Entry, error) {
	if _, err := l.lock.TryRLockContext(ctx, 50*time.Millisecond); err != nil {
		return nil, fmt.Errorf("acquire read lock: %w", err)
	}
	defer l.lock.Unlock() //nolint:errcheck

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // validated per row below

	var entries []Entry
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			l.logger.Warn("skipping unreadable feedback row", "line", line, "error", err)
			continue
		}

		entry, ok := parseRecord(record)
		if !ok {
			l.logger.Warn("skipping malformed feedback row", "line", line)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// parseRecord converts one CSV record into an Entry. Reports false for rows
// with the wrong shape, an unparseable rating or timestamp, or a rating
// outside 1..5.
func parseRecord(record []string) (Entry, bool) {
	if len(record) != 5 {
		return Entry{}, false
	}

	rating, err := strconv.Atoi(record[3])
	if err != nil || rating < 1 || rating > 5 {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, record[4])
	if err != nil {
		return Entry{}, false
	}
	if record[0] == "" || record[1] == "" {
		return Entry{}, false
	}

	return Entry{
		UserID:       record[0],
		Question:     record[1],
		FeedbackText: record[2],
		Rating:       rating,
		Timestamp:    ts,
	}, true
}
