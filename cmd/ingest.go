package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mathagent/mathagent/internal/app"
	"github.com/mathagent/mathagent/internal/config"
	"github.com/mathagent/mathagent/internal/knowledge"
)

// runIngest bulk-loads knowledge entries from a CSV file.
//
// Expected columns: question, final_answer, steps, tags. Steps and tags are
// pipe-separated within their cell. A header row is detected and skipped.
func runIngest() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: mathagent ingest <file.csv>")
	}
	path := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	embedder := knowledge.NewTextEmbedder(a.Embedder)

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var loaded, skipped int
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s line %d: %w", path, line, err)
		}

		if line == 1 && isHeaderRow(record) {
			continue
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" || strings.TrimSpace(record[1]) == "" {
			slog.Warn("skipping malformed row", "line", line)
			skipped++
			continue
		}

		entry := knowledge.Entry{
			ID:          uuid.NewString(),
			Question:    strings.TrimSpace(record[0]),
			FinalAnswer: strings.TrimSpace(record[1]),
			CreatedAt:   time.Now().UTC(),
		}
		if len(record) > 2 {
			entry.Steps = splitList(record[2])
		}
		if len(record) > 3 {
			entry.Tags = splitList(record[3])
		}

		vec, err := embedder.EmbedText(ctx, entry.Question)
		if err != nil {
			return fmt.Errorf("embedding line %d: %w", line, err)
		}
		entry.Embedding = vec

		if err := a.Index.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("storing line %d: %w", line, err)
		}
		loaded++
	}

	fmt.Printf("Ingest complete: loaded=%d skipped=%d\n", loaded, skipped)
	return nil
}

// isHeaderRow reports whether the first CSV row looks like column names.
func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "question")
}

// splitList splits a pipe-separated cell into trimmed, non-empty items.
func splitList(cell string) []string {
	var items []string
	for _, item := range strings.Split(cell, "|") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
