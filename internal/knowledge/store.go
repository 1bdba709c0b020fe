package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DB is the subset of pgx operations Store needs. Satisfied by
// *pgxpool.Pool, *pgx.Conn, and pgx.Tx, so callers choose pooling and
// transaction boundaries.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed Index. Vector similarity uses pgvector
// cosine distance; scores are 1 - distance clamped to [0,1].
//
// Safe for concurrent use when the underlying DB is (pgxpool.Pool is).
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store over db. A nil logger falls back to
// slog.Default().
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Upsert inserts entry, or replaces the content of the row with the same
// canonical question while keeping the original id and creation time.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	if len(entry.Embedding) != VectorDimension {
		return fmt.Errorf("embedding dimension %d, want %d", len(entry.Embedding), VectorDimension)
	}

	const q = `
		INSERT INTO knowledge_entries
			(id, question, canonical_question, final_answer, steps, tags, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (canonical_question) DO UPDATE SET
			question     = EXCLUDED.question,
			final_answer = EXCLUDED.final_answer,
			steps        = EXCLUDED.steps,
			tags         = EXCLUDED.tags,
			embedding    = EXCLUDED.embedding`

	_, err := s.db.Exec(ctx, q,
		entry.ID,
		entry.Question,
		Canonicalize(entry.Question),
		entry.FinalAnswer,
		entry.Steps,
		entry.Tags,
		pgvector.NewVector(entry.Embedding),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert knowledge entry: %w", err)
	}

	s.logger.Debug("knowledge entry upserted", "id", entry.ID)
	return nil
}

// Search returns at most topK nearest entries by cosine similarity, ordered
// by descending score with ties broken by ascending id.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]Candidate, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("embedding dimension %d, want %d", len(embedding), VectorDimension)
	}

	// Ordering uses the clamped score, not the raw distance: distances
	// above 1 all clamp to score 0 and must tie-break by id.
	const q = `
		SELECT id, question, final_answer, steps, tags, created_at,
		       LEAST(1, GREATEST(0, 1 - (embedding <=> $1)))::float8 AS score
		FROM knowledge_entries
		ORDER BY score DESC, id ASC
		LIMIT $2`

	rows, err := s.db.Query(ctx, q, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("search knowledge entries: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(
			&c.Entry.ID,
			&c.Entry.Question,
			&c.Entry.FinalAnswer,
			&c.Entry.Steps,
			&c.Entry.Tags,
			&c.Entry.CreatedAt,
			&c.Score,
		); err != nil {
			return nil, fmt.Errorf("scan knowledge entry: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge entries: %w", err)
	}

	return candidates, nil
}

// GetByQuestion returns the entry whose canonical question matches question,
// or (nil, nil) when absent.
func (s *Store) GetByQuestion(ctx context.Context, question string) (*Entry, error) {
	const q = `
		SELECT id, question, final_answer, steps, tags, created_at
		FROM knowledge_entries
		WHERE canonical_question = $1`

	var e Entry
	err := s.db.QueryRow(ctx, q, Canonicalize(question)).Scan(
		&e.ID,
		&e.Question,
		&e.FinalAnswer,
		&e.Steps,
		&e.Tags,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get knowledge entry: %w", err)
	}
	return &e, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM knowledge_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count knowledge entries: %w", err)
	}
	return n, nil
}
