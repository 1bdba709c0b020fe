// Package knowledge manages the searchable knowledge base of solved math
// questions.
//
// Each Entry pairs a canonical question with its answer, solution steps, and
// a fixed-length embedding vector. The Index interface abstracts the backing
// store: Store persists entries in PostgreSQL with pgvector similarity
// search, Memory keeps them in process for tests and single-node dev use.
//
// All embeddings in one index must come from the same embedding model;
// mixing embedding versions is forbidden. VectorDimension fixes the expected
// dimension per deployment.
package knowledge

import (
	"context"
	"time"
)

// VectorDimension is the embedding dimension used by the index schema.
// Must match the configured embedder model's output dimension.
const VectorDimension = 768

// Entry is a stored, retrievable question/answer/steps record with its
// embedding. Entries are immutable once stored; updates replace the whole
// record by canonical question.
type Entry struct {
	ID          string    // unique, stable identifier
	Question    string    // canonical question text
	FinalAnswer string    // answer body
	Steps       []string  // ordered solution steps (insertion order = presentation order)
	Tags        []string  // free-form labels (e.g. "user_feedback")
	Embedding   []float32 // derived from Question (or Question+FinalAnswer for retrained entries)
	CreatedAt   time.Time
}

// Candidate is an ephemeral retrieval result: an entry plus its similarity
// score in [0,1], higher is more similar. Lives only for the duration of one
// resolution call.
type Candidate struct {
	Entry Entry
	Score float64
}

// Index is the knowledge base contract consumed by the retrieval policy,
// the retraining job, and the ingestion command.
//
// Upsert replaces an existing entry with the same canonical question,
// keeping its original id; otherwise it inserts the entry as given.
// Search returns at most topK nearest candidates ordered by descending
// score, ties broken by ascending id. GetByQuestion returns (nil, nil)
// when no entry matches.
type Index interface {
	Upsert(ctx context.Context, entry Entry) error
	Search(ctx context.Context, embedding []float32, topK int) ([]Candidate, error)
	GetByQuestion(ctx context.Context, question string) (*Entry, error)
	Count(ctx context.Context) (int, error)
}
