package knowledge

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// EmbedText produces the embedding vector for a single text using a Genkit
// ai.Embedder. Callers must use the same embedder for every text stored in
// one index.
func EmbedText(ctx context.Context, embedder ai.Embedder, text string) ([]float32, error) {
	req := &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
	}

	resp, err := embedder.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return resp.Embeddings[0].Embedding, nil
}

// TextEmbedder adapts a Genkit ai.Embedder to the single-text embedding
// shape the resolution pipeline and retraining job consume.
type TextEmbedder struct {
	embedder ai.Embedder
}

// NewTextEmbedder wraps embedder.
func NewTextEmbedder(embedder ai.Embedder) *TextEmbedder {
	return &TextEmbedder{embedder: embedder}
}

// EmbedText embeds one text.
func (t *TextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return EmbedText(ctx, t.embedder, text)
}

// RetrainText composes the text embedded for entries learned from user
// feedback. Question and answer are embedded together so retrieval matches
// on either phrasing.
func RetrainText(question, answer string) string {
	return fmt.Sprintf("Q: %s A: %s", question, answer)
}
