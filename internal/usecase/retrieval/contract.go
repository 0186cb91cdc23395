package retrieval

import (
	"context"

	"github.com/kailas-cloud/aigate/internal/domain"
)

// LexicalIndex is the keyword branch of hybrid search.
type LexicalIndex interface {
	Query(ctx context.Context, query string, filter domain.SearchFilter, topK int) ([]domain.Hit, error)
}

// VectorIndex is the semantic branch of hybrid search.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, filter domain.SearchFilter, topK int, minScore float64) ([]domain.Hit, error)
}

// Dispatcher provides the AI layer: query embedding for the vector branch
// and completions for re-ranking.
type Dispatcher interface {
	Embed(ctx context.Context, userID string, tier domain.Tier, text string) (domain.Embedding, error)
	Process(ctx context.Context, req *domain.AIRequest) (domain.AIResponse, error)
}
