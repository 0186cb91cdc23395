package indexer

import (
	"context"

	"github.com/kailas-cloud/aigate/internal/domain"
	"github.com/kailas-cloud/aigate/internal/repository/docindex"
	"github.com/kailas-cloud/aigate/internal/upstream"
)

// FileReader fetches the extracted text of a file.
type FileReader interface {
	Content(ctx context.Context, fileID string) (upstream.FileContent, error)
}

// Lexical is the whole-document side of the index.
type Lexical interface {
	IndexDocument(ctx context.Context, doc docindex.Document) error
	Delete(ctx context.Context, fileID string) error
}

// Vector is the per-chunk side of the index.
type Vector interface {
	Upsert(ctx context.Context, p docindex.ChunkPoint) error
	DeleteFile(ctx context.Context, fileID string) error
}

// Embedder vectorizes chunk text. Indexing embeds directly against the
// backend, not through the dispatch quota path, so a large file does not
// consume its owner's daily request budget chunk by chunk.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.Embedding, error)
}
