// Package indexer turns stored files into searchable documents: one lexical
// document per file plus one embedded vector point per chunk.
package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/chunk"
	"github.com/kailas-cloud/aigate/internal/repository/docindex"
)

// Service indexes and de-indexes files.
type Service struct {
	files    FileReader
	lexical  Lexical
	vector   Vector
	embedder Embedder

	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
}

// New creates an indexer. Zero chunk sizes use the chunker defaults.
func New(files FileReader, lexical Lexical, vector Vector, embedder Embedder,
	chunkSize, chunkOverlap int, logger *zap.Logger,
) *Service {
	return &Service{
		files:        files,
		lexical:      lexical,
		vector:       vector,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// Stats reports what one IndexFile call produced.
type Stats struct {
	Chunks  int `json:"chunks"`
	Skipped int `json:"skipped"`
}

// IndexFile fetches a file's text, writes the lexical document and upserts
// one vector point per chunk. A chunk whose embedding fails is logged and
// skipped; the rest of the file still indexes.
func (s *Service) IndexFile(ctx context.Context, fileID string) (Stats, error) {
	fc, err := s.files.Content(ctx, fileID)
	if err != nil {
		return Stats{}, fmt.Errorf("read file: %w", err)
	}

	doc := docindex.Document{
		FileID:   fc.ID,
		Title:    fc.Name,
		Content:  fc.Text,
		OwnerID:  fc.OwnerID,
		KBID:     fc.KBID,
		FileType: fc.FileType,
	}
	if err := s.lexical.IndexDocument(ctx, doc); err != nil {
		return Stats{}, fmt.Errorf("index document: %w", err)
	}

	// Replace any stale points from a previous version of the file.
	if err := s.vector.DeleteFile(ctx, fc.ID); err != nil {
		s.logger.Warn("Failed to clear old chunk points",
			zap.String("file_id", fc.ID), zap.Error(err))
	}

	var stats Stats
	for c := range chunk.Split(fc.Text, s.chunkSize, s.chunkOverlap) {
		if ctx.Err() != nil {
			return stats, fmt.Errorf("indexing cancelled: %w", ctx.Err())
		}

		emb, err := s.embedder.Embed(ctx, c.Text)
		if err != nil {
			s.logger.Warn("Failed to embed chunk, skipping",
				zap.String("file_id", fc.ID),
				zap.Int("ordinal", c.Index),
				zap.Error(err))
			stats.Skipped++
			continue
		}

		point := docindex.ChunkPoint{
			FileID:   fc.ID,
			Ordinal:  c.Index,
			Text:     c.Text,
			OwnerID:  fc.OwnerID,
			KBID:     fc.KBID,
			FileType: fc.FileType,
			Vector:   emb.Vector,
		}
		if err := s.vector.Upsert(ctx, point); err != nil {
			s.logger.Warn("Failed to upsert chunk point, skipping",
				zap.String("file_id", fc.ID),
				zap.Int("ordinal", c.Index),
				zap.Error(err))
			stats.Skipped++
			continue
		}
		stats.Chunks++
	}

	s.logger.Info("File indexed",
		zap.String("file_id", fc.ID),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// DeleteFile removes the lexical document and every vector point of a file.
func (s *Service) DeleteFile(ctx context.Context, fileID string) error {
	if err := s.lexical.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.vector.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("delete chunk points: %w", err)
	}
	return nil
}
