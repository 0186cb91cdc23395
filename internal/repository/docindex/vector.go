package docindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/aigate/internal/db"
	"github.com/kailas-cloud/aigate/internal/domain"
)

const (
	chunkKeyPrefix = domain.KeyPrefix + "chunk:"
	chunkIndexName = domain.KeyPrefix + "chunks:idx"
)

// ChunkPoint is one embedded chunk of a file.
type ChunkPoint struct {
	FileID   string
	Ordinal  int
	Text     string
	OwnerID  string
	KBID     string
	FileType string
	Vector   []float32
}

// vectorStore is the consumer interface for the vector index (ISP).
type vectorStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Vector stores per-chunk embedding points and searches them with KNN.
type Vector struct {
	store vectorStore
	dim   int
}

// NewVector creates a vector index repository. dim is the embedding width
// every upserted point must match.
func NewVector(s vectorStore, dim int) *Vector {
	return &Vector{store: s, dim: dim}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (v *Vector) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     chunkIndexName,
		Prefixes: []string{chunkKeyPrefix},
		Fields: []db.IndexField{
			{Name: "file_id", Type: db.IndexFieldTag},
			{Name: "owner_id", Type: db.IndexFieldTag},
			{Name: "kb_id", Type: db.IndexFieldTag},
			{Name: "file_type", Type: db.IndexFieldTag},
			{Name: "ordinal", Type: db.IndexFieldNumeric},
			{Name: "vector", Type: db.IndexFieldVector, VectorDim: v.dim, VectorM: 16, VectorEFConstruct: 200},
		},
	}
	if err := v.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}

// Upsert writes or replaces one chunk point.
func (v *Vector) Upsert(ctx context.Context, p ChunkPoint) error {
	if p.FileID == "" {
		return fmt.Errorf("upsert chunk: %w", domain.ErrInvalidRequest)
	}
	if len(p.Vector) != v.dim {
		return fmt.Errorf("upsert chunk %s/%d: vector dim %d, index expects %d",
			p.FileID, p.Ordinal, len(p.Vector), v.dim)
	}

	key := chunkKey(p.FileID, p.Ordinal)
	fields := map[string]string{
		"file_id":   p.FileID,
		"owner_id":  p.OwnerID,
		"kb_id":     p.KBID,
		"file_type": p.FileType,
		"ordinal":   strconv.Itoa(p.Ordinal),
		"content":   p.Text,
		"vector":    string(vectorToBytes(p.Vector)),
	}
	if err := v.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// DeleteFile removes every chunk point belonging to a file.
func (v *Vector) DeleteFile(ctx context.Context, fileID string) error {
	keys, err := v.store.Scan(ctx, chunkKeyPrefix+fileID+":*")
	if err != nil {
		return fmt.Errorf("scan chunks of %s: %w", fileID, err)
	}
	for _, key := range keys {
		if err := v.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del %s: %w", key, err)
		}
	}
	return nil
}

// Query runs a KNN search and drops hits below minScore. Chunk hits carry
// the owning file as SourceID so callers can merge per source.
func (v *Vector) Query(ctx context.Context, vector []float32, filter domain.SearchFilter, topK int, minScore float64) ([]domain.Hit, error) {
	q := &db.KNNQuery{
		IndexName:    chunkIndexName,
		Filter:       toDBFilter(filter),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"file_id", "content"},
	}

	sr, err := v.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if entry.Score < minScore {
			continue
		}
		sourceID := entry.Fields["file_id"]
		if sourceID == "" {
			sourceID = fileIDFromChunkKey(entry.Key)
		}
		hits = append(hits, domain.Hit{
			SourceID: sourceID,
			Method:   domain.MethodVector,
			Score:    entry.Score,
			Snippet:  makeSnippet(entry.Fields["content"]),
		})
	}
	return hits, nil
}

func chunkKey(fileID string, ordinal int) string {
	return fmt.Sprintf("%s%s:%d", chunkKeyPrefix, fileID, ordinal)
}

func fileIDFromChunkKey(key string) string {
	rest := strings.TrimPrefix(key, chunkKeyPrefix)
	if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func vectorToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
