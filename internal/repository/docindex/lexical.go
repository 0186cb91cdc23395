// Package docindex maintains the two FT indexes behind hybrid retrieval:
// a per-file lexical index queried with BM25 and a per-chunk vector index
// queried with KNN.
package docindex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/aigate/internal/db"
	"github.com/kailas-cloud/aigate/internal/domain"
)

const (
	docKeyPrefix = domain.KeyPrefix + "doc:"
	docIndexName = domain.KeyPrefix + "docs:idx"

	snippetMaxRunes = 240
)

// Document is the lexical view of an indexed file.
type Document struct {
	FileID   string
	Title    string
	Content  string
	OwnerID  string
	KBID     string
	FileType string
}

// lexicalStore is the consumer interface for the lexical index (ISP).
type lexicalStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Lexical indexes whole documents as hashes and searches them with BM25.
type Lexical struct {
	store lexicalStore
}

// NewLexical creates a lexical index repository.
func NewLexical(s lexicalStore) *Lexical {
	return &Lexical{store: s}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (l *Lexical) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     docIndexName,
		Prefixes: []string{docKeyPrefix},
		Fields: []db.IndexField{
			{Name: "content", Type: db.IndexFieldText},
			{Name: "title", Type: db.IndexFieldText},
			{Name: "owner_id", Type: db.IndexFieldTag},
			{Name: "kb_id", Type: db.IndexFieldTag},
			{Name: "file_type", Type: db.IndexFieldTag},
		},
	}
	if err := l.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create lexical index: %w", err)
	}
	return nil
}

// IndexDocument writes or replaces the document hash.
func (l *Lexical) IndexDocument(ctx context.Context, doc Document) error {
	if doc.FileID == "" {
		return fmt.Errorf("index document: %w", domain.ErrInvalidRequest)
	}
	fields := map[string]string{
		"content":   doc.Content,
		"title":     doc.Title,
		"owner_id":  doc.OwnerID,
		"kb_id":     doc.KBID,
		"file_type": doc.FileType,
	}
	if err := l.store.HSet(ctx, docKey(doc.FileID), fields); err != nil {
		return fmt.Errorf("hset %s: %w", docKey(doc.FileID), err)
	}
	return nil
}

// Delete removes the document hash. Deleting an unknown file is a no-op.
func (l *Lexical) Delete(ctx context.Context, fileID string) error {
	if err := l.store.Del(ctx, docKey(fileID)); err != nil {
		return fmt.Errorf("del %s: %w", docKey(fileID), err)
	}
	return nil
}

// Query runs a fuzzy BM25 search and returns hits with highlighted snippets.
func (l *Lexical) Query(ctx context.Context, query string, filter domain.SearchFilter, topK int) ([]domain.Hit, error) {
	q := &db.TextQuery{
		IndexName:    docIndexName,
		Query:        query,
		Filter:       toDBFilter(filter),
		TopK:         topK,
		ReturnFields: []string{"content"},
		Fuzzy:        true,
		Highlight:    "content",
	}

	sr, err := l.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		marked := entry.Fields["content"]
		hits = append(hits, domain.Hit{
			SourceID:  strings.TrimPrefix(entry.Key, docKeyPrefix),
			Method:    domain.MethodLexical,
			Score:     entry.Score,
			Snippet:   makeSnippet(stripMarks(marked)),
			Highlight: makeSnippet(marked),
		})
	}
	return hits, nil
}

func docKey(fileID string) string {
	return docKeyPrefix + fileID
}

func toDBFilter(f domain.SearchFilter) db.Filter {
	tags := make(map[string]string, 3)
	if f.OwnerID != "" {
		tags["owner_id"] = f.OwnerID
	}
	if f.KBID != "" {
		tags["kb_id"] = f.KBID
	}
	if f.FileType != "" {
		tags["file_type"] = f.FileType
	}
	return db.Filter{Tags: tags}
}

// stripMarks removes the <em> markers the highlighter inserts.
func stripMarks(s string) string {
	s = strings.ReplaceAll(s, "<em>", "")
	return strings.ReplaceAll(s, "</em>", "")
}

// makeSnippet truncates to a bounded rune count on a rune boundary.
func makeSnippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetMaxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == snippetMaxRunes {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
