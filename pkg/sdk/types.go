package aigate

import (
	"context"
	"time"
)

// File is the extracted text of a document to index.
type File struct {
	ID       string
	Name     string
	Text     string
	OwnerID  string
	KBID     string
	FileType string
}

// FileReader supplies file contents for indexing.
type FileReader interface {
	Content(ctx context.Context, fileID string) (File, error)
}

// DispatchRequest is one AI request.
type DispatchRequest struct {
	UserID      string
	Tier        string // "free", "pro", "enterprise"
	Type        string // "chat", "summarization", "classification", ...
	Content     string
	System      string
	Temperature float64
	MaxTokens   int
	Context     map[string]string
}

// DispatchResult is the provider's answer.
type DispatchResult struct {
	Content        string
	Provider       string
	TokensUsed     int
	ProcessingTime time.Duration
	Degraded       bool
	DegradedNote   string
}

// SearchRequest is one hybrid retrieval call.
type SearchRequest struct {
	UserID   string
	Tier     string
	Query    string
	OwnerID  string
	KBID     string
	FileType string
	Limit    int
	Rerank   bool
}

// SearchHit is one ranked result.
type SearchHit struct {
	SourceID  string
	Method    string // "lexical", "vector", "merged"
	Score     float64
	Snippet   string
	Highlight string
}

// SearchResult is a ranked, possibly partial, result set.
type SearchResult struct {
	Hits    []SearchHit
	Total   int
	Elapsed time.Duration
	Partial bool
}

// IndexStats summarizes one file indexing run.
type IndexStats struct {
	Chunks  int
	Skipped int
}

// UsageReport is one user's consumption for the current UTC day.
type UsageReport struct {
	UserID     string
	Tier       string
	Day        string
	Requests   int64
	Tokens     int64
	Limit      int64 // -1 means unlimited
	Remaining  int64
	ByProvider map[string]int64
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component -> "ok"/"error"
}
