// Package retrieval runs hybrid search: a lexical BM25 branch and a vector
// KNN branch executed concurrently, merged per source, optionally re-ranked
// by the AI layer.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/domain"
	"github.com/kailas-cloud/aigate/internal/metrics"
)

const (
	// DefaultLimit caps results when the caller does not choose.
	DefaultLimit = 10

	// branchFactor over-fetches each branch so the merge still fills the
	// limit after deduplication.
	branchFactor = 2

	// defaultMinScore drops vector hits with near-zero cosine similarity.
	defaultMinScore = 0.1

	// rerankTopN is how many merged results are offered for AI re-ranking.
	rerankTopN = 10
)

// Request is one search call.
type Request struct {
	UserID string
	Tier   domain.Tier
	Query  string
	Filter domain.SearchFilter
	Limit  int
	Rerank bool
}

// Response is a ranked, possibly partial, result set.
type Response struct {
	Results []domain.Hit  `json:"results"`
	Total   int           `json:"total"`
	Elapsed time.Duration `json:"elapsed"`
	Partial bool          `json:"partial,omitempty"`
}

// Service is the hybrid retrieval engine.
type Service struct {
	lexical    LexicalIndex
	vector     VectorIndex
	dispatcher Dispatcher
	minScore   float64
	logger     *zap.Logger
}

// New creates a retrieval service. minScore <= 0 uses defaultMinScore.
func New(lexical LexicalIndex, vector VectorIndex, dispatcher Dispatcher, minScore float64, logger *zap.Logger) *Service {
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	return &Service{
		lexical:    lexical,
		vector:     vector,
		dispatcher: dispatcher,
		minScore:   minScore,
		logger:     logger,
	}
}

// Search runs both branches concurrently and merges. One failed branch
// yields partial results; only both failing is an error.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return Response{}, fmt.Errorf("empty query: %w", domain.ErrInvalidRequest)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	topK := limit * branchFactor

	var (
		wg      sync.WaitGroup
		lexHits []domain.Hit
		lexErr  error
		vecHits []domain.Hit
		vecErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		lexHits, lexErr = s.lexical.Query(ctx, req.Query, req.Filter, topK)
		observeBranch("lexical", lexErr)
	}()
	go func() {
		defer wg.Done()
		vecHits, vecErr = s.vectorBranch(ctx, req, topK)
		observeBranch("vector", vecErr)
	}()
	wg.Wait()

	if lexErr != nil && vecErr != nil {
		return Response{}, fmt.Errorf("%w: lexical: %v; vector: %v", domain.ErrSearchFailed, lexErr, vecErr)
	}
	partial := lexErr != nil || vecErr != nil
	if partial {
		s.logger.Warn("Search degraded to single branch",
			zap.NamedError("lexical", lexErr),
			zap.NamedError("vector", vecErr))
	}

	merged := mergeHits(lexHits, vecHits, 0)
	total := len(merged)

	if req.Rerank && req.Tier.AtLeast(domain.TierPro) {
		merged = s.rerank(ctx, req, merged)
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}

	return Response{
		Results: merged,
		Total:   total,
		Elapsed: time.Since(start),
		Partial: partial,
	}, nil
}

// vectorBranch embeds the query through the dispatcher and runs KNN.
func (s *Service) vectorBranch(ctx context.Context, req Request, topK int) ([]domain.Hit, error) {
	emb, err := s.dispatcher.Embed(ctx, req.UserID, req.Tier, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vector.Query(ctx, emb.Vector, req.Filter, topK, s.minScore)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

// rerank asks the AI layer to reorder the top results. Any failure returns
// the merged list unchanged.
func (s *Service) rerank(ctx context.Context, req Request, merged []domain.Hit) []domain.Hit {
	if len(merged) < 2 {
		return merged
	}
	head := merged
	if len(head) > rerankTopN {
		head = head[:rerankTopN]
	}

	prompt := buildRerankPrompt(req.Query, head)
	aiReq, err := domain.NewAIRequest(
		req.UserID, req.Tier, domain.TypeRerank,
		prompt, rerankSystemPrompt, 0.0, 500, nil,
	)
	if err != nil {
		s.logger.Warn("Failed to build rerank request", zap.Error(err))
		return merged
	}

	resp, err := s.dispatcher.Process(ctx, &aiReq)
	if err != nil || resp.Degraded {
		s.logger.Warn("Rerank skipped", zap.Bool("degraded", resp.Degraded), zap.Error(err))
		return merged
	}

	ids, err := parseRankOrder(resp.Content)
	if err != nil {
		s.logger.Warn("Failed to parse rerank order", zap.Error(err))
		return merged
	}

	reordered, ok := applyRankOrder(merged, ids)
	if !ok {
		return merged
	}
	return reordered
}

const rerankSystemPrompt = "You re-rank search results. Reply with a JSON array of source ids ordered " +
	"from most to least relevant. Reply with the array only."

func buildRerankPrompt(query string, hits []domain.Hit) string {
	var sb strings.Builder
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nResults:\n")
	for _, h := range hits {
		fmt.Fprintf(&sb, "- id=%s: %s\n", h.SourceID, h.Snippet)
	}
	return sb.String()
}

// parseRankOrder accepts a JSON array of ids, or a comma-separated list as a
// fallback for sloppy model output.
func parseRankOrder(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var ids []string
	if err := json.Unmarshal([]byte(content), &ids); err == nil {
		return ids, nil
	}

	parts := strings.Split(content, ",")
	ids = ids[:0]
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p == "" {
			continue
		}
		ids = append(ids, p)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids in rerank output %q", content)
	}
	return ids, nil
}

// applyRankOrder reorders hits by the given ids; unknown ids or duplicates
// invalidate the whole permutation. Hits not named keep their relative order
// after the named ones.
func applyRankOrder(hits []domain.Hit, ids []string) ([]domain.Hit, bool) {
	byID := make(map[string]domain.Hit, len(hits))
	for _, h := range hits {
		byID[h.SourceID] = h
	}

	out := make([]domain.Hit, 0, len(hits))
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		h, ok := byID[id]
		if !ok || taken[id] {
			return nil, false
		}
		taken[id] = true
		out = append(out, h)
	}
	for _, h := range hits {
		if !taken[h.SourceID] {
			out = append(out, h)
		}
	}
	return out, true
}

func observeBranch(branch string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchBranchTotal.WithLabelValues(branch, status).Inc()
}
