package retrieval

import (
	"sort"

	"github.com/kailas-cloud/aigate/internal/domain"
)

// mergeHits fuses the lexical and vector result sets by source id. A source
// present in both becomes one hit tagged merged, carrying the higher of the
// two method-local scores and the lexical highlight. The output is sorted by
// score descending and truncated to limit. Pure function; inputs are not
// modified.
func mergeHits(lexical, vector []domain.Hit, limit int) []domain.Hit {
	// Several chunks of one file can hit in the vector branch; collapse
	// each branch to its best score per source before cross-merging.
	lexical = dedupeBranch(lexical)
	vector = dedupeBranch(vector)

	merged := make(map[string]domain.Hit, len(lexical)+len(vector))
	order := make([]string, 0, len(lexical)+len(vector))

	for _, h := range lexical {
		order = append(order, h.SourceID)
		merged[h.SourceID] = h
	}

	for _, h := range vector {
		existing, seen := merged[h.SourceID]
		if !seen {
			order = append(order, h.SourceID)
			merged[h.SourceID] = h
			continue
		}
		fused := domain.Hit{
			SourceID:  h.SourceID,
			Method:    domain.MethodMerged,
			Score:     max(existing.Score, h.Score),
			Snippet:   existing.Snippet,
			Highlight: existing.Highlight,
		}
		if fused.Snippet == "" {
			fused.Snippet = h.Snippet
		}
		merged[h.SourceID] = fused
	}

	out := make([]domain.Hit, 0, len(merged))
	for _, id := range order {
		out = append(out, merged[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// dedupeBranch keeps one hit per source, preferring the highest score.
func dedupeBranch(hits []domain.Hit) []domain.Hit {
	best := make(map[string]domain.Hit, len(hits))
	order := make([]string, 0, len(hits))
	for _, h := range hits {
		existing, seen := best[h.SourceID]
		if !seen {
			order = append(order, h.SourceID)
			best[h.SourceID] = h
			continue
		}
		if h.Score > existing.Score {
			best[h.SourceID] = h
		}
	}
	out := make([]domain.Hit, 0, len(best))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}
