package retrieval

import (
	"testing"

	"github.com/kailas-cloud/aigate/internal/domain"
)

func lexHit(id string, score float64) domain.Hit {
	return domain.Hit{SourceID: id, Method: domain.MethodLexical, Score: score, Snippet: "lex " + id, Highlight: "<em>" + id + "</em>"}
}

func vecHit(id string, score float64) domain.Hit {
	return domain.Hit{SourceID: id, Method: domain.MethodVector, Score: score, Snippet: "vec " + id}
}

// The dedup rule: a source in both sets becomes one merged entry with the
// max of the two method-local scores and the lexical highlight.
func TestMerge_DuplicateSource(t *testing.T) {
	lexical := []domain.Hit{lexHit("7", 0.8)}
	vector := []domain.Hit{vecHit("7", 0.6)}

	got := mergeHits(lexical, vector, 10)
	if len(got) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(got))
	}
	h := got[0]
	if h.SourceID != "7" || h.Method != domain.MethodMerged {
		t.Errorf("hit=%+v", h)
	}
	if h.Score != 0.8 {
		t.Errorf("score=%v, want max of both (0.8)", h.Score)
	}
	if h.Highlight != "<em>7</em>" {
		t.Errorf("highlight=%q, merged entry must keep the lexical highlight", h.Highlight)
	}
}

func TestMerge_UnmatchedKeepMethodTags(t *testing.T) {
	got := mergeHits([]domain.Hit{lexHit("a", 0.5)}, []domain.Hit{vecHit("b", 0.9)}, 10)

	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].SourceID != "b" || got[0].Method != domain.MethodVector {
		t.Errorf("first=%+v, want vector b (higher score)", got[0])
	}
	if got[1].SourceID != "a" || got[1].Method != domain.MethodLexical {
		t.Errorf("second=%+v", got[1])
	}
}

func TestMerge_SortsDescendingAndTruncates(t *testing.T) {
	lexical := []domain.Hit{lexHit("a", 0.2), lexHit("b", 0.9)}
	vector := []domain.Hit{vecHit("c", 0.5), vecHit("d", 0.7)}

	got := mergeHits(lexical, vector, 3)
	if len(got) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("not sorted: %v", got)
		}
	}
	if got[0].SourceID != "b" {
		t.Errorf("top=%+v", got[0])
	}
}

// Multiple chunks of the same file in the vector branch collapse to the best
// chunk and stay tagged vector, not merged.
func TestMerge_VectorChunksSameFile(t *testing.T) {
	vector := []domain.Hit{vecHit("f1", 0.6), vecHit("f1", 0.9), vecHit("f1", 0.3)}

	got := mergeHits(nil, vector, 10)
	if len(got) != 1 {
		t.Fatalf("expected one entry, got %d", len(got))
	}
	if got[0].Method != domain.MethodVector || got[0].Score != 0.9 {
		t.Errorf("hit=%+v", got[0])
	}
}

func TestMerge_PureFunction(t *testing.T) {
	lexical := []domain.Hit{lexHit("7", 0.8)}
	vector := []domain.Hit{vecHit("7", 0.6)}

	_ = mergeHits(lexical, vector, 10)

	if lexical[0].Method != domain.MethodLexical || vector[0].Method != domain.MethodVector {
		t.Error("inputs must not be modified")
	}

	again := mergeHits(lexical, vector, 10)
	if len(again) != 1 || again[0].Score != 0.8 {
		t.Error("merge must be deterministic over the same inputs")
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	if got := mergeHits(nil, nil, 10); len(got) != 0 {
		t.Errorf("expected empty output, got %v", got)
	}
	got := mergeHits(nil, []domain.Hit{vecHit("a", 0.4)}, 10)
	if len(got) != 1 || got[0].Method != domain.MethodVector {
		t.Errorf("got %v", got)
	}
}
