package domain

// SearchMethod identifies which retrieval branch produced a hit.
type SearchMethod string

const (
	MethodLexical SearchMethod = "lexical"
	MethodVector  SearchMethod = "vector"
	MethodMerged  SearchMethod = "merged"
)

// SearchFilter scopes a search to an owner, knowledge base and file type.
// Zero-value fields are unconstrained.
type SearchFilter struct {
	OwnerID  string
	KBID     string
	FileType string
}

// Hit is one retrieval result. Hits for the same SourceID from different
// branches are merged before reaching callers.
type Hit struct {
	SourceID  string       `json:"source_id"`
	Method    SearchMethod `json:"method"`
	Score     float64      `json:"score"`
	Snippet   string       `json:"snippet"`
	Highlight string       `json:"highlight,omitempty"`
}
