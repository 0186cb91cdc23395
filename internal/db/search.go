package db

// Filter is an exact-tag pre-filter applied to both lexical and vector
// queries. Keys are index field names, values the required tag.
type Filter struct {
	Tags map[string]string
}

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool { return len(f.Tags) == 0 }

// TextQuery is the input for a BM25 lexical search.
type TextQuery struct {
	IndexName    string
	Query        string
	Filter       Filter
	TopK         int
	ReturnFields []string
	Fuzzy        bool   // wrap terms in %...% for Levenshtein matching
	Highlight    string // field name to highlight, empty disables
}

// KNNQuery is the input for a vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filter       Filter
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. For KNN searches Score is cosine
// similarity in [0,1]; for BM25 it is the raw backend score.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
