package domain

// RequestType tags an AI request with the kind of work expected from the
// provider. It drives routing preference and cache TTL selection.
type RequestType string

const (
	// TypeChat is open-ended conversation.
	TypeChat RequestType = "chat"
	// TypeEmbedding is text vectorization.
	TypeEmbedding RequestType = "embedding"
	// TypeSummarization condenses a document.
	TypeSummarization RequestType = "summarization"
	// TypeClassification assigns labels.
	TypeClassification RequestType = "classification"
	// TypeTranslation translates between languages.
	TypeTranslation RequestType = "translation"
	// TypeAnalysis is structured content analysis.
	TypeAnalysis RequestType = "analysis"
	// TypeCreative is creative writing.
	TypeCreative RequestType = "creative"
	// TypeCode is code generation.
	TypeCode RequestType = "code"
	// TypeRerank rewrites search-result relevance.
	TypeRerank RequestType = "rerank"
)

// IsValid reports whether t is one of the known request types.
func (t RequestType) IsValid() bool {
	switch t {
	case TypeChat, TypeEmbedding, TypeSummarization, TypeClassification,
		TypeTranslation, TypeAnalysis, TypeCreative, TypeCode, TypeRerank:
		return true
	}
	return false
}
