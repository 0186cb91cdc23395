package domain

import "context"

// ProviderID identifies one of the closed set of backends. Routing code
// switches exhaustively over these; there is no lookup by free-form name.
type ProviderID uint8

const (
	// ProviderNone is the zero value, never a valid routing target.
	ProviderNone ProviderID = iota
	// ProviderPrimary is the low-cost default backend.
	ProviderPrimary
	// ProviderSecondary is the optional premium backend for creative/code tasks.
	ProviderSecondary
	// ProviderLocal is the degraded in-process responder. It never fails.
	ProviderLocal
)

// String returns the wire-format provider name.
func (id ProviderID) String() string {
	switch id {
	case ProviderPrimary:
		return "primary"
	case ProviderSecondary:
		return "secondary"
	case ProviderLocal:
		return "local"
	default:
		return "none"
	}
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest carries the provider-facing parameters of a generative call.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completion is a provider's generative result.
type Completion struct {
	Content    string
	TokensUsed int
}

// Embedding is a provider's vectorization result.
type Embedding struct {
	Vector     []float32
	TokensUsed int
}

// Provider is the capability contract every backend implements.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Embed(ctx context.Context, text string) (Embedding, error)
}
