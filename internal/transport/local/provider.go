// Package local is the terminal fallback responder. It runs in-process,
// needs no network and never fails a completion, which is what makes the
// fallback chain terminate.
package local

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/aigate/internal/domain"
)

// Apology is the fixed degraded completion body.
const Apology = "I'm sorry, the AI service is temporarily operating in degraded mode. " +
	"Your request was received but could not be processed with full quality. " +
	"Please try again later."

// Provider is the degraded local responder.
type Provider struct{}

// New creates the local responder.
func New() *Provider { return &Provider{} }

// Complete always succeeds with the fixed apology and zero token usage.
func (p *Provider) Complete(_ context.Context, _ domain.CompletionRequest) (domain.Completion, error) {
	return domain.Completion{Content: Apology, TokensUsed: 0}, nil
}

// Embed has no local implementation; callers degrade to lexical-only
// retrieval instead of indexing garbage vectors.
func (p *Provider) Embed(_ context.Context, _ string) (domain.Embedding, error) {
	return domain.Embedding{}, fmt.Errorf("local responder cannot embed: %w", domain.ErrProviderUnavailable)
}
