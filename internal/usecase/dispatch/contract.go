package dispatch

import (
	"context"

	"github.com/kailas-cloud/aigate/internal/domain"
)

// Ledger enforces and records daily usage.
type Ledger interface {
	Reserve(ctx context.Context, userID string, tier domain.Tier) error
	Commit(ctx context.Context, userID string, provider domain.ProviderID, tokens int64) error
	ProviderCount(ctx context.Context, userID string, provider domain.ProviderID) (int64, error)
}

// Cache serves and stores prior responses.
type Cache interface {
	Lookup(ctx context.Context, req *domain.AIRequest) (*domain.AIResponse, bool)
	Store(ctx context.Context, req *domain.AIRequest, resp *domain.AIResponse)
}

// Selector picks the first provider and the fallback order.
type Selector interface {
	Select(tier domain.Tier, reqType domain.RequestType, primaryUsedToday int64) domain.ProviderID
	FallbackOf(id domain.ProviderID) (domain.ProviderID, bool)
}

// Registry binds the closed provider set to implementations. Secondary may
// be nil when no secondary backend is configured.
type Registry struct {
	Primary   domain.Provider
	Secondary domain.Provider
	Local     domain.Provider
}

// Provider resolves an id to its implementation.
func (r Registry) Provider(id domain.ProviderID) (domain.Provider, bool) {
	switch id {
	case domain.ProviderPrimary:
		return r.Primary, r.Primary != nil
	case domain.ProviderSecondary:
		return r.Secondary, r.Secondary != nil
	case domain.ProviderLocal:
		return r.Local, r.Local != nil
	default:
		return nil, false
	}
}
