// Package router picks the serving provider for a request and defines the
// fallback order tried when one fails.
package router

import (
	"fmt"

	"github.com/kailas-cloud/aigate/internal/domain"
)

// maxHops bounds a fallback walk; the longest legal chain is
// Secondary → Primary → Local.
const maxHops = 3

// Config tunes routing policy.
type Config struct {
	// HasSecondary reports whether a secondary provider is configured.
	// When false, routes and fallbacks that would pick it use Primary.
	HasSecondary bool

	// FreePrimaryQuota is the free tier's daily allowance on the primary
	// provider before requests drop to the local responder.
	// domain.Unlimited disables the drop.
	FreePrimaryQuota int64

	// EnterprisePrefs maps task types to preferred providers for the
	// enterprise tier. Missing types use Primary.
	EnterprisePrefs map[domain.RequestType]domain.ProviderID

	// Fallback overrides the hop taken after each provider fails.
	// Empty means the default Secondary → Primary → Local chain.
	Fallback map[domain.ProviderID]domain.ProviderID
}

// DefaultEnterprisePrefs routes generative-heavy tasks to the secondary
// provider and everything else to the primary.
func DefaultEnterprisePrefs() map[domain.RequestType]domain.ProviderID {
	return map[domain.RequestType]domain.ProviderID{
		domain.TypeCreative: domain.ProviderSecondary,
		domain.TypeCode:     domain.ProviderSecondary,
		domain.TypeAnalysis: domain.ProviderSecondary,
	}
}

func defaultFallback() map[domain.ProviderID]domain.ProviderID {
	return map[domain.ProviderID]domain.ProviderID{
		domain.ProviderSecondary: domain.ProviderPrimary,
		domain.ProviderPrimary:   domain.ProviderLocal,
	}
}

// Router applies tier/task selection policy and the fallback chain.
type Router struct {
	hasSecondary    bool
	freeQuota       int64
	enterprisePrefs map[domain.RequestType]domain.ProviderID
	fallback        map[domain.ProviderID]domain.ProviderID
}

// New creates a router. Call ValidateChain before serving traffic.
func New(cfg Config) *Router {
	prefs := cfg.EnterprisePrefs
	if prefs == nil {
		prefs = DefaultEnterprisePrefs()
	}
	fb := cfg.Fallback
	if len(fb) == 0 {
		fb = defaultFallback()
	}
	return &Router{
		hasSecondary:    cfg.HasSecondary,
		freeQuota:       cfg.FreePrimaryQuota,
		enterprisePrefs: prefs,
		fallback:        fb,
	}
}

// Select returns the first provider to try. primaryUsedToday is the user's
// request count on the primary provider for the current UTC day.
func (r *Router) Select(tier domain.Tier, reqType domain.RequestType, primaryUsedToday int64) domain.ProviderID {
	// Embeddings only exist upstream; the local responder cannot produce
	// vectors, so this type always starts at Primary.
	if reqType == domain.TypeEmbedding {
		return domain.ProviderPrimary
	}

	switch tier {
	case domain.TierEnterprise:
		if pref, ok := r.enterprisePrefs[reqType]; ok {
			return r.resolve(pref)
		}
		return domain.ProviderPrimary

	case domain.TierPro:
		if reqType == domain.TypeCreative || reqType == domain.TypeCode {
			return r.resolve(domain.ProviderSecondary)
		}
		return domain.ProviderPrimary

	default:
		if r.freeQuota != domain.Unlimited && primaryUsedToday >= r.freeQuota {
			return domain.ProviderLocal
		}
		return domain.ProviderPrimary
	}
}

// FallbackOf returns the next provider to try after id failed, or false at
// the end of the chain.
func (r *Router) FallbackOf(id domain.ProviderID) (domain.ProviderID, bool) {
	next, ok := r.fallback[id]
	if !ok {
		return domain.ProviderNone, false
	}
	return r.resolve(next), true
}

// resolve downgrades Secondary to Primary when no secondary is configured.
func (r *Router) resolve(id domain.ProviderID) domain.ProviderID {
	if id == domain.ProviderSecondary && !r.hasSecondary {
		return domain.ProviderPrimary
	}
	return id
}

// ValidateChain checks every fallback walk is finite, acyclic and ends at
// the local responder. A bad chain is a startup error, not a runtime hang.
func (r *Router) ValidateChain() error {
	for _, start := range []domain.ProviderID{
		domain.ProviderPrimary, domain.ProviderSecondary, domain.ProviderLocal,
	} {
		if err := r.walk(r.resolve(start)); err != nil {
			return fmt.Errorf("fallback chain from %s: %w", start, err)
		}
	}
	return nil
}

func (r *Router) walk(start domain.ProviderID) error {
	cur := start
	visited := map[domain.ProviderID]bool{cur: true}
	for hop := 0; hop < maxHops; hop++ {
		if cur == domain.ProviderLocal {
			return nil
		}
		next, ok := r.FallbackOf(cur)
		if !ok {
			return fmt.Errorf("dead end at %s before reaching local", cur)
		}
		if visited[next] {
			return fmt.Errorf("cycle through %s", next)
		}
		visited[next] = true
		cur = next
	}
	if cur == domain.ProviderLocal {
		return nil
	}
	return fmt.Errorf("does not terminate within %d hops", maxHops)
}
