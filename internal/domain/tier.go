package domain

import "fmt"

// Tier is a user's service level. Tiers are ordered: Free < Pro < Enterprise.
type Tier int

const (
	// TierFree is the default no-cost tier.
	TierFree Tier = iota
	// TierPro is the paid tier with task-aware routing.
	TierPro
	// TierEnterprise is the unmetered tier with best-provider routing.
	TierEnterprise
)

// Unlimited is the sentinel daily limit for tiers without a request cap.
// It is a marker, not a large number, so limit arithmetic never overflows.
const Unlimited int64 = -1

// ParseTier converts a wire-format tier name.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "free":
		return TierFree, nil
	case "pro":
		return TierPro, nil
	case "enterprise":
		return TierEnterprise, nil
	}
	return TierFree, fmt.Errorf("unknown tier %q: %w", s, ErrInvalidRequest)
}

// String returns the wire-format tier name.
func (t Tier) String() string {
	switch t {
	case TierPro:
		return "pro"
	case TierEnterprise:
		return "enterprise"
	default:
		return "free"
	}
}

// AtLeast reports whether t is at or above the given tier.
func (t Tier) AtLeast(other Tier) bool { return t >= other }
