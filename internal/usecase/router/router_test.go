package router

import (
	"testing"

	"github.com/kailas-cloud/aigate/internal/domain"
)

func newTestRouter(hasSecondary bool) *Router {
	return New(Config{HasSecondary: hasSecondary, FreePrimaryQuota: 50})
}

func TestSelect_FreeTier(t *testing.T) {
	r := newTestRouter(true)

	tests := []struct {
		name        string
		primaryUsed int64
		want        domain.ProviderID
	}{
		{"fresh user", 0, domain.ProviderPrimary},
		{"under sub-quota", 49, domain.ProviderPrimary},
		{"at sub-quota", 50, domain.ProviderLocal},
		{"over sub-quota", 120, domain.ProviderLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Select(domain.TierFree, domain.TypeChat, tt.primaryUsed)
			if got != tt.want {
				t.Errorf("Select = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSelect_ProTaskRouting(t *testing.T) {
	r := newTestRouter(true)

	if got := r.Select(domain.TierPro, domain.TypeCreative, 0); got != domain.ProviderSecondary {
		t.Errorf("creative → %s, want secondary", got)
	}
	if got := r.Select(domain.TierPro, domain.TypeCode, 0); got != domain.ProviderSecondary {
		t.Errorf("code → %s, want secondary", got)
	}
	if got := r.Select(domain.TierPro, domain.TypeChat, 0); got != domain.ProviderPrimary {
		t.Errorf("chat → %s, want primary", got)
	}
}

func TestSelect_ProWithoutSecondary(t *testing.T) {
	r := newTestRouter(false)

	if got := r.Select(domain.TierPro, domain.TypeCreative, 0); got != domain.ProviderPrimary {
		t.Errorf("creative without secondary → %s, want primary", got)
	}
}

func TestSelect_EnterprisePreferenceTable(t *testing.T) {
	r := newTestRouter(true)

	if got := r.Select(domain.TierEnterprise, domain.TypeAnalysis, 0); got != domain.ProviderSecondary {
		t.Errorf("analysis → %s, want secondary", got)
	}
	if got := r.Select(domain.TierEnterprise, domain.TypeChat, 0); got != domain.ProviderPrimary {
		t.Errorf("chat → %s, want primary", got)
	}
	// enterprise never drops to local on usage
	if got := r.Select(domain.TierEnterprise, domain.TypeChat, 1_000_000); got != domain.ProviderPrimary {
		t.Errorf("high usage → %s, want primary", got)
	}
}

func TestSelect_EmbeddingAlwaysPrimary(t *testing.T) {
	r := newTestRouter(true)

	for _, tier := range []domain.Tier{domain.TierFree, domain.TierPro, domain.TierEnterprise} {
		if got := r.Select(tier, domain.TypeEmbedding, 999); got != domain.ProviderPrimary {
			t.Errorf("tier %s embedding → %s, want primary", tier, got)
		}
	}
}

func TestFallbackOf_DefaultChain(t *testing.T) {
	r := newTestRouter(true)

	next, ok := r.FallbackOf(domain.ProviderSecondary)
	if !ok || next != domain.ProviderPrimary {
		t.Errorf("secondary → %s (%v), want primary", next, ok)
	}
	next, ok = r.FallbackOf(domain.ProviderPrimary)
	if !ok || next != domain.ProviderLocal {
		t.Errorf("primary → %s (%v), want local", next, ok)
	}
	if _, ok := r.FallbackOf(domain.ProviderLocal); ok {
		t.Error("local must be terminal")
	}
}

func TestValidateChain_DefaultIsValid(t *testing.T) {
	for _, hasSecondary := range []bool{true, false} {
		r := newTestRouter(hasSecondary)
		if err := r.ValidateChain(); err != nil {
			t.Errorf("hasSecondary=%v: %v", hasSecondary, err)
		}
	}
}

func TestValidateChain_RejectsCycle(t *testing.T) {
	r := New(Config{
		HasSecondary: true,
		Fallback: map[domain.ProviderID]domain.ProviderID{
			domain.ProviderPrimary:   domain.ProviderSecondary,
			domain.ProviderSecondary: domain.ProviderPrimary,
		},
	})

	if err := r.ValidateChain(); err == nil {
		t.Fatal("expected cyclic chain to be rejected")
	}
}

func TestValidateChain_RejectsDeadEnd(t *testing.T) {
	r := New(Config{
		HasSecondary: true,
		Fallback: map[domain.ProviderID]domain.ProviderID{
			domain.ProviderSecondary: domain.ProviderPrimary,
			// primary has no hop and never reaches local
		},
	})

	if err := r.ValidateChain(); err == nil {
		t.Fatal("expected dead-end chain to be rejected")
	}
}

// The chain property: any walk reaches the terminal local responder in at
// most three hops.
func TestChainTerminatesWithinThreeHops(t *testing.T) {
	r := newTestRouter(true)

	for _, start := range []domain.ProviderID{
		domain.ProviderSecondary, domain.ProviderPrimary, domain.ProviderLocal,
	} {
		cur := start
		hops := 0
		for cur != domain.ProviderLocal {
			next, ok := r.FallbackOf(cur)
			if !ok {
				t.Fatalf("chain from %s dead-ends at %s", start, cur)
			}
			cur = next
			hops++
			if hops > 3 {
				t.Fatalf("chain from %s exceeds 3 hops", start)
			}
		}
	}
}
