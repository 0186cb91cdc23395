package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/aigate/internal/domain"
	usagerepo "github.com/kailas-cloud/aigate/internal/repository/usage"
)

type mockLedger struct {
	snapshotFn func(ctx context.Context, userID string) (usagerepo.Snapshot, error)
	limitFn    func(tier domain.Tier) int64
}

func (m *mockLedger) Snapshot(ctx context.Context, userID string) (usagerepo.Snapshot, error) {
	return m.snapshotFn(ctx, userID)
}

func (m *mockLedger) Limit(tier domain.Tier) int64 { return m.limitFn(tier) }

func TestReport_FreeTier(t *testing.T) {
	ledger := &mockLedger{
		snapshotFn: func(_ context.Context, userID string) (usagerepo.Snapshot, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return usagerepo.Snapshot{
				Day:        "2026-03-14",
				Requests:   12,
				Tokens:     3400,
				ByProvider: map[string]int64{"primary": 10, "local": 2},
			}, nil
		},
		limitFn: func(tier domain.Tier) int64 { return 50 },
	}

	report, err := New(ledger).Report(context.Background(), "u1", domain.TierFree)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Requests != 12 || report.Tokens != 3400 {
		t.Errorf("counters = %d/%d, want 12/3400", report.Requests, report.Tokens)
	}
	if report.Limit != 50 || report.Remaining != 38 {
		t.Errorf("limit/remaining = %d/%d, want 50/38", report.Limit, report.Remaining)
	}
	if report.Day != "2026-03-14" {
		t.Errorf("day = %q", report.Day)
	}
	if report.ByProvider["primary"] != 10 {
		t.Errorf("by_provider = %v", report.ByProvider)
	}
}

func TestReport_RemainingClampedAtZero(t *testing.T) {
	ledger := &mockLedger{
		snapshotFn: func(_ context.Context, _ string) (usagerepo.Snapshot, error) {
			return usagerepo.Snapshot{Day: "2026-03-14", Requests: 57}, nil
		},
		limitFn: func(domain.Tier) int64 { return 50 },
	}

	report, err := New(ledger).Report(context.Background(), "u1", domain.TierFree)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", report.Remaining)
	}
}

func TestReport_EnterpriseUnlimited(t *testing.T) {
	ledger := &mockLedger{
		snapshotFn: func(_ context.Context, _ string) (usagerepo.Snapshot, error) {
			return usagerepo.Snapshot{Day: "2026-03-14", Requests: 9000}, nil
		},
		limitFn: func(domain.Tier) int64 { return domain.Unlimited },
	}

	report, err := New(ledger).Report(context.Background(), "u1", domain.TierEnterprise)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Limit != domain.Unlimited {
		t.Errorf("limit = %d, want unlimited", report.Limit)
	}
	if report.Remaining != 0 {
		t.Errorf("remaining should stay zero-valued for unlimited tiers, got %d", report.Remaining)
	}
}

func TestReport_SnapshotError(t *testing.T) {
	want := errors.New("redis down")
	ledger := &mockLedger{
		snapshotFn: func(_ context.Context, _ string) (usagerepo.Snapshot, error) {
			return usagerepo.Snapshot{}, want
		},
		limitFn: func(domain.Tier) int64 { return 50 },
	}

	_, err := New(ledger).Report(context.Background(), "u1", domain.TierFree)
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want wrapped %v", err, want)
	}
}
