// Package usage builds the per-user daily usage report.
package usage

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/aigate/internal/domain"
	usagerepo "github.com/kailas-cloud/aigate/internal/repository/usage"
)

// LedgerReader provides read-only access to the usage counters.
type LedgerReader interface {
	Snapshot(ctx context.Context, userID string) (usagerepo.Snapshot, error)
	Limit(tier domain.Tier) int64
}

// Report is the caller-facing view of today's consumption.
type Report struct {
	UserID     string           `json:"user_id"`
	Tier       string           `json:"tier"`
	Day        string           `json:"day"`
	Requests   int64            `json:"requests"`
	Tokens     int64            `json:"tokens"`
	Limit      int64            `json:"limit"` // -1 means unlimited
	Remaining  int64            `json:"remaining,omitempty"`
	ByProvider map[string]int64 `json:"by_provider,omitempty"`
}

// Service handles usage reporting.
type Service struct {
	ledger LedgerReader
}

// New creates a Service.
func New(ledger LedgerReader) *Service {
	return &Service{ledger: ledger}
}

// Report assembles today's usage for a user.
func (s *Service) Report(ctx context.Context, userID string, tier domain.Tier) (Report, error) {
	snap, err := s.ledger.Snapshot(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("usage snapshot: %w", err)
	}

	limit := s.ledger.Limit(tier)
	report := Report{
		UserID:     userID,
		Tier:       tier.String(),
		Day:        snap.Day,
		Requests:   snap.Requests,
		Tokens:     snap.Tokens,
		Limit:      limit,
		ByProvider: snap.ByProvider,
	}
	if limit != domain.Unlimited {
		remaining := limit - snap.Requests
		if remaining < 0 {
			remaining = 0
		}
		report.Remaining = remaining
	}
	return report, nil
}
