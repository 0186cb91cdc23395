// Package usage implements the per-user daily usage ledger on top of the
// counter store. All mutation is expressed as atomic remote increments, so
// correctness holds across concurrent workers and processes.
package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/db"
	"github.com/kailas-cloud/aigate/internal/domain"
)

// DefaultRetention keeps daily counters around for audit after the quota
// window has passed. The quota window itself is always the UTC calendar day.
const DefaultRetention = 7 * 24 * time.Hour

// store is the consumer interface for ledger operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	DecrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Snapshot is a read-only view of one user's counters for the current UTC day.
type Snapshot struct {
	Day        string
	Requests   int64
	Tokens     int64
	ByProvider map[string]int64
}

// Ledger tracks per-user, per-day request and token counters against tier
// daily limits.
type Ledger struct {
	store     store
	limits    map[domain.Tier]int64
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a ledger. limits maps each tier to its daily request limit;
// domain.Unlimited disables the check for that tier.
func New(s store, limits map[domain.Tier]int64, retention time.Duration, logger *zap.Logger) *Ledger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Ledger{
		store:     s,
		limits:    limits,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Reserve counts one request against the user's daily quota. The check is
// increment-then-compare: the increment is atomic on the store, and an
// over-limit increment is rolled back before the denial is returned, so two
// racing requests can never both slip past the last free slot.
func (l *Ledger) Reserve(ctx context.Context, userID string, tier domain.Tier) error {
	key := l.key(userID, "requests")

	n, err := l.store.IncrBy(ctx, key, 1)
	if err != nil {
		return fmt.Errorf("reserve %s: %w", key, err)
	}
	l.touch(ctx, key)

	limit := l.limits[tier]
	if limit == domain.Unlimited {
		return nil
	}
	if n > limit {
		if _, err := l.store.DecrBy(ctx, key, 1); err != nil {
			l.logger.Warn("Failed to roll back over-limit reservation",
				zap.String("key", key), zap.Error(err))
		}
		return domain.NewQuotaError(limit, n-1, l.now())
	}
	return nil
}

// Commit attributes consumed tokens and the serving provider to the user's
// daily counters. Called after every terminal success, including degraded
// completions (which commit zero tokens).
func (l *Ledger) Commit(ctx context.Context, userID string, provider domain.ProviderID, tokens int64) error {
	tokensKey := l.key(userID, "tokens")
	if _, err := l.store.IncrBy(ctx, tokensKey, tokens); err != nil {
		return fmt.Errorf("commit %s: %w", tokensKey, err)
	}
	l.touch(ctx, tokensKey)

	provKey := l.key(userID, provider.String())
	if _, err := l.store.IncrBy(ctx, provKey, 1); err != nil {
		return fmt.Errorf("commit %s: %w", provKey, err)
	}
	l.touch(ctx, provKey)

	return nil
}

// ProviderCount returns how many requests the given provider served for the
// user today. The router uses this for the free-tier sub-quota.
func (l *Ledger) ProviderCount(ctx context.Context, userID string, provider domain.ProviderID) (int64, error) {
	return l.get(ctx, l.key(userID, provider.String()))
}

// Snapshot reads all of the user's counters for the current UTC day.
func (l *Ledger) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	snap := Snapshot{
		Day:        l.day(),
		ByProvider: make(map[string]int64, 3),
	}

	var err error
	if snap.Requests, err = l.get(ctx, l.key(userID, "requests")); err != nil {
		return Snapshot{}, err
	}
	if snap.Tokens, err = l.get(ctx, l.key(userID, "tokens")); err != nil {
		return Snapshot{}, err
	}
	for _, p := range []domain.ProviderID{domain.ProviderPrimary, domain.ProviderSecondary, domain.ProviderLocal} {
		n, err := l.get(ctx, l.key(userID, p.String()))
		if err != nil {
			return Snapshot{}, err
		}
		if n > 0 {
			snap.ByProvider[p.String()] = n
		}
	}
	return snap, nil
}

// Limit returns the daily request limit for a tier (domain.Unlimited when uncapped).
func (l *Ledger) Limit(tier domain.Tier) int64 { return l.limits[tier] }

func (l *Ledger) get(ctx context.Context, key string) (int64, error) {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage GET %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage GET %s parse: %w", key, err)
	}
	return n, nil
}

// touch sets the retention TTL if the key has none yet (EXPIRE NX), so the
// audit window starts at first write and is not reset on repeat.
func (l *Ledger) touch(ctx context.Context, key string) {
	if err := l.store.Expire(ctx, key, l.retention, true); err != nil {
		l.logger.Warn("Failed to set retention TTL", zap.String("key", key), zap.Error(err))
	}
}

func (l *Ledger) day() string {
	return l.now().UTC().Format("2006-01-02")
}

func (l *Ledger) key(userID, counter string) string {
	return fmt.Sprintf("%susage:%s:%s:%s", domain.KeyPrefix, userID, l.day(), counter)
}
