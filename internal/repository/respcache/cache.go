// Package respcache stores completed AI responses keyed by the request
// fingerprint so identical requests within a TTL window are served without
// touching a provider.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/db"
	"github.com/kailas-cloud/aigate/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "resp_cache:"

// DefaultTTL applies to request types without an explicit TTL entry.
const DefaultTTL = 5 * time.Minute

// DefaultTTLs returns per-type freshness windows. Classification results are
// stable, chat is conversational and goes stale fast.
func DefaultTTLs() map[domain.RequestType]time.Duration {
	return map[domain.RequestType]time.Duration{
		domain.TypeClassification: 2 * time.Hour,
		domain.TypeAnalysis:       1 * time.Hour,
		domain.TypeSummarization:  30 * time.Minute,
		domain.TypeChat:           5 * time.Minute,
		domain.TypeTranslation:    24 * time.Hour,
	}
}

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a read-through response cache over a key-value store.
// Store failures degrade to misses and are never surfaced to callers.
type Cache struct {
	store      store
	ttls       map[domain.RequestType]time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a response cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	s store,
	ttls map[domain.RequestType]time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	if ttls == nil {
		ttls = DefaultTTLs()
	}
	return &Cache{
		store:      s,
		ttls:       ttls,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Lookup returns the cached response for an equivalent earlier request, if
// one is still fresh.
func (c *Cache) Lookup(ctx context.Context, req *domain.AIRequest) (*domain.AIResponse, bool) {
	key := c.cacheKey(req)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return nil, false
	}

	var resp domain.AIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return nil, false
	}

	c.incCache("hit")
	return &resp, true
}

// Store caches a response under the request fingerprint with the TTL for its
// request type. Errors are logged and swallowed.
func (c *Cache) Store(ctx context.Context, req *domain.AIRequest, resp *domain.AIResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("Failed to encode response for cache", zap.Error(err))
		return
	}

	key := c.cacheKey(req)
	if err := c.store.SetWithTTL(ctx, key, data, c.TTL(req.Type())); err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

// TTL returns the freshness window for a request type.
func (c *Cache) TTL(rt domain.RequestType) time.Duration {
	if ttl, ok := c.ttls[rt]; ok {
		return ttl
	}
	return DefaultTTL
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey fingerprints everything that can change the response. Context
// pairs are hashed in sorted key order so map iteration order never splits
// equivalent requests across keys.
func (c *Cache) cacheKey(req *domain.AIRequest) string {
	var sb strings.Builder
	sb.WriteString(string(req.Type()))
	sb.WriteByte('|')
	sb.WriteString(req.Content())
	sb.WriteByte('|')
	sb.WriteString(req.System())
	sb.WriteByte('|')
	fmt.Fprintf(&sb, "%.2f|%d", req.Temperature(), req.MaxTokens())

	ctxData := req.Context()
	keys := make([]string, 0, len(ctxData))
	for k := range ctxData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(ctxData[k])
	}

	h := sha256.Sum256([]byte(sb.String()))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}
