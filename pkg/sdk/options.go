package aigate

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// ProviderSettings holds one OpenAI-compatible backend's connection settings.
type ProviderSettings struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int
}

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	primary   *ProviderSettings
	secondary *ProviderSettings

	tierLimits       map[string]int64
	freePrimaryQuota int64
	retention        time.Duration
	attemptTimeout   time.Duration

	chunkSize    int
	chunkOverlap int
	minScore     float64

	files FileReader

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisDB selects a logical Redis database.
func WithRedisDB(db int) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = db
	})
}

// WithPrimary sets the primary model provider. Required.
func WithPrimary(p ProviderSettings) Option {
	return optionFunc(func(c *clientConfig) {
		c.primary = &p
	})
}

// WithSecondary sets the optional secondary provider used for
// creative/code routing and as the head of the fallback chain.
func WithSecondary(p ProviderSettings) Option {
	return optionFunc(func(c *clientConfig) {
		c.secondary = &p
	})
}

// WithTierLimit overrides a tier's daily request limit.
// Tiers are "free", "pro", "enterprise"; -1 means unlimited.
func WithTierLimit(tier string, perDay int64) Option {
	return optionFunc(func(c *clientConfig) {
		if c.tierLimits == nil {
			c.tierLimits = make(map[string]int64)
		}
		c.tierLimits[tier] = perDay
	})
}

// WithFreePrimaryQuota sets the free tier's daily allowance on the
// primary provider before requests drop to the local responder.
func WithFreePrimaryQuota(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.freePrimaryQuota = n
	})
}

// WithAttemptTimeout bounds each single provider invocation.
func WithAttemptTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.attemptTimeout = d
	})
}

// WithChunking sets the target chunk size and overlap used when
// indexing files. Defaults: 1200/150.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithMinVectorScore drops vector search hits below the given cosine
// similarity.
func WithMinVectorScore(score float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minScore = score
	})
}

// WithFiles sets the file content source used by IndexFile.
// Without it, indexing operations fail.
func WithFiles(fr FileReader) Option {
	return optionFunc(func(c *clientConfig) {
		c.files = fr
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
