package aigate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/aigate/internal/db/redis"
	"github.com/kailas-cloud/aigate/internal/domain"
	"github.com/kailas-cloud/aigate/internal/repository/docindex"
	"github.com/kailas-cloud/aigate/internal/repository/respcache"
	usagerepo "github.com/kailas-cloud/aigate/internal/repository/usage"
	localProv "github.com/kailas-cloud/aigate/internal/transport/local"
	openaiProv "github.com/kailas-cloud/aigate/internal/transport/openai"
	"github.com/kailas-cloud/aigate/internal/upstream"
	dispatchuc "github.com/kailas-cloud/aigate/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/aigate/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/aigate/internal/usecase/indexer"
	retrievaluc "github.com/kailas-cloud/aigate/internal/usecase/retrieval"
	"github.com/kailas-cloud/aigate/internal/usecase/router"
	usageuc "github.com/kailas-cloud/aigate/internal/usecase/usage"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces so tests can substitute the use cases.
type dispatchUseCase interface {
	Process(ctx context.Context, req *domain.AIRequest) (domain.AIResponse, error)
}

type searchUseCase interface {
	Search(ctx context.Context, req retrievaluc.Request) (retrievaluc.Response, error)
}

type indexUseCase interface {
	IndexFile(ctx context.Context, fileID string) (indexeruc.Stats, error)
	DeleteFile(ctx context.Context, fileID string) error
}

type usageUseCase interface {
	Report(ctx context.Context, userID string, tier domain.Tier) (usageuc.Report, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the aigate SDK entry point.
type Client struct {
	store      *dbRedis.Store
	dispatchUC dispatchUseCase
	searchUC   searchUseCase
	indexUC    indexUseCase
	usageUC    usageUseCase
	healthUC   healthUseCase
	obs        *observer
}

// New creates an aigate Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		freePrimaryQuota: 25,
		retention:        7 * 24 * time.Hour,
		chunkSize:        1200,
		chunkOverlap:     150,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("aigate: database address required (use WithRedis)")
	}
	if cfg.primary == nil {
		return nil, errors.New("aigate: primary provider required (use WithPrimary)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("aigate: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("aigate: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return wireClient(ctx, store, cfg, obs)
}

func wireClient(ctx context.Context, store *dbRedis.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	// Internal services log through zap; the SDK surfaces its own
	// observability via the observer instead.
	zlog := zap.NewNop()

	primary := openaiProv.New(&openaiProv.Config{
		APIKey:         cfg.primary.APIKey,
		BaseURL:        cfg.primary.BaseURL,
		ChatModel:      cfg.primary.ChatModel,
		EmbeddingModel: cfg.primary.EmbeddingModel,
		Dimensions:     cfg.primary.Dimensions,
		Logger:         zlog,
	})
	registry := dispatchuc.Registry{Primary: primary, Local: localProv.New()}
	if cfg.secondary != nil {
		registry.Secondary = openaiProv.New(&openaiProv.Config{
			APIKey:         cfg.secondary.APIKey,
			BaseURL:        cfg.secondary.BaseURL,
			ChatModel:      cfg.secondary.ChatModel,
			EmbeddingModel: cfg.secondary.EmbeddingModel,
			Dimensions:     cfg.secondary.Dimensions,
			Logger:         zlog,
		})
	}

	rt := router.New(router.Config{
		HasSecondary:     cfg.secondary != nil,
		FreePrimaryQuota: cfg.freePrimaryQuota,
	})
	if err := rt.ValidateChain(); err != nil {
		store.Close()
		return nil, fmt.Errorf("aigate: %w", err)
	}

	limits, err := parseTierLimits(cfg.tierLimits)
	if err != nil {
		store.Close()
		return nil, err
	}
	ledger := usagerepo.New(store, limits, cfg.retention, zlog)
	cache := respcache.New(store, nil, nil, zlog)
	dispatcher := dispatchuc.New(ledger, cache, rt, registry, cfg.attemptTimeout, zlog)

	lexical := docindex.NewLexical(store)
	vector := docindex.NewVector(store, cfg.primary.Dimensions)
	if err := lexical.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("aigate: create document index: %w", err)
	}
	if err := vector.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("aigate: create chunk index: %w", err)
	}

	var files upstream.FileReader = noopFiles{}
	if cfg.files != nil {
		files = &fileReaderAdapter{inner: cfg.files}
	}

	return &Client{
		store:      store,
		dispatchUC: dispatcher,
		searchUC:   retrievaluc.New(lexical, vector, dispatcher, cfg.minScore, zlog),
		indexUC:    indexeruc.New(files, lexical, vector, primary, cfg.chunkSize, cfg.chunkOverlap, zlog),
		usageUC:    usageuc.New(ledger),
		healthUC:   healthuc.New(store, map[string]healthuc.ProviderChecker{"primary": primary}),
		obs:        obs,
	}, nil
}

func parseTierLimits(overrides map[string]int64) (map[domain.Tier]int64, error) {
	limits := map[domain.Tier]int64{
		domain.TierFree:       50,
		domain.TierPro:        500,
		domain.TierEnterprise: domain.Unlimited,
	}
	for name, limit := range overrides {
		tier, err := domain.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("aigate: %w", err)
		}
		if limit < 0 {
			limit = domain.Unlimited
		}
		limits[tier] = limit
	}
	return limits, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Dispatch runs one AI request through quota, cache and the provider chain.
func (c *Client) Dispatch(ctx context.Context, req DispatchRequest) (_ DispatchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("dispatch", start, err) }()

	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidRequest)
	}
	aiReq, err := domain.NewAIRequest(
		req.UserID, tier, domain.RequestType(req.Type),
		req.Content, req.System, req.Temperature, req.MaxTokens, req.Context,
	)
	if err != nil {
		return DispatchResult{}, err
	}

	resp, err := c.dispatchUC.Process(ctx, &aiReq)
	if err != nil {
		return DispatchResult{}, err
	}
	return DispatchResult{
		Content:        resp.Content,
		Provider:       resp.Provider,
		TokensUsed:     resp.TokensUsed,
		ProcessingTime: resp.ProcessingTime,
		Degraded:       resp.Degraded,
		DegradedNote:   resp.DegradedNote,
	}, nil
}

// Search runs a hybrid lexical + vector query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (_ SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		return SearchResult{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidRequest)
	}

	resp, err := c.searchUC.Search(ctx, retrievaluc.Request{
		UserID: req.UserID,
		Tier:   tier,
		Query:  req.Query,
		Filter: domain.SearchFilter{
			OwnerID:  req.OwnerID,
			KBID:     req.KBID,
			FileType: req.FileType,
		},
		Limit:  req.Limit,
		Rerank: req.Rerank,
	})
	if err != nil {
		return SearchResult{}, err
	}

	hits := make([]SearchHit, 0, len(resp.Results))
	for _, h := range resp.Results {
		hits = append(hits, SearchHit{
			SourceID:  h.SourceID,
			Method:    string(h.Method),
			Score:     h.Score,
			Snippet:   h.Snippet,
			Highlight: h.Highlight,
		})
	}
	return SearchResult{
		Hits:    hits,
		Total:   resp.Total,
		Elapsed: resp.Elapsed,
		Partial: resp.Partial,
	}, nil
}

// IndexFile chunks, embeds and indexes one file.
func (c *Client) IndexFile(ctx context.Context, fileID string) (_ IndexStats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_file", start, err) }()

	stats, err := c.indexUC.IndexFile(ctx, fileID)
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{Chunks: stats.Chunks, Skipped: stats.Skipped}, nil
}

// RemoveFile drops a file from both search indexes.
func (c *Client) RemoveFile(ctx context.Context, fileID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("remove_file", start, err) }()

	return c.indexUC.DeleteFile(ctx, fileID)
}

// Usage returns a user's consumption for the current UTC day.
func (c *Client) Usage(ctx context.Context, userID, tier string) (_ UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	t, err := domain.ParseTier(tier)
	if err != nil {
		return UsageReport{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidRequest)
	}
	report, err := c.usageUC.Report(ctx, userID, t)
	if err != nil {
		return UsageReport{}, err
	}
	return UsageReport{
		UserID:     report.UserID,
		Tier:       report.Tier,
		Day:        report.Day,
		Requests:   report.Requests,
		Tokens:     report.Tokens,
		Limit:      report.Limit,
		Remaining:  report.Remaining,
		ByProvider: report.ByProvider,
	}, nil
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthUC.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// fileReaderAdapter wraps the public FileReader to satisfy upstream.FileReader.
type fileReaderAdapter struct {
	inner FileReader
}

func (a *fileReaderAdapter) Content(ctx context.Context, fileID string) (upstream.FileContent, error) {
	f, err := a.inner.Content(ctx, fileID)
	if err != nil {
		return upstream.FileContent{}, fmt.Errorf("file content: %w", err)
	}
	return upstream.FileContent{
		ID:       f.ID,
		Name:     f.Name,
		Text:     f.Text,
		OwnerID:  f.OwnerID,
		KBID:     f.KBID,
		FileType: f.FileType,
	}, nil
}

// noopFiles fails the read (used when no file reader configured).
type noopFiles struct{}

func (noopFiles) Content(_ context.Context, _ string) (upstream.FileContent, error) {
	return upstream.FileContent{}, errors.New(
		"aigate: file reader not configured (use WithFiles for indexing)",
	)
}
