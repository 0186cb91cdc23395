// Package dispatch orchestrates one AI request: quota reservation, cache
// lookup, provider invocation with fallback, usage commit and cache write.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/domain"
	"github.com/kailas-cloud/aigate/internal/metrics"
)

// DefaultAttemptTimeout bounds a single provider invocation. Exceeding it
// advances the fallback chain, it is never retried at the same hop.
const DefaultAttemptTimeout = 30 * time.Second

// maxHops bounds the invocation loop against a misconfigured selector.
const maxHops = 4

const degradedNote = "response produced by a fallback provider; quality may be reduced"

// Service is the dispatch orchestrator.
type Service struct {
	ledger         Ledger
	cache          Cache
	selector       Selector
	providers      Registry
	attemptTimeout time.Duration
	logger         *zap.Logger
}

// New creates a dispatcher. attemptTimeout <= 0 uses DefaultAttemptTimeout.
func New(ledger Ledger, cache Cache, selector Selector, providers Registry,
	attemptTimeout time.Duration, logger *zap.Logger,
) *Service {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Service{
		ledger:         ledger,
		cache:          cache,
		selector:       selector,
		providers:      providers,
		attemptTimeout: attemptTimeout,
		logger:         logger,
	}
}

// Process runs one generative request through the full pipeline.
// Hard failures are only a quota denial or an exhausted fallback chain;
// everything else degrades.
func (s *Service) Process(ctx context.Context, req *domain.AIRequest) (domain.AIResponse, error) {
	start := time.Now()

	if err := s.ledger.Reserve(ctx, req.UserID(), req.Tier()); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaDeniedTotal.WithLabelValues(req.Tier().String()).Inc()
		}
		return domain.AIResponse{}, fmt.Errorf("reserve quota: %w", err)
	}

	// A cache hit consumed its reservation above but invokes nothing and
	// attributes no provider usage.
	if cached, ok := s.cache.Lookup(ctx, req); ok {
		resp := *cached
		resp.ProcessingTime = time.Since(start)
		return resp, nil
	}

	id := s.selector.Select(req.Tier(), req.Type(), s.primaryUsedToday(ctx, req.UserID()))

	completion, serving, hops, err := invokeChain(s, ctx, id, func(ctx context.Context, p domain.Provider) (domain.Completion, error) {
		return p.Complete(ctx, completionRequest(req))
	})
	if err != nil {
		return domain.AIResponse{}, err
	}

	degraded := hops > 0 || serving == domain.ProviderLocal

	if err := s.ledger.Commit(ctx, req.UserID(), serving, int64(completion.TokensUsed)); err != nil {
		s.logger.Warn("Failed to commit usage",
			zap.String("user_id", req.UserID()),
			zap.String("provider", serving.String()),
			zap.Error(err))
	}
	metrics.ProviderTokensTotal.WithLabelValues(serving.String()).Add(float64(completion.TokensUsed))

	resp := domain.AIResponse{
		Content:        completion.Content,
		Provider:       serving.String(),
		TokensUsed:     completion.TokensUsed,
		RequestType:    req.Type(),
		ProcessingTime: time.Since(start),
		Degraded:       degraded,
	}
	if degraded {
		resp.DegradedNote = degradedNote
	} else {
		s.cache.Store(ctx, req, &resp)
	}

	return resp, nil
}

// Embed obtains a vector through the same quota and fallback machinery.
// The local responder cannot embed, so an unreachable upstream surfaces as
// an exhausted chain and callers degrade to lexical-only retrieval.
func (s *Service) Embed(ctx context.Context, userID string, tier domain.Tier, text string) (domain.Embedding, error) {
	if err := s.ledger.Reserve(ctx, userID, tier); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaDeniedTotal.WithLabelValues(tier.String()).Inc()
		}
		return domain.Embedding{}, fmt.Errorf("reserve quota: %w", err)
	}

	id := s.selector.Select(tier, domain.TypeEmbedding, 0)

	emb, serving, _, err := invokeChain(s, ctx, id, func(ctx context.Context, p domain.Provider) (domain.Embedding, error) {
		return p.Embed(ctx, text)
	})
	if err != nil {
		return domain.Embedding{}, err
	}

	if err := s.ledger.Commit(ctx, userID, serving, int64(emb.TokensUsed)); err != nil {
		s.logger.Warn("Failed to commit usage",
			zap.String("user_id", userID),
			zap.String("provider", serving.String()),
			zap.Error(err))
	}
	metrics.ProviderTokensTotal.WithLabelValues(serving.String()).Add(float64(emb.TokensUsed))

	return emb, nil
}

// invokeChain tries providers along the fallback chain. Each attempt gets
// its own timeout as a child of ctx, so caller cancellation propagates.
// The same hop is never retried.
func invokeChain[T any](s *Service, ctx context.Context, id domain.ProviderID,
	call func(context.Context, domain.Provider) (T, error),
) (T, domain.ProviderID, int, error) {
	var zero T

	for hop := 0; hop < maxHops; hop++ {
		prov, ok := s.providers.Provider(id)
		if !ok {
			next, hasNext := s.selector.FallbackOf(id)
			if !hasNext {
				break
			}
			id = next
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		attemptStart := time.Now()
		result, err := call(attemptCtx, prov)
		cancel()

		metrics.ProviderRequestDuration.WithLabelValues(id.String()).Observe(time.Since(attemptStart).Seconds())
		if err == nil {
			metrics.ProviderRequestsTotal.WithLabelValues(id.String(), "success").Inc()
			return result, id, hop, nil
		}
		metrics.ProviderRequestsTotal.WithLabelValues(id.String(), "error").Inc()

		if ctx.Err() != nil {
			return zero, domain.ProviderNone, hop, fmt.Errorf("dispatch cancelled: %w", ctx.Err())
		}

		s.logger.Warn("Provider attempt failed",
			zap.String("provider", id.String()),
			zap.Error(err))

		next, hasNext := s.selector.FallbackOf(id)
		if !hasNext {
			break
		}
		metrics.FallbackTotal.WithLabelValues(id.String(), next.String()).Inc()
		id = next
	}

	return zero, domain.ProviderNone, maxHops, domain.ErrProvidersExhausted
}

// primaryUsedToday reads the free-tier sub-quota counter; a read failure is
// logged and treated as zero rather than failing the request.
func (s *Service) primaryUsedToday(ctx context.Context, userID string) int64 {
	n, err := s.ledger.ProviderCount(ctx, userID, domain.ProviderPrimary)
	if err != nil {
		s.logger.Warn("Failed to read primary usage", zap.String("user_id", userID), zap.Error(err))
		return 0
	}
	return n
}

// completionRequest builds the provider-facing call from an AIRequest.
func completionRequest(req *domain.AIRequest) domain.CompletionRequest {
	messages := make([]domain.Message, 0, 2)
	if req.System() != "" {
		messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: req.System()})
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: req.Content()})
	return domain.CompletionRequest{
		Messages:    messages,
		Temperature: req.Temperature(),
		MaxTokens:   req.MaxTokens(),
	}
}
