package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/db"
	"github.com/kailas-cloud/aigate/internal/domain"
)

type mockStore struct {
	getFn        func(ctx context.Context, key string) ([]byte, error)
	setWithTTLFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	return m.getFn(ctx, key)
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.setWithTTLFn(ctx, key, value, ttl)
}

func newTestCache(t *testing.T) (*Cache, *mockStore) {
	t.Helper()
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, db.ErrKeyNotFound
		},
		setWithTTLFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
			return nil
		},
	}
	return New(ms, nil, nil, zap.NewNop()), ms
}

func mustRequest(t *testing.T, reqType domain.RequestType, content string, ctxData map[string]string) *domain.AIRequest {
	t.Helper()
	req, err := domain.NewAIRequest("u1", domain.TierFree, reqType, content, "", 0.7, 100, ctxData)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return &req
}

func TestLookup_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	_, ok := c.Lookup(context.Background(), mustRequest(t, domain.TypeChat, "hello", nil))
	if ok {
		t.Fatal("expected miss on empty store")
	}
}

func TestLookup_Hit(t *testing.T) {
	c, ms := newTestCache(t)

	want := domain.AIResponse{Content: "cached answer", Provider: "primary", TokensUsed: 42, RequestType: "chat"}
	data, _ := json.Marshal(want)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return data, nil
	}

	got, ok := c.Lookup(context.Background(), mustRequest(t, domain.TypeChat, "hello", nil))
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Content != want.Content || got.Provider != want.Provider || got.TokensUsed != want.TokensUsed {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestLookup_StoreErrorIsMiss(t *testing.T) {
	c, ms := newTestCache(t)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}

	_, ok := c.Lookup(context.Background(), mustRequest(t, domain.TypeChat, "hello", nil))
	if ok {
		t.Fatal("store error must degrade to a miss")
	}
}

func TestLookup_CorruptEntryIsMiss(t *testing.T) {
	c, ms := newTestCache(t)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("{not json"), nil
	}

	_, ok := c.Lookup(context.Background(), mustRequest(t, domain.TypeChat, "hello", nil))
	if ok {
		t.Fatal("corrupt entry must degrade to a miss")
	}
}

func TestStore_UsesTypeTTL(t *testing.T) {
	c, ms := newTestCache(t)

	var gotTTL time.Duration
	ms.setWithTTLFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		gotTTL = ttl
		return nil
	}

	resp := &domain.AIResponse{Content: "x"}
	c.Store(context.Background(), mustRequest(t, domain.TypeClassification, "spam or ham", nil), resp)
	if gotTTL != 2*time.Hour {
		t.Errorf("classification ttl=%v, want 2h", gotTTL)
	}

	c.Store(context.Background(), mustRequest(t, domain.TypeCode, "write a loop", nil), resp)
	if gotTTL != DefaultTTL {
		t.Errorf("unlisted type ttl=%v, want default %v", gotTTL, DefaultTTL)
	}
}

func TestStore_SwallowsErrors(t *testing.T) {
	c, ms := newTestCache(t)

	ms.setWithTTLFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("oom")
	}

	// must not panic or surface the error
	c.Store(context.Background(), mustRequest(t, domain.TypeChat, "hello", nil), &domain.AIResponse{Content: "x"})
}

func TestCacheKey_Deterministic(t *testing.T) {
	c, _ := newTestCache(t)

	ctxData := map[string]string{"lang": "de", "style": "formal"}
	a := c.cacheKey(mustRequest(t, domain.TypeTranslation, "guten tag", ctxData))
	b := c.cacheKey(mustRequest(t, domain.TypeTranslation, "guten tag", map[string]string{"style": "formal", "lang": "de"}))
	if a != b {
		t.Error("context map order must not change the key")
	}
}

func TestCacheKey_DiscriminatesInputs(t *testing.T) {
	c, _ := newTestCache(t)

	base := c.cacheKey(mustRequest(t, domain.TypeChat, "hello", nil))

	variants := []*domain.AIRequest{
		mustRequest(t, domain.TypeSummarization, "hello", nil),
		mustRequest(t, domain.TypeChat, "hello!", nil),
		mustRequest(t, domain.TypeChat, "hello", map[string]string{"k": "v"}),
	}
	for i, v := range variants {
		if c.cacheKey(v) == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}
}

func TestCacheKey_IgnoresUserAndTier(t *testing.T) {
	c, _ := newTestCache(t)

	// Identical questions from different users share one entry.
	mk := func(userID string, tier domain.Tier) *domain.AIRequest {
		req, err := domain.NewAIRequest(userID, tier, domain.TypeChat, "what is the refund policy", "", 0.7, 100, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		return &req
	}

	base := c.cacheKey(mk("u1", domain.TierFree))
	if got := c.cacheKey(mk("u2", domain.TierFree)); got != base {
		t.Error("a different user must map to the same key")
	}
	if got := c.cacheKey(mk("u3", domain.TierEnterprise)); got != base {
		t.Error("a different tier must map to the same key")
	}
}

func TestCacheKey_TemperatureRounding(t *testing.T) {
	c, _ := newTestCache(t)

	mk := func(temp float64) *domain.AIRequest {
		req, err := domain.NewAIRequest("u1", domain.TierFree, domain.TypeChat, "hi", "", temp, 100, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		return &req
	}

	if c.cacheKey(mk(0.701)) != c.cacheKey(mk(0.699)) {
		t.Error("temperatures equal at 2 decimals must share a key")
	}
	if c.cacheKey(mk(0.7)) == c.cacheKey(mk(0.8)) {
		t.Error("distinct temperatures must not share a key")
	}
}
