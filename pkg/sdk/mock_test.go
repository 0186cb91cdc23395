package aigate

import (
	"context"

	"github.com/kailas-cloud/aigate/internal/domain"
	healthuc "github.com/kailas-cloud/aigate/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/aigate/internal/usecase/indexer"
	retrievaluc "github.com/kailas-cloud/aigate/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/aigate/internal/usecase/usage"
)

// --- dispatchUseCase mock ---

type mockDispatchUC struct {
	processFn func(ctx context.Context, req *domain.AIRequest) (domain.AIResponse, error)
}

func (m *mockDispatchUC) Process(ctx context.Context, req *domain.AIRequest) (domain.AIResponse, error) {
	return m.processFn(ctx, req)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req retrievaluc.Request) (retrievaluc.Response, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req retrievaluc.Request) (retrievaluc.Response, error) {
	return m.searchFn(ctx, req)
}

// --- indexUseCase mock ---

type mockIndexUC struct {
	indexFn  func(ctx context.Context, fileID string) (indexeruc.Stats, error)
	deleteFn func(ctx context.Context, fileID string) error
}

func (m *mockIndexUC) IndexFile(ctx context.Context, fileID string) (indexeruc.Stats, error) {
	return m.indexFn(ctx, fileID)
}

func (m *mockIndexUC) DeleteFile(ctx context.Context, fileID string) error {
	return m.deleteFn(ctx, fileID)
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	reportFn func(ctx context.Context, userID string, tier domain.Tier) (usageuc.Report, error)
}

func (m *mockUsageUC) Report(ctx context.Context, userID string, tier domain.Tier) (usageuc.Report, error) {
	return m.reportFn(ctx, userID, tier)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testClient(
	dispatchUC dispatchUseCase,
	searchUC searchUseCase,
	indexUC indexUseCase,
	usageUC usageUseCase,
	healthUC healthUseCase,
) *Client {
	return &Client{
		dispatchUC: dispatchUC,
		searchUC:   searchUC,
		indexUC:    indexUC,
		usageUC:    usageUC,
		healthUC:   healthUC,
	}
}
