package local

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/aigate/internal/domain"
)

func TestComplete_NeverFails(t *testing.T) {
	p := New()

	got, err := p.Complete(context.Background(), domain.CompletionRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "anything"}},
	})
	if err != nil {
		t.Fatalf("local responder must never fail: %v", err)
	}
	if got.Content == "" {
		t.Fatal("degraded response must carry content")
	}
	if got.TokensUsed != 0 {
		t.Errorf("tokens = %d, local serves for free", got.TokensUsed)
	}
}

func TestEmbed_Unavailable(t *testing.T) {
	p := New()

	_, err := p.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
