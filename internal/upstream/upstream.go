// Package upstream defines the read-only contracts to the platform services
// this gateway never owns: the user directory, file contents and knowledge
// base access checks.
package upstream

import (
	"context"

	"github.com/kailas-cloud/aigate/internal/domain"
)

// User is the directory view of an account.
type User struct {
	ID   string      `json:"id"`
	Tier domain.Tier `json:"-"`

	// TierName is the wire form; Tier is derived from it.
	TierName string `json:"tier"`
}

// FileContent is the extracted text of a stored file.
type FileContent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Text     string `json:"text"`
	OwnerID  string `json:"owner_id"`
	KBID     string `json:"kb_id"`
	FileType string `json:"file_type"`
}

// UserDirectory resolves user identity and tier.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (User, error)
}

// FileReader fetches file text for indexing.
type FileReader interface {
	Content(ctx context.Context, fileID string) (FileContent, error)
}

// Access answers knowledge base permission checks.
type Access interface {
	CanQuery(ctx context.Context, userID, kbID string) (bool, error)
}
