package ports

import (
	"context"
	"errors"

	"FakeNewsDetector/internal/domain"
)

// ErrArtifactNotFound marks a logical key with no stored artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore persists stage outputs by logical key; the layout behind a key is private.
type ArtifactStore interface {
	Put(ctx context.Context, key string, v any) error
	Get(ctx context.Context, key string, v any) error
	Has(ctx context.Context, key string) (bool, error)
}

// RunHistory keeps every evaluation as an append-only record.
type RunHistory interface {
	Record(ctx context.Context, run domain.RunRecord) error
	List(ctx context.Context, experiment string, limit int) ([]domain.RunRecord, error)
}

// ArticleFetcher downloads an article page and returns its title and body text.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (domain.NewsRecord, error)
}
