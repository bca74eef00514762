package ports

import (
	"context"

	"FeedScreener/internal/domain"
)

// ItemSource pulls the current item list from upstream feeds.
type ItemSource interface {
	FetchItems(ctx context.Context) ([]domain.Item, error)
}

// ScoreTransport sends one prompt to a concrete endpoint and returns
// the raw assistant text. Implementations map transport and status
// failures onto the scoring error taxonomy.
type ScoreTransport interface {
	Complete(ctx context.Context, endpoint domain.Endpoint, prompt string) (string, error)
}

// BatchScorer performs one all-or-nothing batch scoring attempt and
// returns one score per item in the caller's order.
type BatchScorer interface {
	Ready() error
	ScoreBatch(ctx context.Context, items []domain.Item, scoringContext string) ([]float64, error)
}

// ScoreStore persists score snapshots and diagnostic entries across
// sessions. All writes are best-effort from the caller's perspective.
type ScoreStore interface {
	SaveScore(ctx context.Context, contextHash, itemKey string, score float64) error
	LoadScores(ctx context.Context, contextHash string) (map[string]float64, error)
	SaveErrorEntry(ctx context.Context, entry domain.ErrorEntry) error
	RecentErrors(ctx context.Context, limit int) ([]domain.ErrorEntry, error)
	Close() error
}
