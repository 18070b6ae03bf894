package ports

import (
	"context"
	"time"

	"copywatch/internal/domain"
)

// RecordQuery selects a page of records from the central store.
type RecordQuery struct {
	Lang     string
	Filter   string
	LastID   int64
	RecordID int64
	Limit    uint64
}

// RecordStore persists flagged revisions and their review state.
type RecordStore interface {
	ListRecords(ctx context.Context, q RecordQuery) ([]domain.Record, error)
	CurrentStatus(ctx context.Context, id int64) (domain.ReviewStatus, string, error)
	UpdateReview(ctx context.Context, id int64, status domain.ReviewStatus, actor string, at time.Time) error
	ClearReview(ctx context.Context, id int64) error
	UserWhitelist(ctx context.Context) (map[string]struct{}, error)
	WikiProjects(ctx context.Context, lang, title string) ([]string, error)
}

// WikiDirectory answers batched questions against a wiki replica. Every
// method returns an immutable mapping; missing keys mean "not resolvable".
type WikiDirectory interface {
	RevisionEditors(ctx context.Context, revIDs []int64) (map[int64]string, error)
	EditCounts(ctx context.Context, editors []string) (map[string]int, error)
	DeadPages(ctx context.Context, titles []string) (map[string]bool, error)
	IsActorBlocked(ctx context.Context, actor string) (bool, error)
}

// ScoreClient fetches plagiarism-likelihood scores keyed by revision id.
type ScoreClient interface {
	Scores(ctx context.Context, revIDs []int64) (map[int64]float64, error)
}

// ComparisonClient fetches side-by-side highlighted text from the external
// comparison viewer.
type ComparisonClient interface {
	Compare(ctx context.Context, req domain.CompareRequest) (domain.Comparison, error)
}
