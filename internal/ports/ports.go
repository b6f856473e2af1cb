package ports

import (
	"context"
	"time"

	"CanonCurator/internal/domain"
)

// AuthorRepository reads and writes the author records the enrichment pipeline owns.
type AuthorRepository interface {
	ListAuthorsWithSources(ctx context.Context) ([]domain.Author, error)
	UpdateAuthorSources(ctx context.Context, authorID string, sources []domain.Source) error
}

// CanonRepository loads the full canon snapshot for reporting.
type CanonRepository interface {
	ListAuthors(ctx context.Context) ([]domain.Author, error)
	ListCamps(ctx context.Context) ([]domain.Camp, error)
}

// DateInferrer asks an external text-inference collaborator for publication dates.
// Results align to inputs by title; their order is not significant.
type DateInferrer interface {
	EnrichDates(ctx context.Context, sources []domain.SourceRef, authorName string) ([]domain.EnrichedSourceDate, error)
}

// Notifier delivers a short run summary to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, message string) error
}

// PipelineObserver receives per-author outcomes and run totals, e.g. for metrics.
type PipelineObserver interface {
	AuthorProcessed(status string, enrichedSources int, elapsed time.Duration)
	RunFinished(elapsed time.Duration, failed bool)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
