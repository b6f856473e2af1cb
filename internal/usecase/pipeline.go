package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"CanonCurator/internal/domain"
	"CanonCurator/internal/ports"
)

// DefaultBatchSize bounds concurrent collaborator calls per group.
const DefaultBatchSize = 5

var (
	// ErrRepositoryUnavailable means the datastore is unconfigured or unreachable. Fatal to a run.
	ErrRepositoryUnavailable = errors.New("author repository unavailable")
	// ErrInferrerUnavailable means no date-inference backend is configured. Fatal to a run.
	ErrInferrerUnavailable = errors.New("date inferrer unavailable")
)

// PipelineDeps wires all driven adapters into the enrichment pipeline.
type PipelineDeps struct {
	Repository ports.AuthorRepository
	Inferrer   ports.DateInferrer
	Notifier   ports.Notifier
	Observer   ports.PipelineObserver
	Logger     *slog.Logger
	BatchSize  int
	Now        func() time.Time
	NewRunID   func() string
}

// Pipeline implements the date-enrichment workflow.
type Pipeline struct {
	repository ports.AuthorRepository
	inferrer   ports.DateInferrer
	notifier   ports.Notifier
	observer   ports.PipelineObserver
	logger     *slog.Logger
	batchSize  int
	now        func() time.Time
	newRunID   func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		repository: deps.Repository,
		inferrer:   deps.Inferrer,
		notifier:   deps.Notifier,
		observer:   deps.Observer,
		logger:     deps.Logger,
		batchSize:  deps.BatchSize,
		now:        deps.Now,
		newRunID:   deps.NewRunID,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.batchSize < 1 {
		p.batchSize = DefaultBatchSize
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	return p
}

// Run selects authors with sources, enriches them group by group and writes back changed authors.
// Per-author failures are recorded in the report; only configuration errors and cancellation
// between groups end the run early.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	runID := p.newRunID()
	logger := p.logger.With("run_id", runID)
	started := p.now()

	if p.repository == nil {
		return RunReport{RunID: runID}, ErrRepositoryUnavailable
	}
	if p.inferrer == nil {
		return RunReport{RunID: runID}, ErrInferrerUnavailable
	}

	listed, err := p.repository.ListAuthorsWithSources(ctx)
	if err != nil {
		logger.Error("list authors failed", "error", err)
		p.runFinished(started, true)
		return RunReport{RunID: runID}, fmt.Errorf("%w: list authors: %w", ErrRepositoryUnavailable, err)
	}

	authors := make([]domain.Author, 0, len(listed))
	for _, a := range listed {
		if len(a.Sources) > 0 {
			authors = append(authors, a)
		}
	}

	report := newRunReport(runID, started, len(authors))
	logger.Info("enrichment run started", "authors", len(authors), "batch_size", p.batchSize)

	for start := 0; start < len(authors); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			report.finish(p.now())
			logger.Error("enrichment run interrupted", "processed", len(report.Results), "error", err)
			p.runFinished(started, true)
			return report, fmt.Errorf("enrichment run interrupted: %w", err)
		}

		group := authors[start:min(start+p.batchSize, len(authors))]
		report.fold(p.enrichGroup(ctx, logger, group))
	}

	report.finish(p.now())
	logger.Info("enrichment run finished",
		"processed", report.ProcessedAuthors,
		"unchanged", report.UnchangedAuthors,
		"failed", report.FailedAuthors,
		"enriched_sources", report.EnrichedSources,
	)
	p.runFinished(started, false)

	if p.notifier != nil && report.TotalAuthors > 0 {
		if err := p.notifier.PublishSummary(ctx, FormatRunSummary(report)); err != nil {
			logger.Warn("publish run summary failed", "error", err)
		}
	}

	return report, nil
}

// enrichGroup runs one group concurrently. Each task owns one slot so results keep submission order.
func (p *Pipeline) enrichGroup(ctx context.Context, logger *slog.Logger, group []domain.Author) []AuthorResult {
	slots := make([]AuthorResult, len(group))
	for i, author := range group {
		slots[i] = AuthorResult{
			AuthorID:     author.ID,
			AuthorName:   author.Name,
			Status:       StatusPending,
			TotalSources: len(author.Sources),
		}
	}

	var g errgroup.Group
	for i, author := range group {
		g.Go(func() error {
			slots[i] = p.enrichAuthor(ctx, logger, author, slots[i])
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

// enrichAuthor processes one author. Any failure, including a panic, is captured here.
func (p *Pipeline) enrichAuthor(ctx context.Context, logger *slog.Logger, author domain.Author, res AuthorResult) (out AuthorResult) {
	logger = logger.With("author_id", author.ID)
	begin := p.now()
	res.Status = StatusEnriching

	defer func() {
		if r := recover(); r != nil {
			out = failed(res, fmt.Errorf("panic: %v", r))
		}
		if out.Status == StatusFailed {
			logger.Warn("author enrichment failed", "error", out.Error)
		}
		if p.observer != nil {
			p.observer.AuthorProcessed(string(out.Status), out.EnrichedCount, p.now().Sub(begin))
		}
	}()

	refs := make([]domain.SourceRef, 0, len(author.Sources))
	for _, src := range author.Sources {
		if NeedsDate(src) {
			refs = append(refs, src.Ref())
		}
	}
	if len(refs) == 0 {
		res.Status = StatusSkipped
		res.Success = true
		return res
	}

	results, err := p.inferrer.EnrichDates(ctx, refs, author.Name)
	if err != nil {
		return failed(res, fmt.Errorf("enrich dates: %w", err))
	}

	merged := MergeSources(author.Sources, results)
	if merged.Gated > 0 || merged.Unmatched > 0 {
		logger.Debug("enrichments not applied", "gated", merged.Gated, "unmatched", merged.Unmatched)
	}

	if merged.Changed == 0 {
		res.Status = StatusSkipped
		res.Success = true
		return res
	}

	if err := p.repository.UpdateAuthorSources(ctx, author.ID, merged.Sources); err != nil {
		return failed(res, fmt.Errorf("update author sources: %w", err))
	}

	res.Status = StatusMerged
	res.Success = true
	res.EnrichedCount = merged.Changed
	logger.Debug("author enriched", "enriched", merged.Changed, "sources", len(author.Sources))
	return res
}

func failed(res AuthorResult, err error) AuthorResult {
	res.Status = StatusFailed
	res.Success = false
	res.EnrichedCount = 0
	res.Error = err.Error()
	return res
}

func (p *Pipeline) runFinished(started time.Time, aborted bool) {
	if p.observer != nil {
		p.observer.RunFinished(p.now().Sub(started), aborted)
	}
}
