package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CanonCurator/internal/classifier"
	"CanonCurator/internal/domain"
	"CanonCurator/internal/scoring"
)

func newTestPipeline(repo *memoryRepo, inferrer *stubInferrer, batchSize int) *Pipeline {
	return NewPipeline(PipelineDeps{
		Repository: repo,
		Inferrer:   inferrer,
		BatchSize:  batchSize,
		Now:        fixedClock,
		NewRunID:   func() string { return "run-test" },
	})
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.addAuthor("a1", "Ada", `[
		{"title":"B","url":"https://x.com/articles/specific-2023-report","published_date":null},
		{"title":"Manual","url":"https://example.com/2020/01/essay","published_date":"2020-01-01","custom":{"k":1}}
	]`)
	inferrer := &stubInferrer{fn: datesByTitle(map[string]string{"B": "2023-05", "Manual": "1999"})}
	pipeline := newTestPipeline(repo, inferrer, 5)

	first, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.EnrichedSources)
	assert.Equal(t, 1, repo.writeCount("a1"))
	afterFirst := repo.raw("a1")

	second, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.EnrichedSources)
	assert.Equal(t, 1, second.UnchangedAuthors)
	assert.Equal(t, StatusSkipped, second.Results[0].Status)
	assert.Equal(t, 1, repo.writeCount("a1"), "unchanged author must not be written")
	assert.Equal(t, string(afterFirst), string(repo.raw("a1")))

	sources, err := domain.DecodeSources(repo.raw("a1"))
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "2020-01-01", sources[1].PublishedDate, "curated date is never replaced")
	assert.Contains(t, sources[1].Extra, "custom")
}

func TestPipelineIsolatesAuthorFailures(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	for i := 1; i <= 5; i++ {
		repo.addAuthor(fmt.Sprintf("a%d", i), fmt.Sprintf("Author %d", i), fmt.Sprintf(`[{"title":"Talk %d","url":"https://example.com/talks/%d"}]`, i, i))
	}
	inferrer := &stubInferrer{fn: func(ctx context.Context, refs []domain.SourceRef, name string) ([]domain.EnrichedSourceDate, error) {
		if name == "Author 3" {
			return nil, errors.New("collaborator down")
		}
		return datesByTitle(map[string]string{refs[0].Title: "2024-02-02"})(ctx, refs, name)
	}}
	observer := &countingObserver{}
	pipeline := NewPipeline(PipelineDeps{Repository: repo, Inferrer: inferrer, Observer: observer, Now: fixedClock})

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 5)
	for i, res := range report.Results {
		assert.Equal(t, fmt.Sprintf("a%d", i+1), res.AuthorID)
		if res.AuthorID == "a3" {
			assert.Equal(t, StatusFailed, res.Status)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "collaborator down")
			assert.Equal(t, 0, repo.writeCount("a3"))
			continue
		}
		assert.Equal(t, StatusMerged, res.Status)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.EnrichedCount)
		assert.Equal(t, 1, res.TotalSources)
	}

	assert.Equal(t, 5, report.TotalAuthors)
	assert.Equal(t, 4, report.ProcessedAuthors)
	assert.Equal(t, 1, report.FailedAuthors)
	assert.Equal(t, 4, report.EnrichedSources)
	assert.Len(t, report.TopEnriched, 4)
	assert.Equal(t, map[string]int{"merged": 4, "failed": 1}, observer.statuses)
	assert.Equal(t, 1, observer.runs)
}

func TestPipelineRecoversPanickingAuthor(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.addAuthor("a1", "Calm", `[{"title":"x"}]`)
	repo.addAuthor("a2", "Chaos", `[{"title":"y"}]`)
	inferrer := &stubInferrer{fn: func(ctx context.Context, refs []domain.SourceRef, name string) ([]domain.EnrichedSourceDate, error) {
		if name == "Chaos" {
			panic("boom")
		}
		return datesByTitle(map[string]string{"x": "2022"})(ctx, refs, name)
	}}

	report, err := newTestPipeline(repo, inferrer, 5).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusMerged, report.Results[0].Status)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Contains(t, report.Results[1].Error, "boom")
}

func TestPipelineRecordsWriteFailures(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.addAuthor("a1", "Ada", `[{"title":"x"}]`)
	repo.updateErr["a1"] = errors.New("disk full")
	inferrer := &stubInferrer{fn: datesByTitle(map[string]string{"x": "2022-01-01"})}

	report, err := newTestPipeline(repo, inferrer, 5).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, "update author sources: disk full")
	assert.Equal(t, 0, report.EnrichedSources)
}

func TestPipelineKeepsSubmissionOrderAndBoundsConcurrency(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	for i := 1; i <= 5; i++ {
		repo.addAuthor(fmt.Sprintf("a%d", i), fmt.Sprintf("n%d", i), fmt.Sprintf(`[{"title":"t%d"}]`, i))
	}

	var inFlight, peak atomic.Int32
	secondStarted := make(chan struct{})
	inferrer := &stubInferrer{fn: func(ctx context.Context, refs []domain.SourceRef, name string) ([]domain.EnrichedSourceDate, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		switch name {
		case "n1":
			// completes after its group sibling
			select {
			case <-secondStarted:
			case <-time.After(2 * time.Second):
				return nil, errors.New("group members did not run concurrently")
			}
		case "n2":
			close(secondStarted)
		}
		return datesByTitle(map[string]string{refs[0].Title: "2021"})(ctx, refs, name)
	}}

	report, err := newTestPipeline(repo, inferrer, 2).Run(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(report.Results))
	for _, res := range report.Results {
		ids = append(ids, res.AuthorID)
		assert.Equal(t, StatusMerged, res.Status, res.Error)
	}
	assert.Equal(t, []string{"a1", "a2", "a3", "a4", "a5"}, ids)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPipelineSkipsAuthorsWithoutCandidates(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.addAuthor("a1", "Dated", `[{"title":"x","published_date":"2024-01-01"}]`)
	repo.addAuthor("a2", "Empty", `[]`)
	inferrer := &stubInferrer{fn: datesByTitle(nil)}

	report, err := newTestPipeline(repo, inferrer, 5).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalAuthors)
	assert.Equal(t, StatusSkipped, report.Results[0].Status)
	assert.Equal(t, int32(0), inferrer.calls.Load())
}

func TestPipelineLowConfidenceLeavesAuthorUnwritten(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.addAuthor("a1", "Ada", `[{"title":"x","url":"https://example.com/x"}]`)
	before := repo.raw("a1")
	inferrer := &stubInferrer{fn: func(context.Context, []domain.SourceRef, string) ([]domain.EnrichedSourceDate, error) {
		return []domain.EnrichedSourceDate{{OriginalTitle: "x", EnrichedDate: ptr("2020-01-01"), Confidence: domain.ConfidenceLow}}, nil
	}}

	report, err := newTestPipeline(repo, inferrer, 5).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.UnchangedAuthors)
	assert.Equal(t, 0, repo.writeCount("a1"))
	assert.Equal(t, before, repo.raw("a1"))
}

func TestPipelineConfigurationErrorsAreFatal(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.listErr = errors.New("connection refused")
	inferrer := &stubInferrer{fn: datesByTitle(nil)}
	observer := &countingObserver{}

	_, err := NewPipeline(PipelineDeps{Repository: repo, Inferrer: inferrer, Observer: observer}).Run(context.Background())
	require.ErrorIs(t, err, ErrRepositoryUnavailable)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, int32(0), inferrer.calls.Load())
	assert.Equal(t, 1, observer.aborted)

	_, err = NewPipeline(PipelineDeps{Inferrer: inferrer}).Run(context.Background())
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)

	_, err = NewPipeline(PipelineDeps{Repository: newMemoryRepo()}).Run(context.Background())
	assert.ErrorIs(t, err, ErrInferrerUnavailable)
}

func TestPipelineStopsBetweenGroupsWhenCancelled(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	for i := 1; i <= 4; i++ {
		repo.addAuthor(fmt.Sprintf("a%d", i), fmt.Sprintf("n%d", i), fmt.Sprintf(`[{"title":"t%d"}]`, i))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inferrer := &stubInferrer{fn: func(ctx context.Context, refs []domain.SourceRef, name string) ([]domain.EnrichedSourceDate, error) {
		cancel()
		return datesByTitle(map[string]string{refs[0].Title: "2021"})(ctx, refs, name)
	}}

	report, err := newTestPipeline(repo, inferrer, 2).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, 1, repo.writeCount("a1"), "writes before cancellation remain")
	assert.Equal(t, 0, repo.writeCount("a3"))
}

func TestPipelinePublishesRunSummary(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.addAuthor("a1", "Ada Lovelace", `[{"title":"x"}]`)
	notifier := &recordingNotifier{}
	pipeline := NewPipeline(PipelineDeps{
		Repository: repo,
		Inferrer:   &stubInferrer{fn: datesByTitle(map[string]string{"x": "2022-02"})},
		Notifier:   notifier,
		Now:        fixedClock,
		NewRunID:   func() string { return "run-42" },
	})

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "run-42")
	assert.Contains(t, notifier.messages[0], "Sources enriched: 1")
	assert.Contains(t, notifier.messages[0], "- Ada Lovelace: 1")
}

func TestEnrichmentEndToEnd(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.addAuthor("a1", "Ada", `[
		{"title":"A","url":"https://x.com/channel/y"},
		{"title":"B","url":"https://x.com/articles/specific-2023-report","published_date":null}
	]`)
	curation := NewCurationService(repo, scoring.DefaultSettings(), fixedClock)

	authors, err := repo.ListAuthors(context.Background())
	require.NoError(t, err)
	a, b := authors[0].Sources[0], authors[0].Sources[1]
	assert.Equal(t, classifier.QualityGeneric, classifier.Classify(a.URL, a.Title).Quality)
	assert.Equal(t, classifier.QualitySpecific, classifier.ClassifyURL(b.URL).Quality)
	assert.Equal(t, classifier.QualityAmbiguous, classifier.Classify(b.URL, b.Title).Quality, "a one-letter title leaves the combined verdict open")

	before, found, err := curation.AuthorPriority(context.Background(), "a1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 40, before.Score)
	assert.Nil(t, before.DaysSinceUpdate)

	inferrer := &stubInferrer{fn: func(context.Context, []domain.SourceRef, string) ([]domain.EnrichedSourceDate, error) {
		return []domain.EnrichedSourceDate{{OriginalTitle: "B", EnrichedDate: ptr("2023-05"), Confidence: domain.ConfidenceHigh, Source: "stub"}}, nil
	}}
	report, err := newTestPipeline(repo, inferrer, 5).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.EnrichedSources)

	updated, err := repo.ListAuthors(context.Background())
	require.NoError(t, err)
	gotA, gotB := updated[0].Sources[0], updated[0].Sources[1]
	assert.True(t, gotA.Equal(a), "A stays untouched")
	assert.Equal(t, "2023-05-01", gotB.PublishedDate)
	assert.Equal(t, "2023", gotB.Year)
	assert.True(t, gotB.DateEnriched)
	assert.Equal(t, domain.ConfidenceHigh, gotB.EnrichmentConfidence)

	after, _, err := curation.AuthorPriority(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, after.DaysSinceUpdate)
	assert.Equal(t, domain.DaysSince(time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC), fixedNow), *after.DaysSinceUpdate)
	assert.Equal(t, 120, after.Score, "B is over two years old and the author has no position summary")
	assert.Equal(t, scoring.UrgencyCritical, after.Urgency)
}

func TestPipelineWritesUntouchedSiblingsAsRead(t *testing.T) {
	t.Parallel()

	gated := `{"title":"Gated","url":"https://x.com/g","year":2020,"publishedDate":"2020-03-04T10:00:00Z","note":"keep"}`
	repo := newMemoryRepo()
	repo.addAuthor("a1", "Ada", `[`+gated+`,{"title":"B","url":"https://x.com/articles/b"}]`)
	inferrer := &stubInferrer{fn: datesByTitle(map[string]string{"B": "2023-05"})}

	report, err := newTestPipeline(repo, inferrer, 5).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.EnrichedSources)
	require.Equal(t, 1, repo.writeCount("a1"))

	stored := string(repo.raw("a1"))
	assert.Contains(t, stored, gated, "untouched sibling keeps its original encoding")

	sources, err := domain.DecodeSources(repo.raw("a1"))
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "2020-03-04", sources[0].PublishedDate)
	assert.Equal(t, "2023-05-01", sources[1].PublishedDate)
	assert.True(t, sources[1].DateEnriched)
}
