package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"CanonCurator/internal/domain"
	"CanonCurator/internal/ports"
)

var (
	_ ports.AuthorRepository = (*memoryRepo)(nil)
	_ ports.CanonRepository  = (*memoryRepo)(nil)
	_ ports.DateInferrer     = (*stubInferrer)(nil)
	_ ports.Notifier         = (*recordingNotifier)(nil)
	_ ports.PipelineObserver = (*countingObserver)(nil)
)

var fixedNow = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// memoryRepo keeps sources as encoded JSON so every read and write crosses the same boundary a
// database would.
type memoryRepo struct {
	mu        sync.Mutex
	order     []string
	names     map[string]string
	rows      map[string][]byte
	camps     []domain.Camp
	writes    map[string]int
	updateErr map[string]error
	listErr   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		names:     map[string]string{},
		rows:      map[string][]byte{},
		writes:    map[string]int{},
		updateErr: map[string]error{},
	}
}

func (r *memoryRepo) addAuthor(id, name, sourcesJSON string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
	r.names[id] = name
	r.rows[id] = []byte(sourcesJSON)
}

func (r *memoryRepo) raw(id string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.rows[id]...)
}

func (r *memoryRepo) writeCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[id]
}

func (r *memoryRepo) ListAuthors(_ context.Context) ([]domain.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Author, 0, len(r.order))
	for _, id := range r.order {
		sources, err := domain.DecodeSources(r.rows[id])
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Author{ID: id, Name: r.names[id], Sources: sources})
	}
	return out, nil
}

func (r *memoryRepo) ListAuthorsWithSources(ctx context.Context) ([]domain.Author, error) {
	all, err := r.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if len(a.Sources) > 0 {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListCamps(_ context.Context) ([]domain.Camp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camps, nil
}

func (r *memoryRepo) UpdateAuthorSources(_ context.Context, authorID string, sources []domain.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[authorID]; err != nil {
		return err
	}
	if _, ok := r.rows[authorID]; !ok {
		return fmt.Errorf("author %s not found", authorID)
	}
	data, err := domain.EncodeSources(sources)
	if err != nil {
		return err
	}
	r.rows[authorID] = data
	r.writes[authorID]++
	return nil
}

type stubInferrer struct {
	calls atomic.Int32
	fn    func(ctx context.Context, refs []domain.SourceRef, authorName string) ([]domain.EnrichedSourceDate, error)
}

func (s *stubInferrer) EnrichDates(ctx context.Context, refs []domain.SourceRef, authorName string) ([]domain.EnrichedSourceDate, error) {
	s.calls.Add(1)
	return s.fn(ctx, refs, authorName)
}

// datesByTitle answers every ref whose title is in dates with a high-confidence result.
func datesByTitle(dates map[string]string) func(context.Context, []domain.SourceRef, string) ([]domain.EnrichedSourceDate, error) {
	return func(_ context.Context, refs []domain.SourceRef, _ string) ([]domain.EnrichedSourceDate, error) {
		out := make([]domain.EnrichedSourceDate, 0, len(refs))
		for _, ref := range refs {
			date, ok := dates[ref.Title]
			if !ok {
				continue
			}
			out = append(out, domain.EnrichedSourceDate{
				OriginalTitle: ref.Title,
				EnrichedDate:  &date,
				Confidence:    domain.ConfidenceHigh,
				Reasoning:     "stub",
				Source:        "stub-model",
			})
		}
		return out, nil
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) PublishSummary(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type countingObserver struct {
	mu       sync.Mutex
	statuses map[string]int
	runs     int
	aborted  int
}

func (o *countingObserver) AuthorProcessed(status string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.statuses == nil {
		o.statuses = map[string]int{}
	}
	o.statuses[status]++
}

func (o *countingObserver) RunFinished(_ time.Duration, aborted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
	if aborted {
		o.aborted++
	}
}
