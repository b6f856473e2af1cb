package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"CanonCurator/internal/classifier"
	"CanonCurator/internal/domain"
	"CanonCurator/internal/ports"
	"CanonCurator/internal/scoring"
)

// CurationService loads the canon and derives the dashboard reports from it.
type CurationService struct {
	repo     ports.CanonRepository
	settings scoring.Settings
	now      func() time.Time
}

// NewCurationService binds a repository to the scoring settings built at startup.
func NewCurationService(repo ports.CanonRepository, settings scoring.Settings, now func() time.Time) *CurationService {
	if now == nil {
		now = time.Now
	}
	return &CurationService{repo: repo, settings: settings, now: now}
}

// Snapshot reads authors and camps concurrently.
func (s *CurationService) Snapshot(ctx context.Context) (scoring.Canon, error) {
	if s.repo == nil {
		return scoring.Canon{}, ErrRepositoryUnavailable
	}

	var (
		authors []domain.Author
		camps   []domain.Camp
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		authors, err = s.repo.ListAuthors(gctx)
		if err != nil {
			return fmt.Errorf("list authors: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		camps, err = s.repo.ListCamps(gctx)
		if err != nil {
			return fmt.Errorf("list camps: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return scoring.Canon{}, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	return scoring.NewCanon(authors, camps, s.settings), nil
}

// CurationQueue ranks authors by how urgently they need attention.
func (s *CurationService) CurationQueue(ctx context.Context) (scoring.CurationQueueReport, error) {
	canon, err := s.Snapshot(ctx)
	if err != nil {
		return scoring.CurationQueueReport{}, err
	}
	return canon.CurationQueue(s.now()), nil
}

// TopicCoverage scores every camp.
func (s *CurationService) TopicCoverage(ctx context.Context) (scoring.TopicCoverageReport, error) {
	canon, err := s.Snapshot(ctx)
	if err != nil {
		return scoring.TopicCoverageReport{}, err
	}
	return canon.TopicCoverageReport(s.now()), nil
}

// Domains rolls the canon up per domain.
func (s *CurationService) Domains(ctx context.Context) ([]scoring.DomainBreakdown, error) {
	canon, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return canon.DomainReport(s.now()), nil
}

// SourceAudit classifies every source of every author.
func (s *CurationService) SourceAudit(ctx context.Context) (classifier.AuditReport, error) {
	if s.repo == nil {
		return classifier.AuditReport{}, ErrRepositoryUnavailable
	}
	authors, err := s.repo.ListAuthors(ctx)
	if err != nil {
		return classifier.AuditReport{}, fmt.Errorf("%w: list authors: %w", ErrRepositoryUnavailable, err)
	}
	return classifier.BuildAuditReport(authors), nil
}

// AuthorPriority scores a single author against the current canon.
func (s *CurationService) AuthorPriority(ctx context.Context, authorID string) (scoring.Priority, bool, error) {
	canon, err := s.Snapshot(ctx)
	if err != nil {
		return scoring.Priority{}, false, err
	}
	for _, author := range canon.Authors {
		if author.ID == authorID {
			return scoring.AuthorPriority(canon.AuthorSignalsFor(author), s.now(), s.settings.Thresholds().Author), true, nil
		}
	}
	return scoring.Priority{}, false, nil
}
