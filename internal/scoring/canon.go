package scoring

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"CanonCurator/internal/domain"
)

// stalenessSortSentinel orders undated domains last. It is never reported.
const stalenessSortSentinel = 999

// Canon is a read-only snapshot of authors and camps that reports are derived from.
type Canon struct {
	Authors []domain.Author
	Camps   []domain.Camp

	settings Settings
}

// NewCanon pairs a snapshot with the settings used to score it.
func NewCanon(authors []domain.Author, camps []domain.Camp, settings Settings) Canon {
	return Canon{Authors: authors, Camps: camps, settings: settings}
}

// membership summarises an author's camp edges.
type membership struct {
	camps              map[string]struct{}
	hasPositionSummary bool
}

func (c Canon) memberships() map[string]*membership {
	out := make(map[string]*membership)
	for _, camp := range c.Camps {
		for _, m := range camp.Members {
			entry, ok := out[m.AuthorID]
			if !ok {
				entry = &membership{camps: map[string]struct{}{}}
				out[m.AuthorID] = entry
			}
			entry.camps[camp.ID] = struct{}{}
			if m.HasPositionSummary() {
				entry.hasPositionSummary = true
			}
		}
	}
	return out
}

func (c Canon) authorIndex() map[string]domain.Author {
	out := make(map[string]domain.Author, len(c.Authors))
	for _, a := range c.Authors {
		out[a.ID] = a
	}
	return out
}

// AuthorSignalsFor derives the priority inputs for one author.
func (c Canon) AuthorSignalsFor(author domain.Author) AuthorSignals {
	return c.authorSignals(author, c.memberships())
}

func (c Canon) authorSignals(author domain.Author, members map[string]*membership) AuthorSignals {
	sig := AuthorSignals{SourceCount: len(author.Sources)}
	sig.MostRecent, sig.HasDate = author.MostRecentSourceDate()
	if m, ok := members[author.ID]; ok {
		sig.CampCount = len(m.camps)
		sig.HasPositionSummary = m.hasPositionSummary
	}
	return sig
}

// CurationQueue scores every author. Zero-score authors count in the summary but stay out of the queue.
func (c Canon) CurationQueue(now time.Time) CurationQueueReport {
	members := c.memberships()
	th := c.settings.Thresholds().Author

	report := CurationQueueReport{
		Queue: []CurationQueueItem{},
		ByUrgency: UrgencyGroups{
			Critical: []CurationQueueItem{},
			High:     []CurationQueueItem{},
			Medium:   []CurationQueueItem{},
			Low:      []CurationQueueItem{},
		},
	}

	for _, author := range c.Authors {
		sig := c.authorSignals(author, members)
		p := AuthorPriority(sig, now, th)

		report.Summary.Total++
		switch p.Urgency {
		case UrgencyCritical:
			report.Summary.Critical++
		case UrgencyHigh:
			report.Summary.High++
		case UrgencyMedium:
			report.Summary.Medium++
		default:
			report.Summary.Low++
		}
		if sig.SourceCount == 0 {
			report.Summary.WithoutSources++
		}
		if !sig.HasPositionSummary {
			report.Summary.WithoutPositionSummary++
		}

		if p.Score == 0 {
			continue
		}

		item := CurationQueueItem{
			AuthorID:           author.ID,
			AuthorName:         author.Name,
			Affiliation:        author.Affiliation,
			Score:              p.Score,
			Urgency:            p.Urgency,
			Reasons:            p.Reasons,
			SourceCount:        sig.SourceCount,
			CampCount:          sig.CampCount,
			HasPositionSummary: sig.HasPositionSummary,
			DaysSinceUpdate:    p.DaysSinceUpdate,
		}
		if sig.HasDate {
			item.MostRecentSourceDate = sig.MostRecent.Format(domain.DateLayout)
		}
		report.Queue = append(report.Queue, item)
	}

	slices.SortStableFunc(report.Queue, func(a, b CurationQueueItem) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			strings.Compare(a.AuthorName, b.AuthorName),
			strings.Compare(a.AuthorID, b.AuthorID),
		)
	})

	for _, item := range report.Queue {
		switch item.Urgency {
		case UrgencyCritical:
			report.ByUrgency.Critical = append(report.ByUrgency.Critical, item)
		case UrgencyHigh:
			report.ByUrgency.High = append(report.ByUrgency.High, item)
		case UrgencyMedium:
			report.ByUrgency.Medium = append(report.ByUrgency.Medium, item)
		default:
			report.ByUrgency.Low = append(report.ByUrgency.Low, item)
		}
	}

	return report
}

// topicSignals aggregates member authors of a camp, counting each author once.
func (c Canon) topicSignals(camp domain.Camp, authors map[string]domain.Author) TopicSignals {
	sig := TopicSignals{Label: camp.Name}
	seen := make(map[string]struct{}, len(camp.Members))
	for _, m := range camp.Members {
		if _, dup := seen[m.AuthorID]; dup {
			continue
		}
		seen[m.AuthorID] = struct{}{}
		sig.AuthorCount++

		author, ok := authors[m.AuthorID]
		if !ok {
			continue
		}
		sig.SourceCount += len(author.Sources)
		if latest, dated := author.MostRecentSourceDate(); dated {
			if !sig.HasDate || latest.After(sig.MostRecent) {
				sig.MostRecent = latest
				sig.HasDate = true
			}
		}
	}
	return sig
}

// TopicCoverageReport scores every camp.
func (c Canon) TopicCoverageReport(now time.Time) TopicCoverageReport {
	authors := c.authorIndex()
	report := TopicCoverageReport{
		TopicsNeedingAttention: []TopicCoverage{},
		FastMovingTopics:       []TopicCoverage{},
		AllTopics:              make([]TopicCoverage, 0, len(c.Camps)),
	}

	for _, camp := range c.Camps {
		sig := c.topicSignals(camp, authors)
		cov := TopicStrength(sig, now, c.settings)
		topic := TopicCoverage{
			CampID:          camp.ID,
			CampName:        camp.Name,
			DomainID:        camp.Domain,
			DomainLabel:     c.settings.DomainLabel(camp.Domain),
			AuthorCount:     sig.AuthorCount,
			SourceCount:     sig.SourceCount,
			DaysSinceUpdate: cov.DaysSinceUpdate,
			IsFastMoving:    cov.FastMoving,
			CoverageScore:   cov.Score,
			Level:           cov.Level,
			Insight:         cov.Insight,
		}
		if sig.HasDate {
			topic.MostRecentSourceDate = sig.MostRecent.Format(domain.DateLayout)
		}

		switch topic.Level {
		case LevelStrong:
			report.Summary.Strong++
		case LevelModerate:
			report.Summary.Moderate++
		case LevelWeak:
			report.Summary.Weak++
		default:
			report.Summary.None++
		}

		report.AllTopics = append(report.AllTopics, topic)
		if topic.Level == LevelWeak || topic.Level == LevelNone {
			report.TopicsNeedingAttention = append(report.TopicsNeedingAttention, topic)
		}
		if topic.IsFastMoving {
			report.FastMovingTopics = append(report.FastMovingTopics, topic)
		}
	}

	weakestFirst := func(a, b TopicCoverage) int {
		return cmp.Or(cmp.Compare(a.CoverageScore, b.CoverageScore), strings.Compare(a.CampName, b.CampName))
	}
	slices.SortStableFunc(report.AllTopics, func(a, b TopicCoverage) int {
		return cmp.Or(cmp.Compare(b.CoverageScore, a.CoverageScore), strings.Compare(a.CampName, b.CampName))
	})
	slices.SortStableFunc(report.TopicsNeedingAttention, weakestFirst)
	slices.SortStableFunc(report.FastMovingTopics, weakestFirst)

	return report
}

// DomainReport rolls camps up per domain, most stale first.
func (c Canon) DomainReport(now time.Time) []DomainBreakdown {
	authors := c.authorIndex()

	type rollup struct {
		camps   int
		authors map[string]struct{}
	}
	byDomain := make(map[domain.DomainID]*rollup)
	for _, id := range c.settings.DomainIDs() {
		byDomain[id] = &rollup{authors: map[string]struct{}{}}
	}
	for _, camp := range c.Camps {
		r, ok := byDomain[camp.Domain]
		if !ok {
			r = &rollup{authors: map[string]struct{}{}}
			byDomain[camp.Domain] = r
		}
		r.camps++
		for _, m := range camp.Members {
			r.authors[m.AuthorID] = struct{}{}
		}
	}

	out := make([]DomainBreakdown, 0, len(byDomain))
	for id, r := range byDomain {
		b := DomainBreakdown{
			DomainID:    id,
			DomainLabel: c.settings.DomainLabel(id),
			CampCount:   r.camps,
			AuthorCount: len(r.authors),
		}
		var (
			totalDays int
			dated     int
		)
		for authorID := range r.authors {
			author, ok := authors[authorID]
			if !ok {
				continue
			}
			b.SourceCount += len(author.Sources)
			if latest, ok := author.MostRecentSourceDate(); ok {
				totalDays += domain.DaysSince(latest, now)
				dated++
			}
		}
		if dated > 0 {
			avg := int(math.Round(float64(totalDays) / float64(dated)))
			b.AvgDaysSinceUpdate = &avg
		}
		out = append(out, b)
	}

	staleness := func(b DomainBreakdown) int {
		if b.AvgDaysSinceUpdate == nil {
			return stalenessSortSentinel
		}
		return *b.AvgDaysSinceUpdate
	}
	slices.SortFunc(out, func(a, b DomainBreakdown) int {
		aDated, bDated := a.AvgDaysSinceUpdate != nil, b.AvgDaysSinceUpdate != nil
		if aDated != bDated {
			if aDated {
				return -1
			}
			return 1
		}
		return cmp.Or(cmp.Compare(staleness(b), staleness(a)), cmp.Compare(a.DomainID, b.DomainID))
	})
	return out
}
