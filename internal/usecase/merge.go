package usecase

import (
	"strings"

	"golang.org/x/text/cases"

	"CanonCurator/internal/domain"
)

// defaultEnrichmentSource labels merged dates when the collaborator leaves provenance empty.
const defaultEnrichmentSource = "date-inference"

// MergeResult is the outcome of folding inference results into one author's sources.
type MergeResult struct {
	Sources   []domain.Source
	Changed   int
	Gated     int
	Unmatched int
}

// NeedsDate reports whether a source is eligible for date inference: it has no specific date yet,
// or its date came from an earlier enrichment. Curated dates are never replaced.
func NeedsDate(src domain.Source) bool {
	if src.DateEnriched {
		return true
	}
	_, precision, ok := src.ResolvedDate()
	return !ok || precision != domain.PrecisionDay
}

// normalizeTitle is the fallback match key: trimmed and case-folded.
func normalizeTitle(title string) string {
	return cases.Fold().String(strings.TrimSpace(title))
}

type enrichmentIndex struct {
	exact      map[string]domain.EnrichedSourceDate
	normalized map[string]domain.EnrichedSourceDate
}

func indexEnrichments(results []domain.EnrichedSourceDate) enrichmentIndex {
	idx := enrichmentIndex{
		exact:      make(map[string]domain.EnrichedSourceDate, len(results)),
		normalized: make(map[string]domain.EnrichedSourceDate, len(results)),
	}
	for _, r := range results {
		if _, ok := idx.exact[r.OriginalTitle]; !ok {
			idx.exact[r.OriginalTitle] = r
		}
		key := normalizeTitle(r.OriginalTitle)
		if _, ok := idx.normalized[key]; !ok {
			idx.normalized[key] = r
		}
	}
	return idx
}

func (idx enrichmentIndex) lookup(title string) (domain.EnrichedSourceDate, bool) {
	if r, ok := idx.exact[title]; ok {
		return r, true
	}
	r, ok := idx.normalized[normalizeTitle(title)]
	return r, ok
}

// MatchEnrichment finds the result for a source title: exact first, then trimmed and case-folded.
// When several results share a key the first one wins.
func MatchEnrichment(title string, results []domain.EnrichedSourceDate) (domain.EnrichedSourceDate, bool) {
	return indexEnrichments(results).lookup(title)
}

// AcceptEnrichment applies the confidence gate and date-shape normalization. Only high and medium
// confidence results carrying a YYYY-MM-DD, YYYY-MM or YYYY date pass.
func AcceptEnrichment(e domain.EnrichedSourceDate) (date, year string, ok bool) {
	if e.Confidence != domain.ConfidenceHigh && e.Confidence != domain.ConfidenceMedium {
		return "", "", false
	}
	raw := strings.TrimSpace(e.Date())
	if raw == "" {
		return "", "", false
	}
	return domain.NormalizeInferredDate(raw)
}

// MergeSources applies gated enrichments to copies of sources. Only date and provenance fields are
// written; every other field, and every source without an accepted match, passes through unchanged.
func MergeSources(sources []domain.Source, results []domain.EnrichedSourceDate) MergeResult {
	idx := indexEnrichments(results)
	out := MergeResult{Sources: make([]domain.Source, len(sources))}

	for i, src := range sources {
		out.Sources[i] = src.Clone()
		if !NeedsDate(src) {
			continue
		}

		match, ok := idx.lookup(src.Title)
		if !ok {
			out.Unmatched++
			continue
		}
		date, year, ok := AcceptEnrichment(match)
		if !ok {
			out.Gated++
			continue
		}

		provenance := strings.TrimSpace(match.Source)
		if provenance == "" {
			provenance = defaultEnrichmentSource
		}

		merged := out.Sources[i]
		merged.PublishedDate = date
		merged.Year = year
		merged.DateEnriched = true
		merged.EnrichmentSource = provenance
		merged.EnrichmentConfidence = match.Confidence

		if !merged.Equal(src) {
			out.Sources[i] = merged
			out.Changed++
		}
	}

	return out
}
