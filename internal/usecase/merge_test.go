package usecase

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CanonCurator/internal/domain"
)

func ptr(s string) *string { return &s }

func TestMatchEnrichmentFallsBackToNormalizedTitle(t *testing.T) {
	t.Parallel()

	results := []domain.EnrichedSourceDate{
		{OriginalTitle: "my title", EnrichedDate: ptr("2021-04"), Confidence: domain.ConfidenceHigh},
	}

	got, ok := MatchEnrichment("  My Title ", results)
	require.True(t, ok)
	assert.Equal(t, "my title", got.OriginalTitle)

	_, ok = MatchEnrichment("Another Title", results)
	assert.False(t, ok)
}

func TestMatchEnrichmentPrefersExactTitle(t *testing.T) {
	t.Parallel()

	results := []domain.EnrichedSourceDate{
		{OriginalTitle: "report", EnrichedDate: ptr("2020"), Confidence: domain.ConfidenceMedium},
		{OriginalTitle: "Report", EnrichedDate: ptr("2022"), Confidence: domain.ConfidenceHigh},
	}

	got, ok := MatchEnrichment("Report", results)
	require.True(t, ok)
	assert.Equal(t, "2022", got.Date())

	got, ok = MatchEnrichment("REPORT ", results)
	require.True(t, ok)
	assert.Equal(t, "2020", got.Date(), "first normalized result wins")
}

func TestAcceptEnrichment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		date       *string
		confidence domain.Confidence
		wantDate   string
		wantYear   string
		wantOK     bool
	}{
		{name: "full date", date: ptr("2023-05-17"), confidence: domain.ConfidenceHigh, wantDate: "2023-05-17", wantYear: "2023", wantOK: true},
		{name: "year month", date: ptr("2023-05"), confidence: domain.ConfidenceMedium, wantDate: "2023-05-01", wantYear: "2023", wantOK: true},
		{name: "year only", date: ptr("2019"), confidence: domain.ConfidenceHigh, wantDate: "2019-01-01", wantYear: "2019", wantOK: true},
		{name: "padded", date: ptr(" 2019-02 "), confidence: domain.ConfidenceHigh, wantDate: "2019-02-01", wantYear: "2019", wantOK: true},
		{name: "low confidence", date: ptr("2023-05-17"), confidence: domain.ConfidenceLow},
		{name: "unknown confidence", date: ptr("2023-05-17"), confidence: ""},
		{name: "null date", date: nil, confidence: domain.ConfidenceHigh},
		{name: "empty date", date: ptr(""), confidence: domain.ConfidenceHigh},
		{name: "prose date", date: ptr("May 2023"), confidence: domain.ConfidenceHigh},
		{name: "bad month", date: ptr("2023-13"), confidence: domain.ConfidenceHigh},
		{name: "bad day", date: ptr("2023-02-30"), confidence: domain.ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			date, year, ok := AcceptEnrichment(domain.EnrichedSourceDate{EnrichedDate: tt.date, Confidence: tt.confidence})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantYear, year)
		})
	}
}

func TestMergeSourcesWritesOnlyDateAndProvenance(t *testing.T) {
	t.Parallel()

	original := domain.Source{
		Title:   "Keynote on agents",
		URL:     "https://example.com/talks/keynote-on-agents",
		Type:    "video",
		Summary: "A talk.",
		Extra:   map[string]json.RawMessage{"tags": json.RawMessage(`["ai"]`)},
	}
	results := []domain.EnrichedSourceDate{{
		OriginalTitle: "keynote on agents",
		EnrichedDate:  ptr("2024-03"),
		Confidence:    domain.ConfidenceMedium,
		Source:        "gpt",
	}}

	out := MergeSources([]domain.Source{original}, results)
	require.Equal(t, 1, out.Changed)

	got := out.Sources[0]
	assert.Equal(t, "2024-03-01", got.PublishedDate)
	assert.Equal(t, "2024", got.Year)
	assert.True(t, got.DateEnriched)
	assert.Equal(t, "gpt", got.EnrichmentSource)
	assert.Equal(t, domain.ConfidenceMedium, got.EnrichmentConfidence)

	assert.Equal(t, original.Title, got.Title)
	assert.Equal(t, original.URL, got.URL)
	assert.Equal(t, original.Type, got.Type)
	assert.Equal(t, original.Summary, got.Summary)
	assert.Equal(t, original.Extra, got.Extra)

	assert.Empty(t, original.PublishedDate, "input must not be mutated")
}

func TestMergeSourcesKeepsCuratedDates(t *testing.T) {
	t.Parallel()

	curated := domain.Source{Title: "Essay", PublishedDate: "2021-02-03", Year: "2021"}
	results := []domain.EnrichedSourceDate{{OriginalTitle: "Essay", EnrichedDate: ptr("2023"), Confidence: domain.ConfidenceHigh}}

	out := MergeSources([]domain.Source{curated}, results)
	assert.Equal(t, 0, out.Changed)
	assert.True(t, out.Sources[0].Equal(curated))
}

func TestMergeSourcesCountsGatedAndUnmatched(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{Title: "one"}, {Title: "two"}, {Title: "three"}}
	results := []domain.EnrichedSourceDate{
		{OriginalTitle: "one", EnrichedDate: ptr("2020"), Confidence: domain.ConfidenceLow},
		{OriginalTitle: "two", EnrichedDate: ptr("2020-06"), Confidence: domain.ConfidenceHigh},
	}

	out := MergeSources(sources, results)
	assert.Equal(t, 1, out.Changed)
	assert.Equal(t, 1, out.Gated)
	assert.Equal(t, 1, out.Unmatched)
	assert.Equal(t, "", out.Sources[0].PublishedDate)
	assert.Equal(t, "2020-06-01", out.Sources[1].PublishedDate)
}

func TestMergeSourcesDefaultsProvenance(t *testing.T) {
	t.Parallel()

	out := MergeSources(
		[]domain.Source{{Title: "untitled talk"}},
		[]domain.EnrichedSourceDate{{OriginalTitle: "untitled talk", EnrichedDate: ptr("2022-10-10"), Confidence: domain.ConfidenceHigh}},
	)
	assert.Equal(t, defaultEnrichmentSource, out.Sources[0].EnrichmentSource)
}

// Rejected results must leave every field of every source untouched.
func TestMergeSourcesGatingLaw(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	titles := []string{"Alpha", "beta", "  Gamma  ", "Delta: a claim", "", "epsilon?"}
	dates := []string{"", "2020-01-01", "not-a-date", "2019-02-30"}
	years := []string{"", "2018", "20x1"}

	for i := 0; i < 1000; i++ {
		n := 1 + rng.Intn(5)
		sources := make([]domain.Source, n)
		results := make([]domain.EnrichedSourceDate, 0, n)
		for j := range sources {
			title := titles[rng.Intn(len(titles))]
			src := domain.Source{
				Title:         title,
				URL:           fmt.Sprintf("https://example.com/%d/%d", i, j),
				Type:          []string{"", "video", "article"}[rng.Intn(3)],
				PublishedDate: dates[rng.Intn(len(dates))],
				Year:          years[rng.Intn(len(years))],
				DateEnriched:  rng.Intn(2) == 0,
			}
			if rng.Intn(2) == 0 {
				src.Extra = map[string]json.RawMessage{"note": json.RawMessage(fmt.Sprintf(`{"n":%d}`, j))}
			}
			sources[j] = src

			rejected := domain.EnrichedSourceDate{OriginalTitle: title, Confidence: domain.ConfidenceHigh}
			switch rng.Intn(3) {
			case 0:
				rejected.EnrichedDate = ptr("2023-05-01")
				rejected.Confidence = domain.ConfidenceLow
			case 1:
				rejected.EnrichedDate = ptr("")
			default:
				rejected.EnrichedDate = nil
			}
			results = append(results, rejected)
		}

		before := make([]domain.Source, n)
		for j, src := range sources {
			before[j] = src.Clone()
		}

		out := MergeSources(sources, results)
		require.Equal(t, 0, out.Changed, "iteration %d", i)
		for j := range sources {
			require.True(t, out.Sources[j].Equal(before[j]), "iteration %d source %d", i, j)
			require.True(t, sources[j].Equal(before[j]), "input mutated at iteration %d source %d", i, j)
		}
	}
}

func TestNeedsDate(t *testing.T) {
	t.Parallel()

	assert.True(t, NeedsDate(domain.Source{}))
	assert.True(t, NeedsDate(domain.Source{Year: "2020"}))
	assert.True(t, NeedsDate(domain.Source{PublishedDate: "2020-02-30"}))
	assert.True(t, NeedsDate(domain.Source{PublishedDate: "2020-02-03", DateEnriched: true}))
	assert.False(t, NeedsDate(domain.Source{PublishedDate: "2020-02-03"}))
}
