package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CanonCurator/internal/domain"
)

func fixtureCanon() Canon {
	authors := []domain.Author{
		{ID: "a1", Name: "Ada", Sources: nil},
		{ID: "a2", Name: "Brook", Sources: []domain.Source{
			{Title: "Recent", PublishedDate: daysAgo(10).Format(domain.DateLayout)},
		}},
		{ID: "a3", Name: "Cyd", Sources: []domain.Source{
			{Title: "Old", PublishedDate: daysAgo(800).Format(domain.DateLayout)},
			{Title: "Undated"},
		}},
		{ID: "a4", Name: "Dee", Sources: []domain.Source{
			{Title: "Year only", Year: daysAgo(400).Format("2006")},
		}},
	}
	camps := []domain.Camp{
		{ID: "c1", Name: "Agents at work", Domain: 1, Members: []domain.CampAuthor{
			{AuthorID: "a2", Relevance: domain.RelevanceStrong, PositionSummary: "Optimist"},
			{AuthorID: "a3", Relevance: domain.RelevancePartial},
		}},
		{ID: "c2", Name: "Labor markets", Domain: 3, Members: []domain.CampAuthor{
			{AuthorID: "a2", Relevance: domain.RelevanceChallenges},
			{AuthorID: "a2", Relevance: domain.RelevanceChallenges},
		}},
		{ID: "c3", Name: "Empty camp", Domain: 3},
		{ID: "c4", Name: "Policy", Domain: 4, Members: []domain.CampAuthor{
			{AuthorID: "a3", Relevance: domain.RelevanceEmerging, PositionSummary: "   "},
		}},
	}
	return NewCanon(authors, camps, DefaultSettings())
}

func TestCurationQueue(t *testing.T) {
	t.Parallel()

	report := fixtureCanon().CurationQueue(testNow)

	assert.Equal(t, CurationSummary{
		Total:                  4,
		Critical:               2,
		High:                   1,
		Medium:                 0,
		Low:                    1,
		WithoutSources:         1,
		WithoutPositionSummary: 3,
	}, report.Summary)

	// Brook scores zero and stays out of the queue
	require.Len(t, report.Queue, 3)
	assert.Equal(t, "a1", report.Queue[0].AuthorID)
	assert.Equal(t, 140, report.Queue[0].Score)
	assert.Equal(t, "a3", report.Queue[1].AuthorID)
	assert.Equal(t, 120, report.Queue[1].Score)
	assert.Equal(t, 2, report.Queue[1].CampCount)
	assert.Equal(t, "a4", report.Queue[2].AuthorID)
	assert.Equal(t, 90, report.Queue[2].Score)

	assert.Len(t, report.ByUrgency.Critical, 2)
	assert.Len(t, report.ByUrgency.High, 1)
	assert.Empty(t, report.ByUrgency.Low)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var shape map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &shape))
	assert.Contains(t, shape, "summary")
	assert.Contains(t, shape, "queue")
	assert.Contains(t, shape, "byUrgency")
}

func TestTopicCoverageReport(t *testing.T) {
	t.Parallel()

	report := fixtureCanon().TopicCoverageReport(testNow)

	require.Len(t, report.AllTopics, 4)
	byID := map[string]TopicCoverage{}
	for _, topic := range report.AllTopics {
		byID[topic.CampID] = topic
	}

	agents := byID["c1"]
	assert.True(t, agents.IsFastMoving)
	assert.Equal(t, 2, agents.AuthorCount)
	assert.Equal(t, 3, agents.SourceCount)
	// 10 authors + 5 sources + 30 fresh
	assert.Equal(t, 45, agents.CoverageScore)
	assert.Equal(t, LevelModerate, agents.Level)

	labor := byID["c2"]
	assert.Equal(t, 1, labor.AuthorCount, "duplicate membership counts once")
	assert.Equal(t, 45, labor.CoverageScore)
	assert.False(t, labor.IsFastMoving)

	policy := byID["c4"]
	assert.Equal(t, 15, policy.CoverageScore)
	assert.Equal(t, LevelWeak, policy.Level)

	empty := byID["c3"]
	assert.Equal(t, LevelNone, empty.Level)
	assert.Equal(t, 0, empty.CoverageScore)

	assert.Equal(t, CoverageSummary{Moderate: 2, Weak: 1, None: 1}, report.Summary)
	require.Len(t, report.TopicsNeedingAttention, 2)
	assert.Equal(t, "c3", report.TopicsNeedingAttention[0].CampID)
	assert.Equal(t, "c4", report.TopicsNeedingAttention[1].CampID)
	require.Len(t, report.FastMovingTopics, 1)
	assert.Equal(t, "c1", report.AllTopics[0].CampID)
	assert.Equal(t, "Technology & Capabilities", agents.DomainLabel)
}

func TestDomainReport(t *testing.T) {
	t.Parallel()

	rows := fixtureCanon().DomainReport(testNow)
	require.Len(t, rows, 5)

	// Policy: a3 only, 800 days; Technology: a2 (10) and a3 (800) averages 405; Work: a2 only
	assert.Equal(t, domain.DomainID(4), rows[0].DomainID)
	require.NotNil(t, rows[0].AvgDaysSinceUpdate)
	assert.Equal(t, 800, *rows[0].AvgDaysSinceUpdate)

	assert.Equal(t, domain.DomainID(1), rows[1].DomainID)
	assert.Equal(t, 405, *rows[1].AvgDaysSinceUpdate)
	assert.Equal(t, 2, rows[1].AuthorCount)
	assert.Equal(t, 3, rows[1].SourceCount)

	assert.Equal(t, domain.DomainID(3), rows[2].DomainID)
	assert.Equal(t, 2, rows[2].CampCount)
	assert.Equal(t, 1, rows[2].AuthorCount)

	// undated domains sort last and report no average
	for _, row := range rows[3:] {
		assert.Nil(t, row.AvgDaysSinceUpdate)
		assert.Equal(t, 0, row.CampCount)
	}
	assert.Equal(t, domain.DomainID(2), rows[3].DomainID)
	assert.Equal(t, domain.DomainID(5), rows[4].DomainID)
}
