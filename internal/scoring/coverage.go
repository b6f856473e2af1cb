package scoring

import (
	"time"

	"CanonCurator/internal/domain"
)

// CoverageLevel bands a topic's coverage score.
type CoverageLevel string

const (
	LevelStrong   CoverageLevel = "strong"
	LevelModerate CoverageLevel = "moderate"
	LevelWeak     CoverageLevel = "weak"
	LevelNone     CoverageLevel = "none"
)

const (
	strongCoverageMin   = 70
	moderateCoverageMin = 45
)

// LevelFor bands a coverage score.
func LevelFor(score int) CoverageLevel {
	switch {
	case score >= strongCoverageMin:
		return LevelStrong
	case score >= moderateCoverageMin:
		return LevelModerate
	case score > 0:
		return LevelWeak
	default:
		return LevelNone
	}
}

// TopicSignals are the aggregated counts for one camp.
type TopicSignals struct {
	Label       string
	AuthorCount int
	SourceCount int
	MostRecent  time.Time
	HasDate     bool
}

// Coverage is the 0-100 strength of a topic with its per-term breakdown.
type Coverage struct {
	Score           int           `json:"score"`
	Level           CoverageLevel `json:"level"`
	FastMoving      bool          `json:"isFastMoving"`
	AuthorPoints    int           `json:"authorPoints"`
	SourcePoints    int           `json:"sourcePoints"`
	FreshnessPoints int           `json:"freshnessPoints"`
	DaysSinceUpdate *int          `json:"daysSinceUpdate"`
	Insight         string        `json:"insight"`
}

// TopicStrength scores a topic. Higher is healthier. A topic with no authors is always 0/none.
func TopicStrength(sig TopicSignals, now time.Time, settings Settings) Coverage {
	c := Coverage{FastMoving: settings.IsFastMoving(sig.Label)}

	if sig.HasDate {
		days := domain.DaysSince(sig.MostRecent, now)
		c.DaysSinceUpdate = &days
	}

	if sig.AuthorCount > 0 {
		c.AuthorPoints = AuthorCountPoints(sig.AuthorCount)
		c.SourcePoints = SourceCountPoints(sig.SourceCount)
		if c.DaysSinceUpdate != nil {
			windows := settings.Thresholds().Standard
			if c.FastMoving {
				windows = settings.Thresholds().FastMoving
			}
			c.FreshnessPoints = FreshnessPoints(*c.DaysSinceUpdate, windows)
		}
		c.Score = c.AuthorPoints + c.SourcePoints + c.FreshnessPoints
	}

	c.Level = LevelFor(c.Score)
	c.Insight = Insight(c.Level, c.FastMoving, sig.AuthorCount, c.DaysSinceUpdate)
	return c
}

// AuthorCountPoints is 40/30/20 at 10/5/3 authors and 10 for any smaller non-empty camp.
func AuthorCountPoints(n int) int {
	switch {
	case n >= 10:
		return 40
	case n >= 5:
		return 30
	case n >= 3:
		return 20
	case n > 0:
		return 10
	default:
		return 0
	}
}

// SourceCountPoints is 30/20/15/5 at 20/10/5/1 sources.
func SourceCountPoints(n int) int {
	switch {
	case n >= 20:
		return 30
	case n >= 10:
		return 20
	case n >= 5:
		return 15
	case n > 0:
		return 5
	default:
		return 0
	}
}

// FreshnessPoints is 30/20/10/0 across the three windows.
func FreshnessPoints(days int, w FreshnessWindows) int {
	switch {
	case days < w.FreshDays:
		return 30
	case days < w.RecentDays:
		return 20
	case days < w.AgingDays:
		return 10
	default:
		return 0
	}
}
