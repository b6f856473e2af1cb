package scoring

import (
	"fmt"
	"time"

	"CanonCurator/internal/domain"
)

// Urgency is the band an author's curation priority falls into.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

const (
	noSourcesPoints    = 100
	severeStalePoints  = 80
	stalePoints        = 50
	agingPoints        = 30
	noPositionPoints   = 40
	manyCampsPoints    = 10
	manyCampsThreshold = 3
	criticalUrgencyMin = 100
	highUrgencyMin     = 60
	mediumUrgencyMin   = 30
)

// UrgencyFor bands a priority score.
func UrgencyFor(score int) Urgency {
	switch {
	case score >= criticalUrgencyMin:
		return UrgencyCritical
	case score >= highUrgencyMin:
		return UrgencyHigh
	case score >= mediumUrgencyMin:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// AuthorSignals are the already-fetched counts the priority scorer needs.
type AuthorSignals struct {
	SourceCount        int
	MostRecent         time.Time
	HasDate            bool
	HasPositionSummary bool
	CampCount          int
}

// Priority is the additive curation score with its human-readable explanation.
type Priority struct {
	Score           int      `json:"score"`
	Urgency         Urgency  `json:"urgency"`
	Reasons         []string `json:"reasons"`
	DaysSinceUpdate *int     `json:"daysSinceUpdate"`
}

// AuthorPriority scores how urgently an author needs curation. Higher is more urgent.
func AuthorPriority(sig AuthorSignals, now time.Time, th AuthorStaleness) Priority {
	p := Priority{Reasons: []string{}}

	if sig.SourceCount == 0 {
		p.Score += noSourcesPoints
		p.Reasons = append(p.Reasons, "No sources")
	}

	if sig.HasDate {
		days := domain.DaysSince(sig.MostRecent, now)
		p.DaysSinceUpdate = &days
		switch {
		case days > th.SevereDays:
			p.Score += severeStalePoints
			p.Reasons = append(p.Reasons, fmt.Sprintf("No new sources in %d days", days))
		case days > th.StaleDays:
			p.Score += stalePoints
			p.Reasons = append(p.Reasons, fmt.Sprintf("No new sources in %d days", days))
		case days > th.AgingDays:
			p.Score += agingPoints
			p.Reasons = append(p.Reasons, fmt.Sprintf("Sources aging (%d days)", days))
		}
	}

	if !sig.HasPositionSummary {
		p.Score += noPositionPoints
		p.Reasons = append(p.Reasons, "Missing position summary")
	}

	if sig.CampCount >= manyCampsThreshold {
		p.Score += manyCampsPoints
		p.Reasons = append(p.Reasons, fmt.Sprintf("Appears in %d camps", sig.CampCount))
	}

	p.Urgency = UrgencyFor(p.Score)
	return p
}
