package domain

import "strings"

// DomainID identifies one of the fixed canon domains.
type DomainID int

// Relevance tags how an author relates to a camp.
type Relevance string

const (
	RelevanceStrong     Relevance = "strong"
	RelevancePartial    Relevance = "partial"
	RelevanceChallenges Relevance = "challenges"
	RelevanceEmerging   Relevance = "emerging"
)

// Valid reports whether r is a known relevance tag.
func (r Relevance) Valid() bool {
	switch r {
	case RelevanceStrong, RelevancePartial, RelevanceChallenges, RelevanceEmerging:
		return true
	default:
		return false
	}
}

// CampAuthor is the membership edge between a camp and an author.
type CampAuthor struct {
	AuthorID        string    `json:"authorId"`
	Relevance       Relevance `json:"relevance"`
	PositionSummary string    `json:"positionSummary,omitempty"`
	Quote           string    `json:"quote,omitempty"`
}

// HasPositionSummary ignores whitespace-only summaries.
func (c CampAuthor) HasPositionSummary() bool {
	return strings.TrimSpace(c.PositionSummary) != ""
}

// Camp is a labeled perspective within a domain. Its coverage derives from its members' sources.
type Camp struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Domain  DomainID     `json:"domainId"`
	Members []CampAuthor `json:"members"`
}
