package scoring

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"CanonCurator/internal/domain"
)

// AuthorStaleness holds the day thresholds for the author staleness term.
type AuthorStaleness struct {
	SevereDays int `yaml:"severeDays" json:"severeDays" validate:"gtfield=StaleDays"`
	StaleDays  int `yaml:"staleDays" json:"staleDays" validate:"gtfield=AgingDays"`
	AgingDays  int `yaml:"agingDays" json:"agingDays" validate:"gt=0"`
}

// FreshnessWindows holds the day windows for the topic freshness term.
type FreshnessWindows struct {
	FreshDays  int `yaml:"freshDays" json:"freshDays" validate:"gt=0"`
	RecentDays int `yaml:"recentDays" json:"recentDays" validate:"gtfield=FreshDays"`
	AgingDays  int `yaml:"agingDays" json:"agingDays" validate:"gtfield=RecentDays"`
}

// StalenessThresholds groups every day-based breakpoint the scorers use.
type StalenessThresholds struct {
	Author     AuthorStaleness  `yaml:"author" json:"author"`
	FastMoving FreshnessWindows `yaml:"fastMoving" json:"fastMoving"`
	Standard   FreshnessWindows `yaml:"standard" json:"standard"`
}

// DefaultThresholds are the reference breakpoints.
func DefaultThresholds() StalenessThresholds {
	return StalenessThresholds{
		Author:     AuthorStaleness{SevereDays: 730, StaleDays: 365, AgingDays: 180},
		FastMoving: FreshnessWindows{FreshDays: 60, RecentDays: 120, AgingDays: 180},
		Standard:   FreshnessWindows{FreshDays: 90, RecentDays: 180, AgingDays: 365},
	}
}

// DefaultFastMovingKeywords tag topics whose freshness decays quickly.
func DefaultFastMovingKeywords() []string {
	return []string{
		"agents", "agentic", "multimodal", "reasoning", "alignment", "regulation",
		"safety", "frontier", "scaling", "open source", "open-source", "compute",
		"capabilities", "agi",
	}
}

// DefaultDomains maps the fixed domain identifiers to their labels.
func DefaultDomains() map[domain.DomainID]string {
	return map[domain.DomainID]string{
		1: "Technology & Capabilities",
		2: "Society & Culture",
		3: "Work & Economy",
		4: "Governance & Policy",
		5: "Meaning & Purpose",
	}
}

// Settings is the immutable engine configuration handed to every scorer.
type Settings struct {
	thresholds StalenessThresholds
	keywords   []string
	domains    map[domain.DomainID]string
}

// NewSettings copies its inputs so later mutation by the caller cannot leak in.
func NewSettings(th StalenessThresholds, keywords []string, domains map[domain.DomainID]string) Settings {
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return Settings{
		thresholds: th,
		keywords:   kw,
		domains:    maps.Clone(domains),
	}
}

// DefaultSettings is NewSettings over the reference constants.
func DefaultSettings() Settings {
	return NewSettings(DefaultThresholds(), DefaultFastMovingKeywords(), DefaultDomains())
}

// Thresholds returns the staleness breakpoints.
func (s Settings) Thresholds() StalenessThresholds {
	return s.thresholds
}

// FastMovingKeywords returns a copy of the keyword list.
func (s Settings) FastMovingKeywords() []string {
	return slices.Clone(s.keywords)
}

// IsFastMoving matches keywords as case-insensitive substrings of the topic label.
func (s Settings) IsFastMoving(label string) bool {
	label = strings.ToLower(label)
	for _, k := range s.keywords {
		if strings.Contains(label, k) {
			return true
		}
	}
	return false
}

// DomainLabel resolves a domain identifier, falling back to a numbered label.
func (s Settings) DomainLabel(id domain.DomainID) string {
	if label, ok := s.domains[id]; ok {
		return label
	}
	return fmt.Sprintf("Domain %d", id)
}

// DomainIDs lists the configured domains in ascending order.
func (s Settings) DomainIDs() []domain.DomainID {
	return slices.Sorted(maps.Keys(s.domains))
}
