package domain

import "time"

// Author is the unit the enrichment pipeline reads and writes back. It owns its sources exclusively.
type Author struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Affiliation string   `json:"affiliation,omitempty"`
	Sources     []Source `json:"sources"`
}

// MostRecentSourceDate is the max over sources with a resolvable date.
func (a Author) MostRecentSourceDate() (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, src := range a.Sources {
		t, _, ok := src.ResolvedDate()
		if !ok {
			continue
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest, found
}

// CloneSources copies the source list so callers can mutate it freely.
func (a Author) CloneSources() []Source {
	if a.Sources == nil {
		return nil
	}
	out := make([]Source, len(a.Sources))
	for i, src := range a.Sources {
		out[i] = src.Clone()
	}
	return out
}
