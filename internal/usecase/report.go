package usecase

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// topEnrichedLimit caps the topEnriched list of a run report.
const topEnrichedLimit = 10

// AuthorStatus is the state of one author within an enrichment run.
type AuthorStatus string

const (
	StatusPending   AuthorStatus = "pending"
	StatusEnriching AuthorStatus = "enriching"
	StatusMerged    AuthorStatus = "merged"
	StatusSkipped   AuthorStatus = "skipped"
	StatusFailed    AuthorStatus = "failed"
)

// AuthorResult is the per-author outcome of an enrichment run.
type AuthorResult struct {
	AuthorID      string       `json:"authorId"`
	AuthorName    string       `json:"authorName"`
	Status        AuthorStatus `json:"status"`
	Success       bool         `json:"success"`
	EnrichedCount int          `json:"enrichedCount"`
	TotalSources  int          `json:"totalSources"`
	Error         string       `json:"error,omitempty"`
}

// EnrichedAuthor is an entry of the topEnriched list.
type EnrichedAuthor struct {
	AuthorID      string `json:"authorId"`
	AuthorName    string `json:"authorName"`
	EnrichedCount int    `json:"enrichedCount"`
}

// RunReport summarises one enrichment run. Results keep group submission order.
type RunReport struct {
	RunID            string           `json:"runId"`
	StartedAt        time.Time        `json:"startedAt"`
	FinishedAt       time.Time        `json:"finishedAt"`
	TotalAuthors     int              `json:"totalAuthors"`
	ProcessedAuthors int              `json:"processedAuthors"`
	FailedAuthors    int              `json:"failedAuthors"`
	UnchangedAuthors int              `json:"unchangedAuthors"`
	EnrichedSources  int              `json:"enrichedSources"`
	TopEnriched      []EnrichedAuthor `json:"topEnriched"`
	Results          []AuthorResult   `json:"results"`
}

func newRunReport(runID string, startedAt time.Time, total int) RunReport {
	return RunReport{
		RunID:        runID,
		StartedAt:    startedAt,
		TotalAuthors: total,
		TopEnriched:  []EnrichedAuthor{},
		Results:      make([]AuthorResult, 0, total),
	}
}

// fold appends one joined group to the report.
func (r *RunReport) fold(group []AuthorResult) {
	for _, res := range group {
		r.Results = append(r.Results, res)
		switch res.Status {
		case StatusFailed:
			r.FailedAuthors++
		case StatusSkipped:
			r.ProcessedAuthors++
			r.UnchangedAuthors++
		default:
			r.ProcessedAuthors++
			r.EnrichedSources += res.EnrichedCount
		}
	}
}

// finish stamps the end time and ranks the most enriched authors.
func (r *RunReport) finish(finishedAt time.Time) {
	r.FinishedAt = finishedAt

	top := make([]EnrichedAuthor, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Status != StatusMerged {
			continue
		}
		top = append(top, EnrichedAuthor{AuthorID: res.AuthorID, AuthorName: res.AuthorName, EnrichedCount: res.EnrichedCount})
	}
	slices.SortStableFunc(top, func(a, b EnrichedAuthor) int {
		return cmp.Compare(b.EnrichedCount, a.EnrichedCount)
	})
	if len(top) > topEnrichedLimit {
		top = top[:topEnrichedLimit]
	}
	r.TopEnriched = top
}

// Failures returns the failed results in submission order.
func (r RunReport) Failures() []AuthorResult {
	var out []AuthorResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// FormatRunSummary renders a short plain-text digest for notifications.
func FormatRunSummary(r RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date enrichment run %s\n", r.RunID)
	fmt.Fprintf(&b, "Authors: %d total, %d processed, %d unchanged, %d failed\n",
		r.TotalAuthors, r.ProcessedAuthors, r.UnchangedAuthors, r.FailedAuthors)
	fmt.Fprintf(&b, "Sources enriched: %d\n", r.EnrichedSources)
	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}

	if len(r.TopEnriched) > 0 {
		b.WriteString("\nMost enriched:\n")
		for _, a := range r.TopEnriched {
			fmt.Fprintf(&b, "- %s: %d\n", a.AuthorName, a.EnrichedCount)
		}
	}

	if failures := r.Failures(); len(failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "- %s: %s\n", f.AuthorName, f.Error)
		}
	}

	return b.String()
}
