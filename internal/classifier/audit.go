package classifier

import "CanonCurator/internal/domain"

// SourceFinding is the verdict for one source of an author.
type SourceFinding struct {
	Index   int     `json:"index"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Verdict Verdict `json:"verdict"`
}

// AuthorAudit collects the non-specific findings for one author.
type AuthorAudit struct {
	AuthorID   string          `json:"authorId"`
	AuthorName string          `json:"authorName"`
	Specific   int             `json:"specific"`
	Generic    int             `json:"generic"`
	Ambiguous  int             `json:"ambiguous"`
	Findings   []SourceFinding `json:"findings"`
}

// AuditSummary counts verdicts across the audited authors.
type AuditSummary struct {
	Authors   int `json:"authors"`
	Sources   int `json:"sources"`
	Specific  int `json:"specific"`
	Generic   int `json:"generic"`
	Ambiguous int `json:"ambiguous"`
}

// AuditReport lists only authors that have at least one non-specific source.
type AuditReport struct {
	Summary AuditSummary  `json:"summary"`
	Authors []AuthorAudit `json:"authors"`
}

// AuditAuthor classifies every source of author.
func AuditAuthor(author domain.Author) AuthorAudit {
	audit := AuthorAudit{
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Findings:   []SourceFinding{},
	}
	for i, src := range author.Sources {
		v := Classify(src.URL, src.Title)
		switch v.Quality {
		case QualitySpecific:
			audit.Specific++
			continue
		case QualityGeneric:
			audit.Generic++
		case QualityAmbiguous:
			audit.Ambiguous++
		}
		audit.Findings = append(audit.Findings, SourceFinding{
			Index:   i,
			Title:   src.Title,
			URL:     src.URL,
			Verdict: v,
		})
	}
	return audit
}

// BuildAuditReport audits every author, keeping input order.
func BuildAuditReport(authors []domain.Author) AuditReport {
	report := AuditReport{Authors: []AuthorAudit{}}
	report.Summary.Authors = len(authors)
	for _, author := range authors {
		audit := AuditAuthor(author)
		report.Summary.Sources += len(author.Sources)
		report.Summary.Specific += audit.Specific
		report.Summary.Generic += audit.Generic
		report.Summary.Ambiguous += audit.Ambiguous
		if len(audit.Findings) > 0 {
			report.Authors = append(report.Authors, audit)
		}
	}
	return report
}
