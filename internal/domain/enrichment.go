package domain

// SourceRef is what the date-inference collaborator sees of a source.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Year  string `json:"year,omitempty"`
	Date  string `json:"date,omitempty"`
}

// EnrichedSourceDate is one inference result, aligned to its input by OriginalTitle.
type EnrichedSourceDate struct {
	OriginalTitle string     `json:"originalTitle"`
	EnrichedDate  *string    `json:"enrichedDate"`
	Confidence    Confidence `json:"confidence"`
	Reasoning     string     `json:"reasoning"`
	Source        string     `json:"source"`
}

// Date returns the inferred date or "" when the collaborator returned null.
func (e EnrichedSourceDate) Date() string {
	if e.EnrichedDate == nil {
		return ""
	}
	return *e.EnrichedDate
}
