package scoring

import "CanonCurator/internal/domain"

// CurationQueueItem is one author in the curation queue. Rebuilt on every run.
type CurationQueueItem struct {
	AuthorID             string   `json:"authorId"`
	AuthorName           string   `json:"authorName"`
	Affiliation          string   `json:"affiliation,omitempty"`
	Score                int      `json:"score"`
	Urgency              Urgency  `json:"urgency"`
	Reasons              []string `json:"reasons"`
	SourceCount          int      `json:"sourceCount"`
	CampCount            int      `json:"campCount"`
	HasPositionSummary   bool     `json:"hasPositionSummary"`
	MostRecentSourceDate string   `json:"mostRecentSourceDate,omitempty"`
	DaysSinceUpdate      *int     `json:"daysSinceUpdate"`
}

// CurationSummary counts every author, including those with a zero score.
type CurationSummary struct {
	Total                  int `json:"total"`
	Critical               int `json:"critical"`
	High                   int `json:"high"`
	Medium                 int `json:"medium"`
	Low                    int `json:"low"`
	WithoutSources         int `json:"withoutSources"`
	WithoutPositionSummary int `json:"withoutPositionSummary"`
}

// UrgencyGroups splits the queue by band.
type UrgencyGroups struct {
	Critical []CurationQueueItem `json:"critical"`
	High     []CurationQueueItem `json:"high"`
	Medium   []CurationQueueItem `json:"medium"`
	Low      []CurationQueueItem `json:"low"`
}

// CurationQueueReport is the dashboard contract for the curation queue.
type CurationQueueReport struct {
	Summary   CurationSummary     `json:"summary"`
	Queue     []CurationQueueItem `json:"queue"`
	ByUrgency UrgencyGroups       `json:"byUrgency"`
}

// TopicCoverage is one camp's coverage. Rebuilt on every run.
type TopicCoverage struct {
	CampID               string          `json:"campId"`
	CampName             string          `json:"campName"`
	DomainID             domain.DomainID `json:"domainId"`
	DomainLabel          string          `json:"domainLabel"`
	AuthorCount          int             `json:"authorCount"`
	SourceCount          int             `json:"sourceCount"`
	MostRecentSourceDate string          `json:"mostRecentSourceDate,omitempty"`
	DaysSinceUpdate      *int            `json:"daysSinceUpdate"`
	IsFastMoving         bool            `json:"isFastMoving"`
	CoverageScore        int             `json:"coverageScore"`
	Level                CoverageLevel   `json:"level"`
	Insight              string          `json:"insight"`
}

// CoverageSummary counts topics per level.
type CoverageSummary struct {
	Strong   int `json:"strong"`
	Moderate int `json:"moderate"`
	Weak     int `json:"weak"`
	None     int `json:"none"`
}

// TopicCoverageReport is the dashboard contract for topic coverage.
type TopicCoverageReport struct {
	Summary                CoverageSummary `json:"summary"`
	TopicsNeedingAttention []TopicCoverage `json:"topicsNeedingAttention"`
	FastMovingTopics       []TopicCoverage `json:"fastMovingTopics"`
	AllTopics              []TopicCoverage `json:"allTopics"`
}

// DomainBreakdown is the canon health rollup for one domain.
type DomainBreakdown struct {
	DomainID           domain.DomainID `json:"domainId"`
	DomainLabel        string          `json:"domainLabel"`
	CampCount          int             `json:"campCount"`
	AuthorCount        int             `json:"authorCount"`
	SourceCount        int             `json:"sourceCount"`
	AvgDaysSinceUpdate *int            `json:"avgDaysSinceUpdate"`
}
