package scoring

import "fmt"

// Insight renders display text for a topic. It never feeds back into scoring.
func Insight(level CoverageLevel, fastMoving bool, authorCount int, daysSinceUpdate *int) string {
	if authorCount == 0 {
		return "No authors mapped to this topic yet."
	}

	var staleness string
	switch {
	case daysSinceUpdate == nil:
		staleness = "no dated sources"
	case *daysSinceUpdate < 30:
		staleness = "updated this month"
	default:
		staleness = fmt.Sprintf("last source %d days ago", *daysSinceUpdate)
	}

	authors := "authors"
	if authorCount == 1 {
		authors = "author"
	}

	switch level {
	case LevelStrong:
		return fmt.Sprintf("Well covered: %d %s, %s.", authorCount, authors, staleness)
	case LevelModerate:
		if fastMoving {
			return fmt.Sprintf("Fast-moving topic with adequate coverage (%d %s, %s); check for recent developments.", authorCount, authors, staleness)
		}
		return fmt.Sprintf("Adequate coverage: %d %s, %s.", authorCount, authors, staleness)
	case LevelWeak:
		if fastMoving {
			return fmt.Sprintf("Fast-moving topic falling behind: %d %s, %s. Prioritize fresh sources.", authorCount, authors, staleness)
		}
		if authorCount < 3 {
			return fmt.Sprintf("Thin coverage: only %d %s, %s. Add perspectives.", authorCount, authors, staleness)
		}
		return fmt.Sprintf("Weak coverage: %d %s, %s. Add recent sources.", authorCount, authors, staleness)
	default:
		return fmt.Sprintf("No usable coverage: %d %s, %s.", authorCount, authors, staleness)
	}
}
