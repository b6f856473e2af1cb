// Package classifier judges whether a cited source points at specific, citable content.
//
// URL and title are judged independently by ordered rule tables (first match wins) and the two
// findings are combined: generic beats ambiguous beats specific. The classifier only reports; it
// never blocks a write. Callers decide whether a verdict is a hard error or a warning.
package classifier

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Quality is the classifier verdict.
type Quality string

const (
	QualitySpecific  Quality = "specific"
	QualityGeneric   Quality = "generic"
	QualityAmbiguous Quality = "ambiguous"
)

const citableReason = "appears to be a specific, citable source"

// Finding is the outcome of one rule table.
type Finding struct {
	Rule    string  `json:"rule"`
	Quality Quality `json:"quality"`
	Reason  string  `json:"reason"`
}

// Verdict is the combined judgement for a URL and title pair.
type Verdict struct {
	Quality Quality `json:"quality"`
	Reason  string  `json:"reason"`
	URL     Finding `json:"url"`
	Title   Finding `json:"title"`
}

// Classify is pure and total: every input, including empty strings, yields exactly one verdict.
func Classify(rawURL, title string) Verdict {
	urlFinding := ClassifyURL(rawURL)
	titleFinding := ClassifyTitle(title)
	return combine(urlFinding, titleFinding)
}

// ClassifyURL runs the URL rule table alone.
func ClassifyURL(rawURL string) Finding {
	return firstMatch(urlRules, parseURLTarget(rawURL), urlFallback)
}

// ClassifyTitle runs the title rule table alone on the plain-text form of title.
func ClassifyTitle(title string) Finding {
	return firstMatch(titleRules, plainText(title), titleFallback)
}

func combine(u, t Finding) Verdict {
	v := Verdict{URL: u, Title: t}
	switch {
	case u.Quality == QualityGeneric || t.Quality == QualityGeneric:
		v.Quality = QualityGeneric
		v.Reason = "url: " + u.Reason + "; title: " + t.Reason
	case u.Quality == QualityAmbiguous:
		v.Quality = QualityAmbiguous
		v.Reason = u.Reason
	case t.Quality == QualityAmbiguous:
		v.Quality = QualityAmbiguous
		v.Reason = t.Reason
	default:
		v.Quality = QualitySpecific
		v.Reason = citableReason
	}
	return v
}

// scrapedMarkupExpr matches a closing tag or a character reference. A lone <script> in prose is kept as text.
var scrapedMarkupExpr = regexp.MustCompile(`</[a-zA-Z][a-zA-Z0-9]*\s*>|&([a-zA-Z][a-zA-Z0-9]*|#[0-9]+|#[xX][0-9a-fA-F]+);`)

// plainText strips markup and entities that leak into scraped titles and collapses whitespace.
func plainText(title string) string {
	title = strings.TrimSpace(title)
	if scrapedMarkupExpr.MatchString(title) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(title)); err == nil {
			title = doc.Text()
		}
	}
	return strings.Join(strings.Fields(title), " ")
}
