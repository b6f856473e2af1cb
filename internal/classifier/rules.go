package classifier

import (
	"net/url"
	"regexp"
	"strings"
)

// rule is one row of a first-match-wins table.
type rule[T any] struct {
	name    string
	quality Quality
	reason  string
	match   func(T) bool
}

// urlTarget is a pre-parsed URL so every rule sees the same view.
type urlTarget struct {
	raw      string
	host     string
	segments []string
	query    url.Values
	valid    bool
}

func parseURLTarget(raw string) urlTarget {
	raw = strings.TrimSpace(raw)
	t := urlTarget{raw: raw}
	if raw == "" {
		return t
	}
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return t
	}

	host := strings.ToLower(parsed.Hostname())
	for _, prefix := range []string{"www.", "m.", "mobile."} {
		host = strings.TrimPrefix(host, prefix)
	}
	t.host = host
	t.query = parsed.Query()
	t.valid = true
	for _, seg := range strings.Split(parsed.Path, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			t.segments = append(t.segments, strings.ToLower(seg))
		}
	}
	return t
}

func (t urlTarget) hostIs(hosts ...string) bool {
	for _, h := range hosts {
		if t.host == h || strings.HasSuffix(t.host, "."+h) {
			return true
		}
	}
	return false
}

func (t urlTarget) hasSegment(names ...string) bool {
	for _, seg := range t.segments {
		for _, name := range names {
			if seg == name {
				return true
			}
		}
	}
	return false
}

// segmentIndex returns the position of the first segment equal to name, or -1.
func (t urlTarget) segmentIndex(name string) int {
	for i, seg := range t.segments {
		if seg == name {
			return i
		}
	}
	return -1
}

// segmentFollowedBy reports whether one of names appears with at least one segment after it.
func (t urlTarget) segmentFollowedBy(names ...string) bool {
	for i := 0; i < len(t.segments)-1; i++ {
		for _, name := range names {
			if t.segments[i] == name {
				return true
			}
		}
	}
	return false
}

func (t urlTarget) last() string {
	if len(t.segments) == 0 {
		return ""
	}
	return t.segments[len(t.segments)-1]
}

var (
	datedPathExpr   = regexp.MustCompile(`^(19|20)\d{2}(-\d{2}(-\d{2})?)?$`)
	doiExpr         = regexp.MustCompile(`10\.\d{4,9}/\S+`)
	arxivIDExpr     = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?(\.pdf)?$`)
	numericIDExpr   = regexp.MustCompile(`^\d{5,}$`)
	trivialPageExpr = regexp.MustCompile(`^(index|home|default)(\.[a-z]+)?$`)
)

var videoHosts = []string{"youtube.com", "vimeo.com", "twitch.tv", "rumble.com"}

// socialHosts are platforms where a single path segment is just a handle.
var socialHosts = []string{
	"twitter.com", "x.com", "instagram.com", "tiktok.com", "threads.net",
	"facebook.com", "github.com", "bsky.app", "medium.com",
}

// landingSegments name index pages when they are the whole path.
var landingSegments = []string{
	"about", "about-us", "blog", "posts", "articles", "news", "podcast", "podcasts",
	"videos", "video", "episodes", "writing", "writings", "publications", "papers",
	"research", "talks", "team", "people", "profile", "bio", "contact", "archive",
}

var urlRules = []rule[urlTarget]{
	{
		name:    "missing-url",
		quality: QualityGeneric,
		reason:  "no usable URL",
		match:   func(t urlTarget) bool { return !t.valid },
	},
	{
		name:    "homepage",
		quality: QualityGeneric,
		reason:  "URL is a homepage",
		match: func(t urlTarget) bool {
			return len(t.segments) == 0 && len(t.query) == 0
		},
	},
	{
		name:    "video-channel",
		quality: QualityGeneric,
		reason:  "URL points to a channel, not a specific video",
		match: func(t urlTarget) bool {
			video := t.hostIs(videoHosts...)
			if i := t.segmentIndex("channel"); i >= 0 {
				if video || t.hostIs(socialHosts...) {
					return len(t.segments) <= 3
				}
				return i == len(t.segments)-2
			}
			if !video {
				return false
			}
			if len(t.segments) == 0 {
				return false
			}
			first := t.segments[0]
			if strings.HasPrefix(first, "@") || first == "c" || first == "user" {
				return len(t.segments) <= 2 || t.last() == "videos" || t.last() == "featured"
			}
			return false
		},
	},
	{
		name:    "social-profile",
		quality: QualityGeneric,
		reason:  "URL is a social profile, not a specific post",
		match: func(t urlTarget) bool {
			if t.hostIs("linkedin.com") && len(t.segments) <= 2 && t.hasSegment("in", "company") {
				return true
			}
			if t.hostIs(socialHosts...) && len(t.segments) == 1 {
				return true
			}
			if t.hostIs("tiktok.com", "medium.com", "substack.com") && len(t.segments) == 1 &&
				strings.HasPrefix(t.segments[0], "@") {
				return true
			}
			return false
		},
	},
	{
		name:    "author-page",
		quality: QualityGeneric,
		reason:  "URL is an author or profile page",
		match: func(t urlTarget) bool {
			return len(t.segments) <= 2 && t.hasSegment("author", "authors", "profile", "profiles", "people", "team")
		},
	},
	{
		name:    "landing-page",
		quality: QualityGeneric,
		reason:  "URL is a section landing page",
		match: func(t urlTarget) bool {
			if len(t.segments) != 1 {
				return false
			}
			for _, seg := range landingSegments {
				if t.segments[0] == seg {
					return true
				}
			}
			return trivialPageExpr.MatchString(t.segments[0])
		},
	},
	{
		name:    "specific-video",
		quality: QualitySpecific,
		reason:  "URL points to a specific video",
		match: func(t urlTarget) bool {
			if t.hostIs("youtube.com") {
				return (t.hasSegment("watch") && t.query.Get("v") != "") || t.segmentFollowedBy("shorts", "live", "embed")
			}
			if t.hostIs("youtu.be") {
				return len(t.segments) >= 1
			}
			if t.hostIs("vimeo.com") {
				return numericIDExpr.MatchString(t.last())
			}
			return t.segmentFollowedBy("video", "videos", "watch", "talk", "talks")
		},
	},
	{
		name:    "social-post",
		quality: QualitySpecific,
		reason:  "URL points to a specific social post",
		match: func(t urlTarget) bool {
			return t.segmentFollowedBy("status", "statuses", "post", "posts", "p", "reel", "pulse")
		},
	},
	{
		name:    "paper-identifier",
		quality: QualitySpecific,
		reason:  "URL identifies a paper",
		match: func(t urlTarget) bool {
			if t.hostIs("doi.org", "dx.doi.org") && len(t.segments) > 0 {
				return true
			}
			if doiExpr.MatchString(strings.ToLower(t.raw)) {
				return true
			}
			if t.segmentFollowedBy("abs", "pdf", "paper", "papers", "publication", "publications", "doi") {
				return true
			}
			return arxivIDExpr.MatchString(t.last()) || strings.HasSuffix(t.last(), ".pdf")
		},
	},
	{
		name:    "content-path",
		quality: QualitySpecific,
		reason:  "URL points to an individual article or episode",
		match: func(t urlTarget) bool {
			return t.segmentFollowedBy("article", "articles", "episode", "episodes", "blog", "news",
				"essay", "essays", "story", "stories", "interview", "interviews", "podcast", "transcript",
				"transcripts", "speech", "speeches", "book", "books", "report", "reports", "p", "watch")
		},
	},
	{
		name:    "dated-path",
		quality: QualitySpecific,
		reason:  "URL contains a publication date",
		match: func(t urlTarget) bool {
			for _, seg := range t.segments {
				if datedPathExpr.MatchString(seg) {
					return true
				}
			}
			return false
		},
	},
	{
		name:    "descriptive-slug",
		quality: QualitySpecific,
		reason:  "URL ends in a descriptive slug",
		match: func(t urlTarget) bool {
			last := strings.TrimSuffix(t.last(), ".html")
			return strings.Count(last, "-") >= 3 || strings.Count(last, "_") >= 3
		},
	},
	{
		name:    "non-trivial-path",
		quality: QualityAmbiguous,
		reason:  "URL path does not clearly identify a specific piece of content",
		match: func(t urlTarget) bool {
			for _, seg := range t.segments {
				if !trivialPageExpr.MatchString(seg) {
					return true
				}
			}
			return len(t.query) > 0
		},
	},
}

// urlFallback applies when nothing in urlRules matched: no distinguishing path.
var urlFallback = Finding{Rule: "no-distinguishing-path", Quality: QualityGeneric, Reason: "URL has no distinguishing path"}

var (
	genericTitleExpr = regexp.MustCompile(`(?i)\b(channel|homepage|home page|website|web site|profile|official site|landing page)\b`)
	outletTitleExpr  = regexp.MustCompile(`(?i)^(the\s+)?[\w'’.&-]+(\s+[\w'’.&-]+){0,2}\s+(blog|podcast|newsletter|substack|youtube|twitter|linkedin)$`)
	platformOnlyExpr = regexp.MustCompile(`(?i)^(blog|podcast|newsletter|substack|youtube|twitter|x|linkedin|medium|instagram|tiktok|github)$`)
	episodeExpr      = regexp.MustCompile(`(?i)(\b(ep|episode|part|no)\.?\s*#?\d+\b|#\d+\b)`)
	conversationExpr = regexp.MustCompile(`(?i)\b(interview|interviews|conversation|in conversation|chat|talk|talking|debate|q&a)\s+with\b`)
	bareNameExpr     = regexp.MustCompile(`^\p{Lu}[\p{L}'’-]+(\s+\p{Lu}\.?)?\s+\p{Lu}[\p{L}'’-]+$`)
)

const (
	longTitleThreshold  = 50
	shortTitleThreshold = 15
)

var titleRules = []rule[string]{
	{
		name:    "missing-title",
		quality: QualityAmbiguous,
		reason:  "title is missing",
		match:   func(s string) bool { return s == "" },
	},
	{
		name:    "generic-word",
		quality: QualityGeneric,
		reason:  "title describes a channel, homepage or profile",
		match:   func(s string) bool { return genericTitleExpr.MatchString(s) },
	},
	{
		name:    "outlet-name",
		quality: QualityGeneric,
		reason:  "title names a blog or feed in general",
		match: func(s string) bool {
			return platformOnlyExpr.MatchString(s) || outletTitleExpr.MatchString(s)
		},
	},
	{
		name:    "episode-number",
		quality: QualitySpecific,
		reason:  "title carries an episode number",
		match:   func(s string) bool { return episodeExpr.MatchString(s) },
	},
	{
		name:    "conversation",
		quality: QualitySpecific,
		reason:  "title names an interview or conversation",
		match:   func(s string) bool { return conversationExpr.MatchString(s) },
	},
	{
		name:    "structured",
		quality: QualitySpecific,
		reason:  "title states a specific topic or claim",
		match:   func(s string) bool { return strings.ContainsAny(s, ":?") },
	},
	{
		name:    "long-descriptive",
		quality: QualitySpecific,
		reason:  "title is long and descriptive",
		match:   func(s string) bool { return len([]rune(s)) > longTitleThreshold },
	},
	{
		name:    "too-short",
		quality: QualityAmbiguous,
		reason:  "title is too short to identify the content",
		match:   func(s string) bool { return len([]rune(s)) < shortTitleThreshold },
	},
	{
		name:    "bare-name",
		quality: QualityAmbiguous,
		reason:  "title is just a person's name",
		match:   func(s string) bool { return bareNameExpr.MatchString(s) },
	},
}

var titleFallback = Finding{Rule: "default-title", Quality: QualitySpecific, Reason: "title looks like a specific work"}

func firstMatch[T any](rules []rule[T], target T, fallback Finding) Finding {
	for _, r := range rules {
		if r.match(target) {
			return Finding{Rule: r.name, Quality: r.quality, Reason: r.reason}
		}
	}
	return fallback
}
