package sources

import (
	"regexp"
	"strings"

	"prism-backend/internal/prism"
)

var trustedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://vertexaisearch\.cloud\.google\.com/grounding-api-redirect/`),
}

// IsTrusted reports whether url is a search-grounding redirect link.
func IsTrusted(url string) bool {
	for _, p := range trustedPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// KnownURLs is the set of URLs discovered during a run's research step.
type KnownURLs map[string]struct{}

// NewKnownURLs builds the allow-list from discovered sources.
func NewKnownURLs(srcs []prism.GroundingSource) KnownURLs {
	known := make(KnownURLs, len(srcs))
	for _, s := range srcs {
		if u := strings.TrimSpace(s.URL); u != "" {
			known[u] = struct{}{}
		}
	}
	return known
}

// Contains matches exactly or with one trailing slash added or removed.
func (k KnownURLs) Contains(url string) bool {
	if len(k) == 0 || url == "" {
		return false
	}
	if _, ok := k[url]; ok {
		return true
	}
	if trimmed := strings.TrimSuffix(url, "/"); trimmed != url {
		_, ok := k[trimmed]
		return ok
	}
	_, ok := k[url+"/"]
	return ok
}

// ValidateURLs returns a copy of voices where every sourceUrl not in known and not trusted
// is cleared together with its sourceTitle. An empty known set keeps only trusted URLs.
// The second return value is the number of stripped voices.
func ValidateURLs(voices []prism.VoiceItem, known KnownURLs) ([]prism.VoiceItem, int) {
	out := make([]prism.VoiceItem, len(voices))
	stripped := 0
	for i, v := range voices {
		u := strings.TrimSpace(v.SourceURL)
		if u != "" && !known.Contains(u) && !IsTrusted(u) {
			v.SourceURL = ""
			v.SourceTitle = ""
			stripped++
		} else {
			v.SourceURL = u
		}
		out[i] = v
	}
	return out, stripped
}

// ValidateResult applies ValidateURLs to both voice lists of a Phase 1 result.
func ValidateResult(r prism.DeepListeningResult, known KnownURLs) (prism.DeepListeningResult, int) {
	hacks, a := ValidateURLs(r.PositiveHacks, known)
	pains, b := ValidateURLs(r.NegativePains, known)
	r.PositiveHacks = hacks
	r.NegativePains = pains
	return r, a + b
}

// CorrectTitles rewrites each voice's sourceTitle from the resolved title of its URL.
func CorrectTitles(r prism.DeepListeningResult, resolved []prism.GroundingSource) prism.DeepListeningResult {
	titles := make(map[string]string, len(resolved))
	for _, s := range resolved {
		if s.Title == "" {
			continue
		}
		titles[s.URL] = s.Title
		titles[strings.TrimSuffix(s.URL, "/")] = s.Title
	}
	fix := func(voices []prism.VoiceItem) []prism.VoiceItem {
		out := make([]prism.VoiceItem, len(voices))
		for i, v := range voices {
			if v.SourceURL != "" {
				if t, ok := titles[v.SourceURL]; ok {
					v.SourceTitle = t
				} else if t, ok := titles[strings.TrimSuffix(v.SourceURL, "/")]; ok {
					v.SourceTitle = t
				}
			}
			out[i] = v
		}
		return out
	}
	r.PositiveHacks = fix(r.PositiveHacks)
	r.NegativePains = fix(r.NegativePains)
	return r
}
