package sources

import (
	"strings"

	"prism-backend/internal/prism"
)

// Dedupe drops sources whose URL was already seen, keeping the first occurrence.
// Sources with an empty URL are dropped. The input is not modified.
func Dedupe(in []prism.GroundingSource) []prism.GroundingSource {
	seen := make(map[string]struct{}, len(in))
	out := make([]prism.GroundingSource, 0, len(in))
	for _, s := range in {
		u := strings.TrimSpace(s.URL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		s.URL = u
		out = append(out, s)
	}
	return out
}
