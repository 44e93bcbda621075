package collector

import (
	"strconv"
	"strings"
)

// NormalizeImageURL strips the query string and upgrades the thumbnail
// transform to the large rendition. Empty and data: URLs yield "".
func NormalizeImageURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" || strings.HasPrefix(u, "data:") {
		return ""
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return strings.ReplaceAll(u, "tr:h-180", "tr:h-800")
}

// normalizeImages normalizes and de-duplicates image URLs, keeping first-seen order.
func normalizeImages(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		u := NormalizeImageURL(r)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// ParseReviewCount extracts the advertised total from the widget summary.
// Returns 0 when the text does not match.
func (s Selectors) ParseReviewCount(summary string) int {
	if s.SummaryPattern == nil {
		return 0
	}
	m := s.SummaryPattern.FindStringSubmatch(summary)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// collapseSpace trims text and folds internal whitespace runs.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
