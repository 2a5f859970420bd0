package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var workLinkRe = regexp.MustCompile(`href="/works/(\d+)"`)

// WorkIDs extracts every distinct work ID linked from a search-result page,
// sorted numerically for deterministic output.
func WorkIDs(body []byte) []string {
	matches := workLinkRe.FindAllSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := string(m[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})
	return ids
}

// PageURL appends the page number to a search URL, preserving any existing
// query string.
func PageURL(baseURL string, page int) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "page=" + strconv.Itoa(page)
}
