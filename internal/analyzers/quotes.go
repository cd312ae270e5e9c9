package analyzers

import (
	"regexp"
	"strconv"
)

var quoteLinkPattern = regexp.MustCompile(`>>(\d+)`)

// quotedPosts returns the distinct post numbers referenced by >>N links in
// plain text, in first-seen order.
func quotedPosts(text string) []int64 {
	found := quoteLinkPattern.FindAllStringSubmatch(text, -1)
	if len(found) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(found))
	out := make([]int64, 0, len(found))
	for _, match := range found {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
