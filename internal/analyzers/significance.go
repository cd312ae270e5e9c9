package analyzers

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"boardwatch/internal/threads"
)

var checkPattern = regexp.MustCompile(`(?i)\bcheck`)

var getTypes = map[int]string{
	2: "dubs",
	3: "trips",
	4: "quads",
	5: "quints",
	6: "sexts",
	7: "septs",
	8: "octs",
	9: "nons",
}

// Significance finds GETs: posts whose number ends in two or more repeating
// digits. Candidates rank by how many replies quote them while saying
// "check", then by the length of the repeating run.
type Significance struct {
	top int
	now func() time.Time
}

// NewSignificance keeps the top n GETs per run.
func NewSignificance(top int) (*Significance, error) {
	if top <= 0 {
		return nil, fmt.Errorf("significance analyzer: top must be positive")
	}
	return &Significance{top: top, now: time.Now}, nil
}

func (s *Significance) Name() string { return NameSignificance }

func (s *Significance) Description() string {
	return "Ranks posts with repeating trailing digits by check replies"
}

func (s *Significance) Analyze(selection []threads.Thread) ([]Result, error) {
	var candidates []Get
	scanned := 0
	for _, thread := range selection {
		posts := thread.AllPosts()
		scanned += len(posts)
		checks := checkCounts(posts)
		for _, post := range posts {
			digits := RepeatingDigits(post.No)
			if digits < 2 {
				continue
			}
			candidates = append(candidates, Get{
				PostNo:     post.No,
				ThreadID:   thread.No,
				Comment:    post.Text(),
				CheckCount: checks[post.No],
				DigitCount: digits,
				GetType:    GetType(digits),
				HasImage:   post.HasMedia(),
				Filename:   post.Filename,
				Ext:        post.Ext,
				Tim:        post.Tim,
			})
		}
	}

	total := len(candidates)
	ranked := RankGets(candidates)
	if len(ranked) > s.top {
		ranked = ranked[:s.top]
	}

	now := s.now().UnixMilli()
	threadID, postID := anchorIDs(selection)
	return []Result{{
		Analyzer:  NameSignificance,
		Timestamp: now,
		ThreadID:  threadID,
		PostID:    postID,
		Gets:      ranked,
		Metadata: Metadata{
			TotalPostsAnalyzed: scanned,
			Matches:            total,
			LastAnalysis:       now,
		},
	}}, nil
}

// checkCounts maps post numbers to the number of distinct replies that quote
// them and say "check".
func checkCounts(posts []threads.Post) map[int64]int {
	counts := make(map[int64]int)
	for _, post := range posts {
		text := post.Text()
		if !checkPattern.MatchString(text) {
			continue
		}
		for _, target := range quotedPosts(text) {
			if target != post.No {
				counts[target]++
			}
		}
	}
	return counts
}

// ValidGet reports whether a candidate carries the fields ranking relies on.
func ValidGet(g Get) bool {
	return g.PostNo > 0 && g.GetType != "" && g.CheckCount >= 0 && g.DigitCount >= 0
}

// RankGets drops invalid candidates and sorts the rest by check count then
// digit count, both descending. The input slice is not modified.
func RankGets(gets []Get) []Get {
	out := make([]Get, 0, len(gets))
	for _, g := range gets {
		if ValidGet(g) {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CheckCount != out[j].CheckCount {
			return out[i].CheckCount > out[j].CheckCount
		}
		return out[i].DigitCount > out[j].DigitCount
	})
	return out
}

// RepeatingDigits counts how many trailing digits of n are identical.
func RepeatingDigits(n int64) int {
	if n <= 0 {
		return 0
	}
	last := n % 10
	count := 0
	for n > 0 && n%10 == last {
		count++
		n /= 10
	}
	return count
}

// GetType names a run of repeating digits.
func GetType(digits int) string {
	if name, ok := getTypes[digits]; ok {
		return name
	}
	if digits > 9 {
		return fmt.Sprintf("%d-of-a-kind", digits)
	}
	return ""
}
