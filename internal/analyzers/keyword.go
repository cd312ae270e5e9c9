package analyzers

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"boardwatch/internal/threads"
)

// Keyword tracks whole-word, case-insensitive mentions of a single term.
type Keyword struct {
	term     string
	pattern  *regexp.Regexp
	maxPosts int
	now      func() time.Time
}

// NewKeyword builds a keyword analyzer. maxPosts bounds the retained matches.
func NewKeyword(term string, maxPosts int) (*Keyword, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("keyword analyzer: empty term")
	}
	if maxPosts <= 0 {
		return nil, fmt.Errorf("keyword analyzer: max posts must be positive")
	}
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("keyword analyzer: %w", err)
	}
	return &Keyword{term: term, pattern: pattern, maxPosts: maxPosts, now: time.Now}, nil
}

func (k *Keyword) Name() string { return NameKeyword }

func (k *Keyword) Description() string {
	return fmt.Sprintf("Tracks mentions of %q in posts", k.term)
}

// Analyze scans the opening post and every reply of each thread.
func (k *Keyword) Analyze(selection []threads.Thread) ([]Result, error) {
	type key struct {
		id      int64
		content string
	}
	seen := make(map[key]struct{})
	var matches []KeywordMatch
	scanned := 0

	for _, thread := range selection {
		for _, post := range thread.AllPosts() {
			scanned++
			if post.Com == "" {
				continue
			}
			text := post.Text()
			if !k.pattern.MatchString(text) {
				continue
			}
			id := key{id: post.No, content: text}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			matches = append(matches, KeywordMatch{
				PostID:    post.No,
				ThreadID:  thread.No,
				Comment:   text,
				Timestamp: post.TimestampMillis(),
				Name:      post.Author(),
			})
		}
	}

	total := len(matches)
	SortKeywordMatches(matches)
	if len(matches) > k.maxPosts {
		matches = matches[:k.maxPosts]
	}

	now := k.now().UnixMilli()
	threadID, postID := anchorIDs(selection)
	return []Result{{
		Analyzer:  NameKeyword,
		Timestamp: now,
		ThreadID:  threadID,
		PostID:    postID,
		Keyword:   matches,
		Metadata: Metadata{
			TotalPostsAnalyzed: scanned,
			Matches:            total,
			LastAnalysis:       now,
		},
	}}, nil
}

// SortKeywordMatches orders matches newest first, ties by post number descending.
func SortKeywordMatches(matches []KeywordMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Timestamp != matches[j].Timestamp {
			return matches[i].Timestamp > matches[j].Timestamp
		}
		return matches[i].PostID > matches[j].PostID
	})
}
