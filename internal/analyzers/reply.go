package analyzers

import (
	"fmt"
	"sort"
	"time"

	"boardwatch/internal/threads"
)

// Reply ranks posts by how many other posts quote them.
type Reply struct {
	top int
	now func() time.Time
}

// NewReply keeps the top n most-replied posts per run.
func NewReply(top int) (*Reply, error) {
	if top <= 0 {
		return nil, fmt.Errorf("reply analyzer: top must be positive")
	}
	return &Reply{top: top, now: time.Now}, nil
}

func (r *Reply) Name() string { return NameReply }

func (r *Reply) Description() string { return "Ranks posts by reply count" }

func (r *Reply) Analyze(selection []threads.Thread) ([]Result, error) {
	var candidates []ReplyPost
	scanned := 0
	for _, thread := range selection {
		posts := thread.AllPosts()
		scanned += len(posts)
		counts := make(map[int64]int)
		for _, post := range posts {
			for _, target := range quotedPosts(post.Text()) {
				if target != post.No {
					counts[target]++
				}
			}
		}
		for _, post := range posts {
			if n := counts[post.No]; n > 0 {
				candidates = append(candidates, ReplyPost{
					No:       post.No,
					ThreadID: thread.No,
					Com:      post.Text(),
					Replies:  n,
				})
			}
		}
	}

	total := len(candidates)
	SortReplies(candidates)
	if len(candidates) > r.top {
		candidates = candidates[:r.top]
	}

	now := r.now().UnixMilli()
	threadID, postID := anchorIDs(selection)
	return []Result{{
		Analyzer:  NameReply,
		Timestamp: now,
		ThreadID:  threadID,
		PostID:    postID,
		Replies:   candidates,
		Metadata: Metadata{
			TotalPostsAnalyzed: scanned,
			Matches:            total,
			LastAnalysis:       now,
		},
	}}, nil
}

// SortReplies orders posts by reply count descending, keeping input order for ties.
func SortReplies(posts []ReplyPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Replies > posts[j].Replies
	})
}
