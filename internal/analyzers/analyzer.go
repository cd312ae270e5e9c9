package analyzers

import "boardwatch/internal/threads"

// Analyzer names used for result directories.
const (
	NameKeyword      = "keyword"
	NameSignificance = "get"
	NameReply        = "reply"
)

// Analyzer scans a selection and reports its findings.
type Analyzer interface {
	Name() string
	Description() string
	Analyze(selection []threads.Thread) ([]Result, error)
}

// Metadata describes the scan that produced a result.
type Metadata struct {
	TotalPostsAnalyzed int   `json:"totalPostsAnalyzed"`
	Matches            int   `json:"matches"`
	LastAnalysis       int64 `json:"lastAnalysis"`
}

// KeywordMatch is a post containing the tracked term.
type KeywordMatch struct {
	PostID    int64  `json:"postId"`
	ThreadID  int64  `json:"threadId"`
	Comment   string `json:"comment"`
	Timestamp int64  `json:"timestamp"`
	Name      string `json:"name"`
}

// Get is a post whose number ends in repeating digits.
type Get struct {
	PostNo     int64  `json:"postNo"`
	ThreadID   int64  `json:"threadId"`
	Comment    string `json:"comment"`
	CheckCount int    `json:"checkCount"`
	DigitCount int    `json:"digitCount"`
	GetType    string `json:"getType"`
	HasImage   bool   `json:"hasImage"`
	Filename   string `json:"filename,omitempty"`
	Ext        string `json:"ext,omitempty"`
	Tim        int64  `json:"tim,omitempty"`
}

// ReplyPost is a post ranked by the number of replies quoting it.
type ReplyPost struct {
	No       int64  `json:"no"`
	ThreadID int64  `json:"threadId"`
	Com      string `json:"com"`
	Replies  int    `json:"replies"`
}

// Result is one analyzer run. Exactly one of the payload slices is
// populated, matching Analyzer.
type Result struct {
	Analyzer  string         `json:"analyzer"`
	Timestamp int64          `json:"timestamp"`
	ThreadID  int64          `json:"threadId"`
	PostID    int64          `json:"postId"`
	Keyword   []KeywordMatch `json:"keywordMatches,omitempty"`
	Gets      []Get          `json:"gets,omitempty"`
	Replies   []ReplyPost    `json:"replies,omitempty"`
	Metadata  Metadata       `json:"metadata"`
}

// File is the on-disk shape of a per-analyzer results file.
type File struct {
	LastUpdated int64    `json:"lastUpdated"`
	Results     []Result `json:"results"`
}

// anchorIDs returns the first thread and its first reply, or -1 when absent.
func anchorIDs(selection []threads.Thread) (int64, int64) {
	threadID, postID := int64(-1), int64(-1)
	if len(selection) > 0 {
		threadID = selection[0].No
		if len(selection[0].Posts) > 0 {
			postID = selection[0].Posts[0].No
		}
	}
	return threadID, postID
}
