// Package threads models the scraped forum corpus and loads it from disk.
package threads

import (
	"time"

	"boardwatch/internal/textutil"
)

// DefaultAuthor is shown when a post carries no display name.
const DefaultAuthor = "Anonymous"

// Post is a single reply inside a thread. Com may contain HTML markup.
type Post struct {
	No       int64  `json:"no"`
	Resto    int64  `json:"resto"`
	Name     string `json:"name,omitempty"`
	Com      string `json:"com,omitempty"`
	Time     int64  `json:"time"`
	Filename string `json:"filename,omitempty"`
	Ext      string `json:"ext,omitempty"`
	Tim      int64  `json:"tim,omitempty"`
}

// Author returns the display name, defaulting to Anonymous.
func (p Post) Author() string {
	if p.Name == "" {
		return DefaultAuthor
	}
	return p.Name
}

// Text returns the post body with markup removed.
func (p Post) Text() string {
	return textutil.StripMarkup(p.Com)
}

// HasMedia reports whether the post references an attachment.
func (p Post) HasMedia() bool {
	return p.Tim != 0 || p.Filename != ""
}

// TimestampMillis converts the post time (unix seconds) to unix milliseconds.
func (p Post) TimestampMillis() int64 {
	return p.Time * int64(time.Second/time.Millisecond)
}

// Thread is an opening post plus its replies in reply order.
type Thread struct {
	No       int64  `json:"no"`
	Time     int64  `json:"time"`
	Sub      string `json:"sub,omitempty"`
	Com      string `json:"com,omitempty"`
	Name     string `json:"name,omitempty"`
	Filename string `json:"filename,omitempty"`
	Ext      string `json:"ext,omitempty"`
	Tim      int64  `json:"tim,omitempty"`
	Posts    []Post `json:"posts"`
}

// PostCount is the number of replies.
func (t Thread) PostCount() int {
	return len(t.Posts)
}

// OP returns the opening post as a Post.
func (t Thread) OP() Post {
	return Post{
		No:       t.No,
		Resto:    0,
		Name:     t.Name,
		Com:      t.Com,
		Time:     t.Time,
		Filename: t.Filename,
		Ext:      t.Ext,
		Tim:      t.Tim,
	}
}

// HasBody reports whether the opening post carries text.
func (t Thread) HasBody() bool {
	return t.Com != ""
}

// AllPosts returns the opening post (when it has a body) followed by every reply.
func (t Thread) AllPosts() []Post {
	out := make([]Post, 0, len(t.Posts)+1)
	if t.HasBody() {
		out = append(out, t.OP())
	}
	return append(out, t.Posts...)
}
