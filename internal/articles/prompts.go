package articles

import (
	"fmt"
	"strings"

	"boardwatch/internal/services/llm"
	"boardwatch/internal/threads"
)

const summarySystemPrompt = `You write short news articles about discussions.
Read the posts and produce:
1. A headline of 4 to 6 words.
2. An article of at most %d words covering the main points, arguments and recommendations raised.

Quote posts verbatim inside quotation marks, and quote often.
Keep a neutral, academic tone.
Describe only what was said; do not refer to the discussion, the website or the posters as such.
Answer in exactly this format:
HEADLINE: <headline>
ARTICLE: <article>`

const classificationSystemPrompt = `You are a clinical reviewer of written arguments.
Identify posts that show pseudo-intellectual rhetoric, for example:
- jargon used in place of substance
- claimed expertise without evidence of knowledge
- ideas repeated without understanding
- no curiosity about opposing views

Judge each post independently and err on the side of flagging.
Reply with a JSON object only:
{"count": <number of flagged posts>, "examples": ["<verbatim excerpt>", "<verbatim excerpt>"]}
Give at most 2 examples, copied exactly from the posts.`

// FormatPosts renders the opening post and replies as "No.<id> <author>: <text>"
// lines, skipping empty bodies and stopping after limit posts (0 means no limit).
func FormatPosts(thread threads.Thread, limit int) []string {
	all := thread.AllPosts()
	out := make([]string, 0, len(all))
	for _, post := range all {
		text := post.Text()
		if text == "" {
			continue
		}
		out = append(out, fmt.Sprintf("No.%d %s: %s", post.No, post.Author(), text))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (g *Generator) summaryRequest(posts []string) llm.Request {
	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(summarySystemPrompt, g.settings.ArticleMaxWords)},
			{Role: llm.RoleUser, Content: "Summarize these posts:\n\n" + strings.Join(posts, "\n\n")},
		},
		MaxTokens:        g.settings.MaxTokens,
		Temperature:      g.settings.Temperature,
		TopP:             g.settings.TopP,
		FrequencyPenalty: g.settings.FrequencyPenalty,
		PresencePenalty:  g.settings.PresencePenalty,
	}
}

func (g *Generator) classificationRequest(posts []string) llm.Request {
	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classificationSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Review these %d posts:\n\n%s", len(posts), strings.Join(posts, "\n\n"))},
		},
		MaxTokens:   g.settings.MaxTokens,
		Temperature: g.settings.ClassificationTemperature,
	}
}
