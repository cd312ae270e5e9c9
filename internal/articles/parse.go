package articles

import (
	"math"
	"regexp"
	"strings"

	"boardwatch/internal/services"
	"boardwatch/internal/services/llm"
)

// Fallbacks used when the model omits a field.
const (
	FallbackHeadline = "Untitled Thread"
	FallbackArticle  = "No content generated"
)

// MaxClassificationExamples bounds the excerpts kept from one classification.
const MaxClassificationExamples = 2

var (
	// Labels are uppercase and start a line; neither pattern crosses a line
	// break between the label and its value.
	headlinePattern = regexp.MustCompile(`(?m)^[ \t*#_]*HEADLINE[ \t*_]*:[ \t*_]*(.+?)[ \t*_]*$`)
	articlePattern  = regexp.MustCompile(`(?ms)^[ \t*#_]*ARTICLE[ \t*_]*:[ \t*_]*(.+)`)
)

// Summary is the parsed summarization output. Complete is false when either
// field fell back to its default.
type Summary struct {
	Headline string
	Article  string
	Complete bool
}

// ParseSummary extracts the HEADLINE and ARTICLE fields. Missing fields are
// replaced by fallbacks and reported with services.ErrMalformedOutput; the
// returned Summary is always usable.
func ParseSummary(content string) (Summary, error) {
	summary := Summary{Headline: FallbackHeadline, Article: FallbackArticle, Complete: true}

	if m := headlinePattern.FindStringSubmatch(content); m != nil {
		if headline := strings.Trim(m[1], `"'*_ `+"\t"); headline != "" {
			summary.Headline = headline
		}
	}
	if m := articlePattern.FindStringSubmatch(content); m != nil {
		if article := strings.TrimSpace(m[1]); article != "" {
			summary.Article = article
		}
	}

	var missing []string
	if summary.Headline == FallbackHeadline {
		missing = append(missing, "headline")
	}
	if summary.Article == FallbackArticle {
		missing = append(missing, "article")
	}
	if len(missing) > 0 {
		summary.Complete = false
		return summary, services.Wrap(services.ErrMalformedOutput, "articles", "parse summary",
			"missing "+strings.Join(missing, " and "), nil)
	}
	return summary, nil
}

// Classification is the parsed classification output.
type Classification struct {
	Count    int
	Examples []string
}

type rawClassification struct {
	Count    float64 `json:"count"`
	Examples []any   `json:"examples"`
}

// ParseClassification decodes {count, examples}, tolerating code fences and
// surrounding prose. Non-string examples are ignored and at most two are
// kept. Decoding failures are reported with services.ErrMalformedOutput and a
// zero Classification.
func ParseClassification(content string) (Classification, error) {
	var raw rawClassification
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return Classification{}, services.Wrap(services.ErrMalformedOutput, "articles", "parse classification", "", err)
	}
	out := Classification{Count: int(math.Round(raw.Count))}
	for _, item := range raw.Examples {
		text, ok := item.(string)
		if !ok {
			continue
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		out.Examples = append(out.Examples, text)
		if len(out.Examples) == MaxClassificationExamples {
			break
		}
	}
	return out, nil
}

// clampCount bounds a model-reported count to [0, total].
func clampCount(count, total int) int {
	if count < 0 {
		return 0
	}
	if count > total {
		return total
	}
	return count
}

// limitWords truncates text to at most maxWords words.
func limitWords(text string, maxWords int) string {
	if maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
