package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SystemPrompt asks the model for a JSON article.
const SystemPrompt = `You are an expert technology writer.

Respond ONLY with valid JSON in this exact structure:
{
  "title": "Article title",
  "content": "Full article content with paragraphs separated by \n\n",
  "excerpt": "Brief 2-3 sentence summary",
  "tags": ["tag1", "tag2", "tag3"]
}

Requirements:
- Content must be at least 4 well-written paragraphs
- Separate paragraphs with double newlines (\n\n)
- Excerpt should summarize the main points in 2-3 sentences
- Include 3-5 relevant tags
- No markdown formatting, code blocks, or extra explanations
- Return ONLY the JSON object`

// Request is one unit of generation work.
type Request struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Result is the output of a successful attempt.
type Result struct {
	Candidate string   `json:"candidate"`
	Text      string   `json:"text"`
	Article   *Article `json:"article,omitempty"`
}

// Article is the structured content the system prompt asks for.
type Article struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
}

// ArticlePrompt builds the user prompt for a topic, or an open prompt that
// lets the model pick one.
func ArticlePrompt(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic != "" {
		return "Write a comprehensive blog article about: " + topic
	}
	return `Choose any interesting topic you want to write about, then write a comprehensive blog article about it.

Pick a DIFFERENT topic each time. It should be appropriate for a general audience, engaging, and specific. Make the title creative.`
}

var errNoJSON = errors.New("no JSON object in response")

// ParseArticle extracts an Article from model output. Code fences and text
// around the outermost JSON object are tolerated.
func ParseArticle(text string) (*Article, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}

	var raw struct {
		Title   string          `json:"title"`
		Content string          `json:"content"`
		Excerpt string          `json:"excerpt"`
		Tags    json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode article: %w", err)
	}
	if raw.Title == "" || raw.Content == "" || raw.Excerpt == "" || len(raw.Tags) == 0 {
		return nil, errors.New("article missing required fields")
	}

	a := &Article{
		Title:   strings.TrimSpace(raw.Title),
		Content: normalizeParagraphs(raw.Content),
		Excerpt: strings.TrimSpace(raw.Excerpt),
	}
	// Some models return a single tag as a bare string.
	if err := json.Unmarshal(raw.Tags, &a.Tags); err != nil {
		var one string
		if err := json.Unmarshal(raw.Tags, &one); err != nil {
			return nil, fmt.Errorf("decode article tags: %w", err)
		}
		a.Tags = []string{one}
	}
	return a, nil
}

func normalizeParagraphs(s string) string {
	parts := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
