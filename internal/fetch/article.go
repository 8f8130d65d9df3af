package fetch

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minReadableLength is the shortest readability output accepted before falling
// back to selector-based extraction.
const minReadableLength = 200

// ExtractArticleText returns the readable body text of an article page.
// go-readability is tried first; short or failed results fall back to ExtractMainText.
func ExtractArticleText(html, pageURL string) (string, error) {
	parsed, _ := url.Parse(pageURL)

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err == nil {
		text := cleanWhitespace(article.TextContent)
		if len(text) >= minReadableLength {
			return text, nil
		}
	}

	return ExtractMainText(html, DefaultTextSelectors())
}

// TruncateWords returns the first maxWords whitespace-delimited words of s.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if maxWords <= 0 || len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ")
}
