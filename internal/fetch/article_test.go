package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArticleText_Readability(t *testing.T) {
	body := strings.Repeat("Regulators approved the new emissions trading rules on Tuesday after months of debate. ", 10)
	html := `<html><head><title>Rules approved</title></head><body>
		<nav>Home | News | About</nav>
		<article><h1>Rules approved</h1><p>` + body + `</p><p>` + body + `</p></article>
		<footer>Copyright</footer>
	</body></html>`

	text, err := ExtractArticleText(html, "https://example.com/news/rules")
	require.NoError(t, err)
	assert.Contains(t, text, "Regulators approved the new emissions trading rules")
	assert.NotContains(t, text, "Copyright")
}

func TestExtractArticleText_ShortPageFallsBack(t *testing.T) {
	html := `<html><body><main><p>Short update.</p></main></body></html>`

	text, err := ExtractArticleText(html, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Short update.", text)
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b", TruncateWords("a  b c d", 2))
	assert.Equal(t, "a b", TruncateWords(" a\nb ", 5))
	assert.Equal(t, "a b c", TruncateWords("a b c", 0))
}
