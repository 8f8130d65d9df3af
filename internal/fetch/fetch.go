// Package fetch retrieves page markup over HTTP, with a headless browser as the
// fallback for pages the direct request cannot load.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 20 * time.Second

// UserAgentName is the product token matched against robots.txt groups.
const UserAgentName = "NewsDigestBot"

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; " + UserAgentName + "/1.0; +https://github.com/jonathan/news-digest)"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 5 << 20

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Error is a network or browser failure for one URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures direct requests.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// DefaultOptions returns browser-like headers and the default timeout.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
}

// URL performs a direct GET. A non-2xx response returns both the Result and an *Error.
func URL(ctx context.Context, rawURL string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	fail := func(msg string, cause error) *Error {
		return &Error{URL: rawURL, Message: msg, Cause: cause}
	}

	if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fail("invalid URL", err)
	}

	req, err := opts.request(ctx, rawURL)
	if err != nil {
		return nil, fail("failed to create request", err)
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, fail("HTTP request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fail("failed to read response body", err)
	}

	res := &Result{
		URL:         resp.Request.URL.String(),
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode/100 != 2 {
		return res, fail(fmt.Sprintf("HTTP status %d", resp.StatusCode), nil)
	}
	return res, nil
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: o.Timeout}
}

func (o *Options) request(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	ua := o.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// ExtractMainText parses HTML and returns the main body text.
// Noise elements are removed first; the first matching content selector wins,
// falling back to the body element.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, aside, script, style, noscript, form, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .newsletter-signup, .related, .share").Remove()
	if len(noiseSelectors) > 0 {
		doc.Find(strings.Join(noiseSelectors, ", ")).Remove()
	}

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	return cleanWhitespace(mainContent.Text()), nil
}

// DefaultTextSelectors returns content selectors common on news article pages.
func DefaultTextSelectors() []string {
	return []string{
		"article",
		"[itemprop='articleBody']",
		".article-body",
		".entry-content",
		".post-content",
		"main",
		"#content",
		".content",
	}
}

// cleanWhitespace collapses runs of spaces within each line and drops blank lines.
func cleanWhitespace(text string) string {
	var b strings.Builder
	for line := range strings.Lines(text) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(fields, " "))
	}
	return b.String()
}
