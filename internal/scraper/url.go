package scraper

import (
	"net/url"
	"strings"
)

// ConstructFullURL turns an extracted href into an absolute https URL.
//
// A nil or blank href yields nil. Absolute hrefs are kept. Relative hrefs are joined
// against base; when the tail of base's directory path repeats at the head of href,
// the overlap appears once ("https://x.com/news/" + "news/item" gives
// "https://x.com/news/item"). An http scheme is upgraded to https.
func ConstructFullURL(base string, href *string) *string {
	if href == nil {
		return nil
	}
	ref := strings.TrimSpace(*href)
	if ref == "" {
		return nil
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return nil
	}

	var full string
	switch {
	case refURL.Scheme != "":
		full = ref
	case strings.HasPrefix(ref, "//"):
		full = "https:" + ref
	default:
		baseURL, err := url.Parse(strings.TrimSpace(base))
		if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
			return nil
		}
		full = joinRelative(baseURL, refURL)
	}

	if strings.HasPrefix(full, "http://") {
		full = "https://" + strings.TrimPrefix(full, "http://")
	}
	return &full
}

func joinRelative(base, ref *url.URL) string {
	origin := base.Scheme + "://" + base.Host

	var path string
	if strings.HasPrefix(ref.Path, "/") {
		path = ref.Path
	} else {
		dir := base.Path
		if !strings.HasSuffix(dir, "/") {
			// The last segment of a non-directory base is a page, not a folder
			if i := strings.LastIndex(dir, "/"); i >= 0 {
				dir = dir[:i+1]
			} else {
				dir = "/"
			}
		}
		baseSegs := splitSegments(dir)
		refSegs := splitSegments(ref.Path)
		overlap := segmentOverlap(baseSegs, refSegs)
		segs := append(baseSegs, refSegs[overlap:]...)
		path = "/" + strings.Join(segs, "/")
		if strings.HasSuffix(ref.Path, "/") && len(refSegs) > overlap {
			path += "/"
		}
	}

	full := origin + path
	if ref.RawQuery != "" {
		full += "?" + ref.RawQuery
	}
	if ref.Fragment != "" {
		full += "#" + ref.Fragment
	}
	return full
}

func splitSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}

// segmentOverlap returns the length of the longest suffix of base that is also a prefix of ref.
func segmentOverlap(base, ref []string) int {
	for n := min(len(base), len(ref)); n > 0; n-- {
		match := true
		for i := 0; i < n; i++ {
			if base[len(base)-n+i] != ref[i] {
				match = false
				break
			}
		}
		if match {
			return n
		}
	}
	return 0
}
