// Package filter narrows deduplicated candidates to fresh, relevant articles.
//
// Stage A applies deterministic rules. Stage B asks the AI model to judge relevance
// and fails closed: if the model cannot be reached, the error is returned instead
// of letting every candidate through.
package filter

import (
	"time"

	"github.com/jonathan/news-digest/internal/types"
)

// DefaultFrequencyWeeks is used when the newsletter frequency is unset.
const DefaultFrequencyWeeks = 1

// Window converts the newsletter frequency in weeks into the recency window.
func Window(frequencyWeeks int) time.Duration {
	if frequencyWeeks <= 0 {
		frequencyWeeks = DefaultFrequencyWeeks
	}
	return time.Duration(frequencyWeeks) * 7 * 24 * time.Hour
}

// Options configures Stage A.
type Options struct {
	Window time.Duration
	Now    func() time.Time
	// RequireDate holds the names of scraped sources whose candidates must carry a date.
	RequireDate map[string]bool
}

// RequireDateSources collects the names of sources that set RequireDate.
func RequireDateSources(specs []types.SourceSpec) map[string]bool {
	out := make(map[string]bool)
	for _, s := range specs {
		if s.RequireDate {
			out[s.Name] = true
		}
	}
	return out
}

// StageA drops candidates that are older than the window, that lack a link or
// title, or that come from a date-requiring source without a date. Dateless
// candidates pass the age rule. Order is preserved.
func StageA(candidates []types.CountedCandidate, opts Options) []types.CountedCandidate {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().Add(-opts.Window)

	out := make([]types.CountedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Link == "" || c.Title == "" {
			continue
		}
		if c.Date == nil {
			if c.SourceName != "" && opts.RequireDate[c.SourceName] {
				continue
			}
		} else if opts.Window > 0 && c.Date.Before(cutoff) {
			continue
		}
		out = append(out, c)
	}
	return out
}
