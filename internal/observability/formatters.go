// Package observability provides formatted output utilities for verbose CLI mode
// and the export formats a finished digest can be written in.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/news-digest/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// StageCount is the number of records that left one pipeline stage.
type StageCount struct {
	Stage string
	Count int
}

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStageCounts outputs how many records survived each stage, in order.
func (p *Printer) PrintStageCounts(counts []StageCount) {
	if len(counts) == 0 {
		return
	}

	var sb strings.Builder
	for i, c := range counts {
		sb.WriteString(fmt.Sprintf("%-28s %5d", c.Stage, c.Count))
		if i > 0 && counts[i-1].Count > 0 {
			dropped := counts[i-1].Count - c.Count
			if dropped > 0 {
				sb.WriteString(fmt.Sprintf("  (-%d)", dropped))
			}
		}
		if i < len(counts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PIPELINE STAGES", sb.String())
}

// PrintRankedArticles outputs the top ranked articles with their source.
func (p *Printer) PrintRankedArticles(articles []types.RankedArticle) {
	if len(articles) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total articles ranked: %d\n\n", len(articles)))

	count := min(len(articles), maxItemsToShow)
	for i := 0; i < count; i++ {
		a := articles[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, a.Title))
		sb.WriteString(fmt.Sprintf("    %s", a.Source()))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(articles) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more articles", len(articles)-maxItemsToShow))
	}

	p.printBox("TOP RANKED ARTICLES", sb.String())
}

// PrintDigest outputs the summary and each category with its articles.
func (p *Printer) PrintDigest(digest *types.DigestResult) {
	if digest == nil {
		return
	}

	var sb strings.Builder
	if digest.Summary != "" {
		sb.WriteString(wrap(digest.Summary, boxWidth-4))
		sb.WriteString("\n")
	}

	for _, group := range digest.Categories {
		sb.WriteString(fmt.Sprintf("\n%s (%d)\n", group.Category, len(group.Articles)))
		for _, a := range group.Articles {
			sb.WriteString(fmt.Sprintf("  • %s\n", a.Title))
		}
	}

	p.printBox("DIGEST", strings.TrimSuffix(sb.String(), "\n"))
}

// wrap breaks text into lines no longer than width at word boundaries.
func wrap(text string, width int) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
