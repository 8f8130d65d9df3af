package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/news-digest/internal/observability"
)

// StageError is the single error a failed run surfaces. It names the stage
// that failed and the counts each earlier stage produced.
type StageError struct {
	Stage  string
	Counts []observability.StageCount
	Err    error
}

func (e *StageError) Error() string {
	if len(e.Counts) == 0 {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	parts := make([]string, len(e.Counts))
	for i, c := range e.Counts {
		parts[i] = fmt.Sprintf("%s=%d", c.Stage, c.Count)
	}
	return fmt.Sprintf("%s failed [%s]: %v", e.Stage, strings.Join(parts, " "), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
