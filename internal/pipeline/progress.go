package pipeline

import "github.com/google/uuid"

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, runID uuid.UUID, stage, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Stage:   stage,
			Message: message,
			RunID:   runID.String(),
			Content: content,
		})
	}
}
