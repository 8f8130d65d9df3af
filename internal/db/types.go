package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Setting keys.
const (
	SettingFrequencyWeeks = "frequency_weeks"
)

// Run is a digest pipeline run record.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Topic       string     `json:"topic"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunFilters holds optional filters for listing runs.
type RunFilters struct {
	Topic  string
	Status string
	Since  time.Time
	Limit  int
}
