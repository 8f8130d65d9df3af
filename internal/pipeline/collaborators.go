package pipeline

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/jonathan/news-digest/internal/observability"
	"github.com/jonathan/news-digest/internal/types"
)

// Settings supplies the persisted configuration read before each run.
type Settings interface {
	FrequencyWeeks(ctx context.Context) (int, error)
	BlacklistedDomains(ctx context.Context) ([]string, error)
}

// Sink receives the finished digest.
type Sink interface {
	SaveDigest(ctx context.Context, runID uuid.UUID, digest *types.DigestResult) error
}

// Recorder keeps run bookkeeping and per-stage artifacts.
type Recorder interface {
	CreateRun(ctx context.Context, topic string) (uuid.UUID, error)
	CompleteRun(ctx context.Context, runID uuid.UUID, status, message string) error
	SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error
}

// StaticSettings serves settings from configuration for runs without a database.
type StaticSettings struct {
	Weeks     int
	Blacklist []string
}

func (s StaticSettings) FrequencyWeeks(context.Context) (int, error) { return s.Weeks, nil }

func (s StaticSettings) BlacklistedDomains(context.Context) ([]string, error) { return s.Blacklist, nil }

// OverrideSettings prefers non-zero local values over a persisted store.
// Blacklist entries from both are combined.
type OverrideSettings struct {
	Store     Settings
	Weeks     int
	Blacklist []string
}

func (s OverrideSettings) FrequencyWeeks(ctx context.Context) (int, error) {
	if s.Weeks > 0 {
		return s.Weeks, nil
	}
	return s.Store.FrequencyWeeks(ctx)
}

func (s OverrideSettings) BlacklistedDomains(ctx context.Context) ([]string, error) {
	stored, err := s.Store.BlacklistedDomains(ctx)
	if err != nil {
		return nil, err
	}
	return append(stored, s.Blacklist...), nil
}

// Format selects how WriterSink encodes a digest.
type Format string

const (
	FormatJSON Format = "json"
	FormatAtom Format = "atom"
)

// WriterSink writes the digest to an io.Writer.
type WriterSink struct {
	W      io.Writer
	Format Format
	Feed   observability.FeedMeta
}

func (s WriterSink) SaveDigest(_ context.Context, _ uuid.UUID, digest *types.DigestResult) error {
	if s.Format == FormatAtom {
		return observability.WriteAtom(s.W, digest, s.Feed)
	}
	return observability.WriteJSON(s.W, digest)
}

// MultiSink hands the digest to every sink in order and stops at the first error.
type MultiSink []Sink

func (m MultiSink) SaveDigest(ctx context.Context, runID uuid.UUID, digest *types.DigestResult) error {
	for _, s := range m {
		if err := s.SaveDigest(ctx, runID, digest); err != nil {
			return err
		}
	}
	return nil
}
