// Package pipeline provides the high-level orchestration for a digest run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/news-digest/internal/db"
	"github.com/jonathan/news-digest/internal/dedup"
	"github.com/jonathan/news-digest/internal/filter"
	"github.com/jonathan/news-digest/internal/observability"
	"github.com/jonathan/news-digest/internal/ranking"
	"github.com/jonathan/news-digest/internal/types"
)

// Stage names, used in progress events, artifacts and errors.
const (
	StageSettings       = "settings"
	StageCollect        = "collect"
	StageValidate       = "validate"
	StageDedup          = "dedup"
	StageRecency        = "recency_filter"
	StageRelevance      = "relevance_filter"
	StageRanking        = "ranking"
	StageEnrichment     = "enrichment"
	StageCategorization = "categorization"
	StageSummary        = "summary"
	StagePublish        = "publish"
)

// SourceScraper walks configured source pages.
type SourceScraper interface {
	Collect(ctx context.Context, specs []types.SourceSpec) []types.RawCandidate
}

// SearchCollector runs topical web searches.
type SearchCollector interface {
	Collect(ctx context.Context, queries []string, pages int) []types.RawCandidate
}

// RelevanceFilter is the AI-assisted relevance pass.
type RelevanceFilter interface {
	StageB(ctx context.Context, candidates []types.CountedCandidate) ([]types.CountedCandidate, error)
}

// Ranker selects and orders the filtered candidates.
type Ranker interface {
	Rank(ctx context.Context, candidates []types.CountedCandidate, opts ranking.Options) ([]types.RankedArticle, error)
}

// Enricher fills in missing descriptions. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, ranked []types.RankedArticle) []types.EnrichedArticle
}

// Categorizer assigns exactly one category per article.
type Categorizer interface {
	Categorize(ctx context.Context, articles []types.EnrichedArticle, minimum int) ([]types.CategorizedArticle, error)
}

// Summarizer writes the digest summary paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, groups []types.CategoryGroup) (string, error)
}

// Deps holds the collaborators of a run. Scraper and Search may be nil when
// no sources or queries are configured. Recorder is optional.
type Deps struct {
	Scraper SourceScraper
	// Search builds a collector that also drops the given blacklisted origins.
	Search func(blacklist []string) SearchCollector
	// Relevance builds the AI filter for the given recency window.
	Relevance   func(window time.Duration) RelevanceFilter
	Ranker      Ranker
	Enricher    Enricher
	Categorizer Categorizer
	Summarizer  Summarizer
	Settings    Settings
	Sink        Sink
	Recorder    Recorder
	Now         func() time.Time
	Logger      *slog.Logger
}

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Topic        string
	Sources      []types.SourceSpec
	Queries      []string
	SearchPages  int
	Target       int
	Minimum      int
	MaxPerSource int
	OnProgress   ProgressCallback
}

// Result is a finished run.
type Result struct {
	RunID  uuid.UUID
	Digest *types.DigestResult
	Counts []observability.StageCount
	Ranked []types.RankedArticle
}

// Pipeline runs the acquisition and curation stages in order.
type Pipeline struct {
	deps Deps
}

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps}
}

// run tracks one execution so stages can record counts and artifacts.
type run struct {
	p      *Pipeline
	id     uuid.UUID
	opts   *RunOptions
	counts []observability.StageCount
}

func (r *run) record(ctx context.Context, stage string, n int, message string, content any) {
	r.counts = append(r.counts, observability.StageCount{Stage: stage, Count: n})
	r.p.deps.Logger.Info("stage complete", "run_id", r.id, "stage", stage, "count", n)
	emitProgress(r.opts, r.id, stage, message, content)

	if r.p.deps.Recorder != nil && content != nil {
		if err := r.p.deps.Recorder.SaveArtifact(ctx, r.id, stage, content); err != nil {
			r.p.deps.Logger.Warn("failed to save artifact", "run_id", r.id, "stage", stage, "error", err)
		}
	}
}

func (r *run) fail(stage string, err error) error {
	counts := make([]observability.StageCount, len(r.counts))
	copy(counts, r.counts)
	return &StageError{Stage: stage, Counts: counts, Err: err}
}

// Run executes one digest run and hands the finished digest to the sink.
// Any stage failure returns a *StageError and nothing reaches the sink.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if p.deps.Settings == nil {
		p.deps.Settings = StaticSettings{}
	}

	r := &run{p: p, opts: &opts, id: uuid.New()}
	if p.deps.Recorder != nil {
		id, err := p.deps.Recorder.CreateRun(ctx, opts.Topic)
		if err != nil {
			p.deps.Logger.Warn("failed to create run record, continuing without persistence", "error", err)
			p.deps.Recorder = nil
		} else {
			r.id = id
		}
	}

	result, err := p.execute(ctx, r)

	if p.deps.Recorder != nil {
		status, message := db.RunStatusCompleted, ""
		if err != nil {
			status, message = db.RunStatusFailed, err.Error()
		}
		// The run context may already be cancelled; bookkeeping still needs to land.
		if cerr := p.deps.Recorder.CompleteRun(context.WithoutCancel(ctx), r.id, status, message); cerr != nil {
			p.deps.Logger.Warn("failed to complete run record", "run_id", r.id, "error", cerr)
		}
	}
	if err != nil {
		p.deps.Logger.Error("run failed", "run_id", r.id, "error", err)
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, r *run) (*Result, error) {
	opts := r.opts

	weeks, err := p.deps.Settings.FrequencyWeeks(ctx)
	if err != nil {
		return nil, r.fail(StageSettings, fmt.Errorf("failed to read newsletter frequency: %w", err))
	}
	blacklist, err := p.deps.Settings.BlacklistedDomains(ctx)
	if err != nil {
		return nil, r.fail(StageSettings, fmt.Errorf("failed to read blacklisted domains: %w", err))
	}
	window := filter.Window(weeks)
	emitProgress(opts, r.id, StageSettings,
		fmt.Sprintf("Recency window %d week(s), %d blacklisted domain(s)", max(weeks, filter.DefaultFrequencyWeeks), len(blacklist)), nil)

	raw := p.collect(ctx, opts, blacklist)
	r.record(ctx, StageCollect, len(raw), fmt.Sprintf("Collected %d raw candidates", len(raw)), nil)

	valid := types.ValidateCandidates(raw)
	r.record(ctx, StageValidate, len(valid), fmt.Sprintf("%d candidates have a title and link", len(valid)), nil)

	counted := dedup.Deduplicate(valid)
	r.record(ctx, StageDedup, len(counted), fmt.Sprintf("Deduplicated to %d candidates", len(counted)), counted)

	fresh := filter.StageA(counted, filter.Options{
		Window:      window,
		Now:         p.deps.Now,
		RequireDate: filter.RequireDateSources(opts.Sources),
	})
	r.record(ctx, StageRecency, len(fresh), fmt.Sprintf("%d candidates inside the recency window", len(fresh)), nil)

	relevant, err := p.deps.Relevance(window).StageB(ctx, fresh)
	if err != nil {
		return nil, r.fail(StageRelevance, err)
	}
	r.record(ctx, StageRelevance, len(relevant), fmt.Sprintf("%d candidates judged relevant", len(relevant)), relevant)

	ranked, err := p.deps.Ranker.Rank(ctx, relevant, ranking.Options{
		Topic:         opts.Topic,
		Target:        opts.Target,
		Minimum:       opts.Minimum,
		MaxPerSource:  opts.MaxPerSource,
		NumCategories: len(types.AllCategories()),
	})
	if err != nil {
		return nil, r.fail(StageRanking, err)
	}
	r.record(ctx, StageRanking, len(ranked), fmt.Sprintf("Ranked top %d articles", len(ranked)), ranked)

	enriched := p.deps.Enricher.Enrich(ctx, ranked)
	if err := ctx.Err(); err != nil {
		return nil, r.fail(StageEnrichment, err)
	}
	r.record(ctx, StageEnrichment, len(enriched), fmt.Sprintf("Enriched %d articles", len(enriched)), enriched)

	categorized, err := p.deps.Categorizer.Categorize(ctx, enriched, opts.Minimum)
	if err != nil {
		return nil, r.fail(StageCategorization, err)
	}
	groups := types.GroupByCategory(categorized)
	r.record(ctx, StageCategorization, len(categorized),
		fmt.Sprintf("Assigned %d articles to %d categories", len(categorized), len(groups)), groups)

	summary, err := p.deps.Summarizer.Summarize(ctx, groups)
	if err != nil {
		return nil, r.fail(StageSummary, err)
	}
	digest := &types.DigestResult{Summary: summary, Categories: groups}
	r.record(ctx, StageSummary, len(digest.Flatten()), "Wrote digest summary", nil)

	if p.deps.Sink != nil {
		if err := p.deps.Sink.SaveDigest(ctx, r.id, digest); err != nil {
			return nil, r.fail(StagePublish, err)
		}
	}
	emitProgress(opts, r.id, StagePublish, "Digest published", digest)

	return &Result{RunID: r.id, Digest: digest, Counts: r.counts, Ranked: ranked}, nil
}

// collect runs the scraper and the search collector in parallel. Neither
// returns an error: failing sources and queries contribute nothing.
func (p *Pipeline) collect(ctx context.Context, opts *RunOptions, blacklist []string) []types.RawCandidate {
	var scraped, searched []types.RawCandidate

	var g errgroup.Group
	if p.deps.Scraper != nil && len(opts.Sources) > 0 {
		g.Go(func() error {
			scraped = p.deps.Scraper.Collect(ctx, opts.Sources)
			return nil
		})
	}
	if p.deps.Search != nil && len(opts.Queries) > 0 {
		g.Go(func() error {
			searched = p.deps.Search(blacklist).Collect(ctx, opts.Queries, opts.SearchPages)
			return nil
		})
	}
	_ = g.Wait()

	return append(scraped, searched...)
}

// WriteSummary prints stage counts and the digest when verbose output is on.
func WriteSummary(w io.Writer, result *Result) {
	printer := observability.NewPrinter(w)
	printer.PrintStageCounts(result.Counts)
	printer.PrintRankedArticles(result.Ranked)
	printer.PrintDigest(result.Digest)
}
