package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/news-digest/internal/categorize"
	"github.com/jonathan/news-digest/internal/config"
	"github.com/jonathan/news-digest/internal/db"
	"github.com/jonathan/news-digest/internal/enrich"
	"github.com/jonathan/news-digest/internal/fetch"
	"github.com/jonathan/news-digest/internal/filter"
	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/logging"
	"github.com/jonathan/news-digest/internal/observability"
	"github.com/jonathan/news-digest/internal/pipeline"
	"github.com/jonathan/news-digest/internal/ranking"
	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/jonathan/news-digest/internal/robots"
	"github.com/jonathan/news-digest/internal/scraper"
	"github.com/jonathan/news-digest/internal/search"
	"github.com/jonathan/news-digest/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full digest pipeline end-to-end",
	Long: `Orchestrates one digest run: collect -> deduplicate -> filter -> rank -> enrich -> categorize -> summarize.

Configuration can be loaded from a JSON, YAML or TOML file using --config. Command-line arguments override config file values.`,
	RunE: runDigestCmd,
}

var (
	runConfigPath     string
	runTopic          string
	runSources        string
	runQueries        []string
	runPages          int
	runTarget         int
	runMin            int
	runFrequencyWeeks int
	runMaxPerSource   int
	runBlacklist      []string
	runAPIKey         string
	runDatabaseURL    string
	runUseBrowser     bool
	runVerbose        bool
	runLogLevel       string
	runAtomPath       string
	runJSONPath       string
)

func init() {
	registerRunFlags(runCommand)
	rootCmd.AddCommand(runCommand)
}

func registerRunFlags(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&runConfigPath, "config", "", "Path to a config file (values can be overridden by other flags)")

	cmd.Flags().StringVarP(&runTopic, "topic", "t", "", "Industry or subject the digest covers")
	cmd.Flags().StringVarP(&runSources, "sources", "s", "", "Path to the sources YAML file")
	cmd.Flags().StringArrayVarP(&runQueries, "query", "q", nil, "Web search query (repeatable)")
	cmd.Flags().IntVar(&runPages, "pages", 0, "Result pages to fetch per search query")
	cmd.Flags().IntVar(&runTarget, "target", 0, "Number of articles in the digest")
	cmd.Flags().IntVar(&runMin, "min", 0, "Fewest articles a digest may be published with")
	cmd.Flags().IntVar(&runFrequencyWeeks, "frequency-weeks", 0, "Newsletter frequency in weeks (overrides the stored setting)")
	cmd.Flags().IntVar(&runMaxPerSource, "max-per-source", 0, "Most articles a single source may contribute")
	cmd.Flags().StringArrayVar(&runBlacklist, "blacklist", nil, "Origin excluded from search results (repeatable)")
	cmd.Flags().BoolVar(&runUseBrowser, "use-browser", true, "Fall back to a headless browser for script-rendered pages (requires Chrome)")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print stage counts and the finished digest")
	cmd.Flags().StringVar(&runLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&runAtomPath, "atom", "", "Write the digest as an Atom feed to this file")
	cmd.Flags().StringVar(&runJSONPath, "json", "", "Write the digest as JSON to this file")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	cmd.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for settings and run persistence
	cmd.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

// resolveRunConfig merges the config file, flags, defaults and environment.
// The second return is the frequency the user asked for explicitly, or zero
// when the stored setting should be used.
func resolveRunConfig(cmd *cobra.Command) (*config.Config, int, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loaded, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("topic") {
		cfg.Topic = runTopic
	}
	if flags.Changed("sources") {
		cfg.Sources = runSources
	}
	if flags.Changed("query") {
		cfg.Queries = runQueries
	}
	if flags.Changed("pages") {
		cfg.SearchPages = runPages
	}
	if flags.Changed("target") {
		cfg.TargetCount = runTarget
	}
	if flags.Changed("min") {
		cfg.MinCount = runMin
	}
	if flags.Changed("frequency-weeks") {
		cfg.FrequencyWeeks = runFrequencyWeeks
	}
	if flags.Changed("max-per-source") {
		cfg.MaxPerSource = runMaxPerSource
	}
	if flags.Changed("blacklist") {
		cfg.Blacklist = runBlacklist
	}
	if flags.Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	// Bools are not merged from defaults; without a config file the flag default applies
	if flags.Changed("use-browser") || runConfigPath == "" {
		cfg.UseBrowser = runUseBrowser
	}
	if flags.Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = runLogLevel
	}
	explicitWeeks := cfg.FrequencyWeeks

	// Step 3: Apply defaults and environment for unset values
	merged := cfg.MergeWithDefaults(config.Defaults())
	merged.ApplyEnv()

	// Step 4: Validate
	if err := merged.Validate(); err != nil {
		return nil, 0, err
	}
	if merged.APIKey == "" {
		return nil, 0, fmt.Errorf("%s environment variable or --api-key flag is required", config.EnvAPIKey)
	}
	return &merged, explicitWeeks, nil
}

func runDigestCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, explicitWeeks, err := resolveRunConfig(cmd)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	logger := logging.New(level, os.Stderr)

	var specs []types.SourceSpec
	if cfg.Sources != "" {
		specs, err = scraper.LoadSources(cfg.Sources)
		if err != nil {
			return err
		}
	}

	deps, cleanup, err := buildDeps(ctx, cfg, explicitWeeks, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		Topic:        cfg.Topic,
		Sources:      specs,
		Queries:      cfg.Queries,
		SearchPages:  cfg.SearchPages,
		Target:       cfg.TargetCount,
		Minimum:      cfg.MinCount,
		MaxPerSource: cfg.MaxPerSource,
	}
	if cfg.Verbose {
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Stage, e.Message)
		}
	}

	result, err := pipeline.New(deps).Run(ctx, opts)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		pipeline.WriteSummary(os.Stderr, result)
	}
	_, _ = fmt.Fprintf(os.Stderr, "Done! Digest %s with %d articles.\n", result.RunID, len(result.Digest.Flatten()))
	return nil
}

// buildDeps constructs the process-wide limiters, browser pool and clients and
// wires them into the pipeline collaborators. cleanup is always safe to call.
func buildDeps(ctx context.Context, cfg *config.Config, explicitWeeks int, logger *slog.Logger) (pipeline.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	retrier := ratelimit.Retrier{MaxAttempts: cfg.RetryAttempts, Logger: logger}
	aiLimiter := ratelimit.NewLimiter("ai", ratelimit.Config{
		MaxConcurrent: cfg.AIMaxConcurrent,
		MinTime:       time.Duration(cfg.AIMinTimeMS) * time.Millisecond,
	})
	fetchLimiter := ratelimit.NewLimiter("fetch", ratelimit.Config{
		MaxConcurrent: cfg.FetchMaxConcurrent,
		MinTime:       time.Duration(cfg.FetchMinTimeMS) * time.Millisecond,
	})

	var browser fetch.Browser
	if cfg.UseBrowser {
		pool := fetch.NewBrowserPool(fetch.DefaultBrowserConfig(), logger)
		closers = append(closers, pool.Close)
		browser = pool
	}

	fetcher := fetch.NewFetcher(fetch.FetcherConfig{
		Browser: browser,
		Limiter: fetchLimiter,
		Retrier: retrier,
		Logger:  logger,
	})
	checker := robots.NewChecker(robots.Config{
		Limiter: fetchLimiter,
		Retrier: retrier,
		Logger:  logger,
	})

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return pipeline.Deps{}, cleanup, fmt.Errorf("failed to create AI client: %w", err)
	}
	oracle := llm.NewOracle(client, aiLimiter, retrier, logger)
	closers = append(closers, func() { _ = oracle.Close() })

	relevance := filter.NewRelevance(oracle, cfg.Topic, filter.Window(cfg.FrequencyWeeks), logger)

	deps := pipeline.Deps{
		Scraper: scraper.New(fetcher, checker, cfg.FetchMaxConcurrent, logger),
		Relevance: func(window time.Duration) pipeline.RelevanceFilter {
			return relevance.WithWindow(window)
		},
		Ranker:      ranking.NewRanker(oracle, logger),
		Enricher:    enrich.NewEnricher(fetcher, oracle, enrich.DefaultMaxChars, logger),
		Categorizer: categorize.New(oracle, nil, logger),
		Summarizer:  enrich.NewSummarizer(oracle, cfg.Topic, logger),
		Settings:    pipeline.StaticSettings{Weeks: cfg.FrequencyWeeks, Blacklist: cfg.Blacklist},
		Logger:      logger,
	}

	if len(cfg.Queries) > 0 {
		searcher, err := search.NewGoogleSearcher(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
		if err != nil {
			return pipeline.Deps{}, cleanup, fmt.Errorf("failed to create search client: %w", err)
		}
		var resolver search.Resolver
		if browser != nil {
			resolver = search.NewBrowserResolver(browser)
		}
		collector := search.NewCollector(search.Config{
			Searcher: searcher,
			Resolver: resolver,
			Limiter:  fetchLimiter,
			Retrier:  retrier,
			Logger:   logger,
		})
		deps.Search = func(blacklist []string) pipeline.SearchCollector {
			return collector.WithBlacklist(blacklist)
		}
	}

	var sinks pipeline.MultiSink
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return pipeline.Deps{}, cleanup, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			return pipeline.Deps{}, cleanup, err
		}
		deps.Settings = pipeline.OverrideSettings{Store: database, Weeks: explicitWeeks, Blacklist: cfg.Blacklist}
		deps.Recorder = database
		sinks = append(sinks, database)
	}

	feed := observability.FeedMeta{Title: cfg.Topic + " digest", Author: "news-digest"}
	for _, out := range []struct {
		path   string
		format pipeline.Format
	}{{runAtomPath, pipeline.FormatAtom}, {runJSONPath, pipeline.FormatJSON}} {
		if out.path == "" {
			continue
		}
		f, err := os.Create(out.path)
		if err != nil {
			return pipeline.Deps{}, cleanup, fmt.Errorf("failed to create %s: %w", out.path, err)
		}
		closers = append(closers, func() { _ = f.Close() })
		sinks = append(sinks, pipeline.WriterSink{W: f, Format: out.format, Feed: feed})
	}
	if len(sinks) == 0 {
		sinks = append(sinks, pipeline.WriterSink{W: os.Stdout, Format: pipeline.FormatJSON})
	}
	deps.Sink = sinks

	return deps, cleanup, nil
}
