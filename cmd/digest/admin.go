package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/news-digest/internal/config"
	"github.com/jonathan/news-digest/internal/db"
	"github.com/jonathan/news-digest/internal/observability"
)

var adminDatabaseURL string

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, database *db.DB, _ []string) error {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
		return nil
	}),
}

var settingsCommand = &cobra.Command{
	Use:   "settings",
	Short: "Show or change stored digest settings",
	Args:  cobra.NoArgs,
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, database *db.DB, _ []string) error {
		weeks, err := database.FrequencyWeeks(ctx)
		if err != nil {
			return err
		}
		domains, err := database.BlacklistedDomains(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "frequency_weeks: %d\n", weeks)
		_, _ = fmt.Fprintln(out, "blacklisted_domains:")
		for _, d := range domains {
			_, _ = fmt.Fprintf(out, "  - %s\n", d)
		}
		return nil
	}),
}

var setFrequencyCommand = &cobra.Command{
	Use:   "set-frequency <weeks>",
	Short: "Set the newsletter frequency in weeks",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(ctx context.Context, _ *cobra.Command, database *db.DB, args []string) error {
		weeks, err := strconv.Atoi(args[0])
		if err != nil || weeks < 1 {
			return fmt.Errorf("weeks must be a positive integer, got %q", args[0])
		}
		return database.SetFrequencyWeeks(ctx, weeks)
	}),
}

var blacklistCommand = &cobra.Command{
	Use:   "blacklist <origin>",
	Short: "Exclude an origin from search results",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(ctx context.Context, _ *cobra.Command, database *db.DB, args []string) error {
		return database.AddBlacklistedDomain(ctx, args[0])
	}),
}

var (
	runsTopic  string
	runsStatus string
	runsSince  time.Duration
	runsLimit  int
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "List recorded digest runs",
	Args:  cobra.NoArgs,
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, database *db.DB, _ []string) error {
		filters := db.RunFilters{Topic: runsTopic, Status: runsStatus, Limit: runsLimit}
		if runsSince > 0 {
			filters.Since = time.Now().Add(-runsSince)
		}
		runs, err := database.ListRuns(ctx, filters)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tTOPIC\tSTATUS\tCREATED")
		for _, r := range runs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Topic, r.Status, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	}),
}

var showRunCommand = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run and its digest",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(ctx context.Context, cmd *cobra.Command, database *db.DB, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		run, err := database.GetRun(ctx, id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s  %s  %s\n", run.ID, run.Topic, run.Status)
		if run.Error != nil {
			_, _ = fmt.Fprintf(out, "error: %s\n", *run.Error)
			return nil
		}
		digest, err := database.GetDigest(ctx, id)
		if err != nil {
			return err
		}
		observability.NewPrinter(out).PrintDigest(digest)
		return nil
	}),
}

var deleteRunCommand = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run with its artifacts and digest",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(ctx context.Context, _ *cobra.Command, database *db.DB, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		return database.DeleteRun(ctx, id)
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{migrateCommand, settingsCommand, runsCommand} {
		cmd.PersistentFlags().StringVar(&adminDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
		rootCmd.AddCommand(cmd)
	}
	settingsCommand.AddCommand(setFrequencyCommand, blacklistCommand)

	runsCommand.Flags().StringVar(&runsTopic, "topic", "", "Only runs whose topic contains this text")
	runsCommand.Flags().StringVar(&runsStatus, "status", "", "Only runs with this status")
	runsCommand.Flags().DurationVar(&runsSince, "since", 0, "Only runs created within this duration")
	runsCommand.Flags().IntVar(&runsLimit, "limit", 0, "Maximum runs to list")
	runsCommand.AddCommand(showRunCommand, deleteRunCommand)
}

// withDB connects to the database for the duration of one command.
func withDB(fn func(ctx context.Context, cmd *cobra.Command, database *db.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		url := adminDatabaseURL
		if url == "" {
			url = os.Getenv(config.EnvDatabaseURL)
		}
		if url == "" {
			return fmt.Errorf("%s environment variable or --db-url flag is required", config.EnvDatabaseURL)
		}

		database, err := db.Connect(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		return fn(ctx, cmd, database, args)
	}
}
