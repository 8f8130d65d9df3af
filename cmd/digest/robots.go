package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/news-digest/internal/fetch"
	"github.com/jonathan/news-digest/internal/logging"
	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/jonathan/news-digest/internal/robots"
)

var robotsCommand = &cobra.Command{
	Use:   "robots <url>",
	Short: "Check whether robots.txt allows fetching a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runRobotsCmd,
}

var robotsUserAgent string

func init() {
	robotsCommand.Flags().StringVar(&robotsUserAgent, "user-agent", fetch.UserAgentName, "Product token matched against robots.txt groups")
	rootCmd.AddCommand(robotsCommand)
}

func runRobotsCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	checker := robots.NewChecker(robots.Config{
		UserAgent: robotsUserAgent,
		Retrier:   ratelimit.Retrier{MaxAttempts: 2},
		Logger:    logging.New("warn", cmd.ErrOrStderr()),
	})

	verdict := "disallowed"
	if checker.Allowed(ctx, args[0]) {
		verdict = "allowed"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s for %s\n", args[0], verdict, robotsUserAgent)
	return nil
}
