package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/news-digest/internal/scraper"
)

var sourcesCommand = &cobra.Command{
	Use:   "sources",
	Short: "List the configured scraping sources",
	RunE:  runSourcesCmd,
}

var sourcesPath string

func init() {
	sourcesCommand.Flags().StringVarP(&sourcesPath, "sources", "s", "sources.yaml", "Path to the sources YAML file")
	rootCmd.AddCommand(sourcesCommand)
}

func runSourcesCmd(cmd *cobra.Command, _ []string) error {
	specs, err := scraper.LoadSources(sourcesPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tKIND\tURL\tREQUIRE DATE")
	for _, s := range specs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.Name, s.EffectiveKind(), s.BaseURL, s.RequireDate)
	}
	return w.Flush()
}
