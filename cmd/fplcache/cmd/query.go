package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print gameweek index summaries for every season",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		sums, err := svc.Seasons()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"seasons": sums})
	},
}

var tsCode int

var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Print the total_points time series for a player code",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tsCode == 0 {
			return fmt.Errorf("--code is required")
		}
		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		res, err := svc.TimeSeries(cmd.Context(), tsCode)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var (
	searchQuery string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search players by web name",
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchQuery == "" {
			return fmt.Errorf("--q is required")
		}
		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		results, err := svc.Search(searchQuery, searchLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"query":   searchQuery,
			"count":   len(results),
			"results": results,
		})
	},
}

func init() {
	timeseriesCmd.Flags().IntVar(&tsCode, "code", 0, "player code (required)")
	searchCmd.Flags().StringVar(&searchQuery, "q", "", "name fragment (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results")
}
