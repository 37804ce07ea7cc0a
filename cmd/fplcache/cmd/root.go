// Package cmd holds the fplcache subcommands.
package cmd

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"fpl-cache-api/internal/appstate"
	"fpl-cache-api/internal/config"
	"fpl-cache-api/internal/logger"
	"fpl-cache-api/internal/snapshot"
	"fpl-cache-api/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fplcache",
	Short: "Inspect the FPL snapshot archive",
	Long: `Inspect the FPL bootstrap-static snapshot archive.

Commands:
    index        per-season gameweek index summaries
    timeseries   total_points series for one player code
    search       find players by web name
    schema       field/type inventory across snapshots
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: defaults, .env and FPLCACHE_* env)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(timeseriesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(schemaCmd)
}

func initConfig() error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := logger.Init(c.Logging); err != nil {
		return err
	}
	cfg = c
	return nil
}

func openStore(ctx context.Context) (snapshot.Store, error) {
	return store.Open(ctx, cfg.Archive)
}

// buildService opens the archive and builds state once for a single command.
func buildService(ctx context.Context) (*appstate.Service, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	svc := appstate.NewService(st, appstate.WithCacheSize(cfg.Cache.Size))
	if _, err := svc.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("build state: %w", err)
	}
	return svc, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
