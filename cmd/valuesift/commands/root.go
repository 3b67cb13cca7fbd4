// Package commands is the valuesift command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"valuesift/internal/config"
	"valuesift/internal/report"
	"valuesift/internal/store"
	"valuesift/internal/util"
)

const defaultConfigPath = "config/valuesift.yaml"

var (
	// Global flags
	configFile string
	verbose    bool
	usePager   bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "valuesift",
	Short: "Value-investing screen and backtest over SimFin fundamentals",
	Long: `valuesift evaluates every listed company against a value-investing
strategy at a buy date and backtests the picks up to a sell date.

Workflow:
  valuesift parse-simfin ./simfin       load the SimFin bulk CSV files
  valuesift fetch-prices --start 2015-01-01
  valuesift run options.yaml            evaluate, backtest and record a run
  valuesift history                     list recorded runs`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the command tree with ctx. This is called by main.main().
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfigPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&usePager, "pager", false, "show reports in a scrollable view")
}

// setup loads .env, the config file and the logger.
func setup(cmd *cobra.Command, _ []string) error {
	if _, err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", configFile, err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	util.SetDefault(util.NewLogger(level, cfg.Logging.Format))
	slog.Debug("config loaded", "path", configFile, "dataDir", cfg.Storage.DataDir)
	return nil
}

func reprStore() *store.ParquetStore {
	return store.NewParquetStore(cfg.Storage.DataDir)
}

// theme colours the output only on a terminal.
func theme() report.Theme {
	if isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == "" {
		return report.ColorTheme()
	}
	return report.PlainTheme()
}
