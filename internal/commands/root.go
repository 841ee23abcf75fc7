package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

// state shared by subcommands, filled in PersistentPreRunE
type globals struct {
	configPath string
	verbose    bool
	cfg        *app.Config
	logger     *zap.Logger
}

// NewRootCmd builds the dday-bot command tree. Running it without a subcommand starts the bot.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "dday-bot",
		Short: "Discord bot for per-server D-day countdowns",
		Long: `dday-bot lets members of a Discord server register, list and remove
named countdown events (D-days) with slash commands:

  /add-dday title date   register an event (date as YYYYMMDD)
  /delete-dday title     remove an event
  /check-dday            list events with days remaining`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg

			logger, err := newLogger(cfg.Log.Level, g.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.logger = logger
			return nil
		},
		RunE: g.run(func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, "")
		}),
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", app.DefaultConfigFile, "Path to YAML config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(g),
		newExportCmd(g),
		newMigrateCmd(g),
		newHashPasswordCmd(g),
	)
	return root
}

// run wraps a RunE so the logger is flushed however the command returns
func (g *globals) run(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		}()
		return fn(cmd, args)
	}
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}
