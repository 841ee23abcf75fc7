package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

func newExportCmd(g *globals) *cobra.Command {
	var guildID, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a server's D-days to stdout",
		Example: `  dday-bot export --guild 123456789012345678 --format ics > ddays.ics
  dday-bot export --guild 123456789012345678 --format csv`,
		Args: cobra.NoArgs,
		RunE: g.run(func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(g.cfg.Store, g.logger)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			ledger, err := store.LoadLedger(cmd.Context(), guildID)
			if err != nil {
				return err
			}
			return app.Export(cmd.OutOrStdout(), format, guildID, ledger, time.Now())
		}),
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Server (guild) id")
	cmd.Flags().StringVar(&format, "format", app.FormatJSON, "Output format: ics, csv or json")
	_ = cmd.MarkFlagRequired("guild")
	return cmd
}
