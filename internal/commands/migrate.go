package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

func newMigrateCmd(g *globals) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every server's D-days from one store backend to another",
		Long: `Copies all ledgers between the JSON document and the SQLite database,
using the paths from the config file. Ledgers already present in the target
are replaced.`,
		Example: "  dday-bot migrate --from json --to sqlite",
		Args:    cobra.NoArgs,
		RunE: g.run(func(cmd *cobra.Command, args []string) error {
			if from == to {
				return fmt.Errorf("source and target backend are both %q", from)
			}

			srcCfg, dstCfg := g.cfg.Store, g.cfg.Store
			srcCfg.Backend, dstCfg.Backend = from, to

			src, err := app.OpenStore(srcCfg, g.logger)
			if err != nil {
				return fmt.Errorf("failed to open source store: %w", err)
			}
			defer src.Close()

			dst, err := app.OpenStore(dstCfg, g.logger)
			if err != nil {
				return fmt.Errorf("failed to open target store: %w", err)
			}
			defer dst.Close()

			n, err := Migrate(cmd.Context(), src, dst, g.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Migrated %d server(s) from %s to %s\n", n, from, to)
			return nil
		}),
	}
	cmd.Flags().StringVar(&from, "from", app.BackendJSON, "Source backend (json or sqlite)")
	cmd.Flags().StringVar(&to, "to", app.BackendSQLite, "Target backend (json or sqlite)")
	return cmd
}

// Migrate copies every guild ledger from src to dst and returns the number of guilds copied
func Migrate(ctx context.Context, src, dst app.Store, logger *zap.Logger) (int, error) {
	guilds, err := src.Guilds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list guilds: %w", err)
	}

	for _, id := range guilds {
		ledger, err := src.LoadLedger(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to load guild %s: %w", id, err)
		}
		if err := dst.SaveLedger(ctx, id, ledger); err != nil {
			return 0, fmt.Errorf("failed to save guild %s: %w", id, err)
		}
		logger.Debug("Migrated guild", zap.String("guild", id), zap.Int("events", len(ledger)))
	}
	return len(guilds), nil
}
