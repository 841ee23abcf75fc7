package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/klabast/wb-services/dday-bot/internal/app"
	"github.com/klabast/wb-services/dday-bot/internal/bot"
)

func newServeCmd(g *globals) *cobra.Command {
	var feedAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer D-day commands",
		Long: `Connects to Discord with the token from BOT_TOKEN (or discord.token in the
config file), syncs the slash commands and serves them until interrupted.

With --feed-addr the server's D-days are also published over HTTP:
  GET /api/guilds/{guildID}/ddays           JSON countdowns
  GET /api/guilds/{guildID}/subscribe.ics   iCalendar subscription
  GET /api/guilds/{guildID}/download?format=ics|csv|json`,
		Args: cobra.NoArgs,
		RunE: g.run(func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, feedAddr)
		}),
	}
	cmd.Flags().StringVar(&feedAddr, "feed-addr", "", "Listen address for the HTTP calendar feed (overrides feed.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, g *globals, feedAddr string) error {
	cfg, logger := g.cfg, g.logger
	if feedAddr != "" {
		cfg.Feed.Addr = feedAddr
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, app.ErrTokenNotSet) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error: the bot token is not set. Put BOT_TOKEN=<token> in .env or set discord.token in the config file.")
		}
		return err
	}

	store, err := app.OpenStore(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	handlers := bot.NewHandlers(store, logger, nil)
	registry, err := bot.NewRegistry(handlers.Commands()...)
	if err != nil {
		return err
	}
	b, err := bot.New(cfg.Discord.Token, cfg.Discord.DevGuild, registry, logger)
	if err != nil {
		return err
	}

	var feed *app.Feed
	if cfg.Feed.Addr != "" {
		auth, err := app.LoadFeedAuth(cfg.Feed.AuthFile, logger)
		if err != nil {
			return err
		}
		feed = app.NewFeed(store, auth, logger)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return b.Run(ctx) })
	if feed != nil {
		group.Go(func() error { return feed.Serve(ctx, cfg.Feed.Addr) })
	}

	logger.Info("dday-bot started",
		zap.String("store", cfg.Store.Backend),
		zap.String("feed", cfg.Feed.Addr))

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("dday-bot stopped")
	return nil
}
