package bot

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// embedColor is the blue used for listings
	embedColor = 0x3498db
	// Discord rejects embeds with more fields, or messages with more embeds
	maxEmbedFields = 25
	maxEmbeds      = 10
	// Character limits on a field name and on all embeds of one message
	maxFieldName   = 256
	maxEmbedsTotal = 6000
)

// Bot connects a Registry to a Discord session
type Bot struct {
	session  *discordgo.Session
	registry *Registry
	devGuild string
	logger   *zap.Logger
}

// New creates a bot authenticated with token. Commands are registered globally,
// or only on devGuild when it is set.
func New(token, devGuild string, registry *Registry, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{session: session, registry: registry, devGuild: devGuild, logger: logger}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// Run connects, syncs the command table and blocks until ctx is done
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("Error closing discord session", zap.Error(err))
		}
	}()

	appID := b.session.State.User.ID
	synced, err := b.session.ApplicationCommandBulkOverwrite(appID, b.devGuild, ApplicationCommands(b.registry))
	if err != nil {
		return fmt.Errorf("failed to sync commands: %w", err)
	}
	b.logger.Info("Commands synced", zap.Int("count", len(synced)), zap.String("guild", b.devGuild))

	<-ctx.Done()
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Logged in", zap.String("user", r.User.String()), zap.String("id", r.User.ID))
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	inv := InvocationFrom(i)
	b.logger.Debug("Command invoked",
		zap.String("invocation", inv.ID),
		zap.String("interaction", i.ID),
		zap.String("command", inv.Command),
		zap.String("guild", inv.GuildID),
		zap.String("user", inv.UserID))

	resp := b.registry.Dispatch(context.Background(), inv)
	if err := s.InteractionRespond(i.Interaction, RenderResponse(resp)); err != nil {
		b.logger.Error("Error responding to interaction",
			zap.String("invocation", inv.ID),
			zap.Error(err))
	}
}

// ApplicationCommands converts the command table to Discord definitions
func ApplicationCommands(r *Registry) []*discordgo.ApplicationCommand {
	var out []*discordgo.ApplicationCommand
	for _, c := range r.Commands() {
		ac := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
		for _, o := range c.Options {
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			})
		}
		out = append(out, ac)
	}
	return out
}

// InvocationFrom extracts the command name, guild, caller and string options of an interaction
func InvocationFrom(i *discordgo.InteractionCreate) Invocation {
	data := i.ApplicationCommandData()
	inv := Invocation{
		ID:      uuid.NewString(),
		Command: data.Name,
		GuildID: i.GuildID,
		Options: make(map[string]string, len(data.Options)),
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		inv.UserID = i.Member.User.ID
	case i.User != nil:
		inv.UserID = i.User.ID
	}
	for _, o := range data.Options {
		if o.Type == discordgo.ApplicationCommandOptionString {
			inv.Options[o.Name] = o.StringValue()
		}
	}
	return inv
}

// RenderResponse converts a Response to a Discord interaction response
func RenderResponse(resp Response) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{Content: resp.Content}
	if resp.Private {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if resp.Listing != nil {
		data.Embeds = listingEmbeds(resp.Listing)
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

// listingEmbeds spreads the entries over as many embeds as the field limit requires.
// Entries that would exceed the per-message character budget are dropped.
func listingEmbeds(l *Listing) []*discordgo.MessageEmbed {
	embeds := []*discordgo.MessageEmbed{{Title: l.Title, Color: embedColor}}
	budget := maxEmbedsTotal - utf8.RuneCountInString(l.Title)
	for _, c := range l.Entries {
		name := truncate("📌 "+c.Title, maxFieldName)
		value := c.DayLabel() + " | " + c.DisplayDate()
		size := utf8.RuneCountInString(name) + utf8.RuneCountInString(value)
		if size > budget {
			break
		}

		last := embeds[len(embeds)-1]
		if len(last.Fields) == maxEmbedFields {
			if len(embeds) == maxEmbeds {
				break
			}
			last = &discordgo.MessageEmbed{Color: embedColor}
			embeds = append(embeds, last)
		}
		last.Fields = append(last.Fields, &discordgo.MessageEmbedField{Name: name, Value: value})
		budget -= size
	}
	return embeds
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
