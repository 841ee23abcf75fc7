package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

func TestApplicationCommands(t *testing.T) {
	h := NewHandlers(nil, nil, nil)
	r, err := NewRegistry(h.Commands()...)
	require.NoError(t, err)

	cmds := ApplicationCommands(r)
	require.Len(t, cmds, 3)

	byName := map[string]*discordgo.ApplicationCommand{}
	for _, c := range cmds {
		byName[c.Name] = c
	}

	addCmd := byName[CommandAdd]
	require.NotNil(t, addCmd)
	require.Len(t, addCmd.Options, 2)
	assert.Equal(t, "title", addCmd.Options[0].Name)
	assert.Equal(t, "date", addCmd.Options[1].Name)
	for _, o := range addCmd.Options {
		assert.Equal(t, discordgo.ApplicationCommandOptionString, o.Type)
		assert.True(t, o.Required)
	}

	assert.Len(t, byName[CommandDelete].Options, 1)
	assert.Empty(t, byName[CommandCheck].Options)
}

func interaction(guildID string, member *discordgo.Member, user *discordgo.User, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "interaction-1",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Member:  member,
		User:    user,
		Data:    data,
	}}
}

func TestInvocationFrom(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: CommandAdd,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "title", Type: discordgo.ApplicationCommandOptionString, Value: "Exam"},
			{Name: "date", Type: discordgo.ApplicationCommandOptionString, Value: "20250601"},
		},
	}

	t.Run("guild member", func(t *testing.T) {
		inv := InvocationFrom(interaction("42", &discordgo.Member{User: &discordgo.User{ID: "7"}}, nil, data))

		assert.NotEmpty(t, inv.ID)
		assert.Equal(t, CommandAdd, inv.Command)
		assert.Equal(t, "42", inv.GuildID)
		assert.Equal(t, "7", inv.UserID)
		assert.Equal(t, map[string]string{"title": "Exam", "date": "20250601"}, inv.Options)
	})

	t.Run("direct message", func(t *testing.T) {
		inv := InvocationFrom(interaction("", nil, &discordgo.User{ID: "8"}, data))

		assert.Empty(t, inv.GuildID)
		assert.Equal(t, "8", inv.UserID)
	})

	t.Run("unique ids", func(t *testing.T) {
		a := InvocationFrom(interaction("42", nil, nil, data))
		b := InvocationFrom(interaction("42", nil, nil, data))
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestRenderResponse(t *testing.T) {
	t.Run("private", func(t *testing.T) {
		out := RenderResponse(private("nope"))
		assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, out.Type)
		assert.Equal(t, "nope", out.Data.Content)
		assert.Equal(t, discordgo.MessageFlagsEphemeral, out.Data.Flags)
	})

	t.Run("public", func(t *testing.T) {
		out := RenderResponse(public("yes"))
		assert.Zero(t, out.Data.Flags)
		assert.Empty(t, out.Data.Embeds)
	})

	t.Run("listing", func(t *testing.T) {
		listing := &Listing{Title: listingTitle, Entries: []app.Countdown{
			{Title: "Today", Date: time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC), Offset: 0},
			{Title: "Exam", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Offset: 2},
		}}
		out := RenderResponse(Response{Listing: listing})

		require.Len(t, out.Data.Embeds, 1)
		embed := out.Data.Embeds[0]
		assert.Equal(t, listingTitle, embed.Title)
		assert.Equal(t, embedColor, embed.Color)
		require.Len(t, embed.Fields, 2)
		assert.Equal(t, "📌 Today", embed.Fields[0].Name)
		assert.Equal(t, "**D-Day!** 🎉 | 2025. 05. 30.", embed.Fields[0].Value)
		assert.Equal(t, "📌 Exam", embed.Fields[1].Name)
		assert.Equal(t, "**D-2** | 2025. 06. 01.", embed.Fields[1].Value)
	})
}

func TestListingEmbedsSplit(t *testing.T) {
	countdowns := func(n int) []app.Countdown {
		out := make([]app.Countdown, n)
		for i := range out {
			out[i] = app.Countdown{Title: fmt.Sprintf("e%d", i), Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Offset: i}
		}
		return out
	}

	embeds := listingEmbeds(&Listing{Title: listingTitle, Entries: countdowns(30)})
	require.Len(t, embeds, 2)
	assert.Len(t, embeds[0].Fields, maxEmbedFields)
	assert.Len(t, embeds[1].Fields, 5)
	assert.Empty(t, embeds[1].Title)

	embeds = listingEmbeds(&Listing{Title: listingTitle, Entries: countdowns(maxEmbedFields*maxEmbeds + 3)})
	assert.LessOrEqual(t, len(embeds), maxEmbeds)
	assert.LessOrEqual(t, embedChars(embeds), maxEmbedsTotal)
	for _, e := range embeds {
		assert.LessOrEqual(t, len(e.Fields), maxEmbedFields)
	}
}

func TestListingEmbedsLongTitles(t *testing.T) {
	long := strings.Repeat("가", 300)
	entries := make([]app.Countdown, 40)
	for i := range entries {
		entries[i] = app.Countdown{Title: fmt.Sprintf("%03d%s", i, long), Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Offset: 2}
	}

	embeds := listingEmbeds(&Listing{Title: listingTitle, Entries: entries})
	require.NotEmpty(t, embeds[0].Fields)

	name := embeds[0].Fields[0].Name
	assert.Equal(t, maxFieldName, utf8.RuneCountInString(name))
	assert.True(t, strings.HasPrefix(name, "📌 000가"))
	assert.True(t, strings.HasSuffix(name, "…"))
	assert.Equal(t, "**D-2** | 2025. 06. 01.", embeds[0].Fields[0].Value)

	assert.LessOrEqual(t, embedChars(embeds), maxEmbedsTotal)
	fields := 0
	for _, e := range embeds {
		fields += len(e.Fields)
	}
	assert.Less(t, fields, len(entries), "entries beyond the message budget are dropped")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "시험…", truncate("시험 기간", 3))
}

func embedChars(embeds []*discordgo.MessageEmbed) int {
	n := 0
	for _, e := range embeds {
		n += utf8.RuneCountInString(e.Title)
		for _, f := range e.Fields {
			n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
		}
	}
	return n
}
