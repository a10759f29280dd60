package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interaction(typ discordgo.InteractionType, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "i1",
		Type:      typ,
		GuildID:   "g1",
		ChannelID: "c1",
		Locale:    discordgo.German,
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "u1", Username: "alice"},
			Permissions: discordgo.PermissionManageMessages,
		},
		Data: data,
	}}
}

func TestNewEvent_GroupedSubcommand(t *testing.T) {
	i := interaction(discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{
		Name:        "stats",
		CommandType: discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "usage",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "command",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "ping"},
				},
			}},
		}},
	})
	received := time.Now()

	ev, ok := newEvent(nil, i, received)
	require.True(t, ok)
	assert.Equal(t, router.EventCommand, ev.Type)
	assert.Equal(t, received, ev.ReceivedAt)

	inv := ev.Invocation
	assert.Equal(t, "stats usage command", inv.Path())
	assert.Equal(t, "ping", inv.String("name"))
	assert.Equal(t, "u1", inv.UserID)
	assert.Equal(t, "alice", inv.Username)
	assert.Equal(t, "g1", inv.GuildID)
	assert.Equal(t, discordgo.German, inv.Locale)
	assert.EqualValues(t, discordgo.PermissionManageMessages, inv.Permissions)
}

func TestNewEvent_AutocompleteFocus(t *testing.T) {
	i := interaction(discordgo.InteractionApplicationCommandAutocomplete, discordgo.ApplicationCommandInteractionData{
		Name: "stats",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "command",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "pi", Focused: true},
			},
		}},
	})

	ev, ok := newEvent(nil, i, time.Now())
	require.True(t, ok)
	assert.Equal(t, router.EventAutocomplete, ev.Type)
	assert.Equal(t, "command", ev.Invocation.Subcommand)
	assert.Equal(t, "name", ev.Invocation.Focused)
}

func TestNewEvent_DirectMessage(t *testing.T) {
	i := interaction(discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{Name: "ping"})
	i.GuildID = ""
	i.Member = nil
	i.User = &discordgo.User{ID: "u2", Username: "bob"}

	ev, ok := newEvent(nil, i, time.Now())
	require.True(t, ok)
	assert.False(t, ev.Invocation.InGuild())
	assert.Equal(t, "u2", ev.Invocation.UserID)
	assert.Zero(t, ev.Invocation.Permissions)
}

func TestNewEvent_IgnoresOtherInteractions(t *testing.T) {
	menu := interaction(discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{
		Name:        "Report message",
		CommandType: discordgo.MessageApplicationCommand,
	})
	_, ok := newEvent(nil, menu, time.Now())
	assert.False(t, ok)

	ping := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Type: discordgo.InteractionPing}}
	_, ok = newEvent(nil, ping, time.Now())
	assert.False(t, ok)
}

func TestColorize(t *testing.T) {
	embeds := colorize([]*discordgo.MessageEmbed{{Title: "a"}, {Title: "b", Color: 0x00ff00}})
	assert.Equal(t, EmbedColor, embeds[0].Color)
	assert.Equal(t, 0x00ff00, embeds[1].Color)
}
