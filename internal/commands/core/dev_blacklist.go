package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
)

var errNoBlacklist = errors.New("blacklist not configured")

func init() {
	command.DefaultRegistry.MustRegister(
		command.New("dev-blacklist").
			Description("Ban users or servers from the bot").
			Category("🛠️ Maintenance").
			Permissions(discordgo.PermissionAdministrator).
			Subcommand(&command.Subcommand{
				Name:        "user",
				Description: "Ban a user",
				Options:     []*command.Option{snowflakeOption("id", "User ID")},
				Run:         banUser,
			}).
			Subcommand(&command.Subcommand{
				Name:        "guild",
				Description: "Ban a server",
				Options:     []*command.Option{snowflakeOption("id", "Server ID")},
				Run:         banGuild,
			}).
			Subcommand(&command.Subcommand{
				Name:        "list",
				Description: "List banned servers",
				Run:         listBannedGuilds,
			}).
			MustBuild(),
	)
}

func snowflakeOption(name, desc string) *command.Option {
	minLen := 17
	return &command.Option{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: desc,
		Required:    true,
		MinLength:   &minLen,
		MaxLength:   20,
	}
}

func banUser(ctx context.Context, inv *command.Invocation) error {
	return ban(ctx, inv, "User", func(b BlacklistEditor, id string) error { return b.BanUser(id) })
}

func banGuild(ctx context.Context, inv *command.Invocation) error {
	return ban(ctx, inv, "Server", func(b BlacklistEditor, id string) error { return b.BanGuild(id) })
}

func ban(ctx context.Context, inv *command.Invocation, what string, apply func(BlacklistEditor, string) error) error {
	d := current()
	if d.Blacklist == nil {
		return errNoBlacklist
	}
	id := strings.TrimSpace(inv.String("id"))
	if err := apply(d.Blacklist, id); err != nil {
		return fmt.Errorf("ban %s: %w", id, err)
	}
	if d.BlacklistCache != nil {
		d.BlacklistCache.Purge()
	}
	return inv.Reply.Respond(ctx, &command.Response{
		Content:   fmt.Sprintf("%s `%s` is now blacklisted.", what, id),
		Ephemeral: true,
	})
}

func listBannedGuilds(ctx context.Context, inv *command.Invocation) error {
	d := current()
	if d.Blacklist == nil {
		return errNoBlacklist
	}
	guilds := d.Blacklist.Guilds()
	desc := "No servers are blacklisted."
	if len(guilds) > 0 {
		desc = "`" + strings.Join(guilds, "`\n`") + "`"
	}
	return inv.Reply.Respond(ctx, &command.Response{
		Embeds:    []*discordgo.MessageEmbed{{Title: "Blacklisted servers", Description: desc}},
		Ephemeral: true,
	})
}
