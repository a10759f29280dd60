package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/keshon/server-herald/internal/storage"
)

const statsTopN = 15

var errNoUsage = errors.New("usage store not configured")

func init() {
	command.DefaultRegistry.MustRegister(
		command.New("stats").
			Description("Command usage statistics").
			Category("📊 Statistics").
			Subcommand(&command.Subcommand{
				Name:        "today",
				Description: "Most used commands today",
				Run:         statsToday,
			}).
			Subcommand(&command.Subcommand{
				Name:        "command",
				Description: "How often one command was used today",
				Options: []*command.Option{{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "name",
					Description:  "Command name",
					Required:     true,
					Autocomplete: true,
				}},
				Run: statsCommand,
			}).
			Autocomplete(completeCommandName).
			MustBuild(),
	)
}

func todayUsage(ctx context.Context) ([]storage.UsageCount, error) {
	d := current()
	if d.Usage == nil {
		return nil, errNoUsage
	}
	return d.Usage.Usage(ctx, d.Now())
}

func statsToday(ctx context.Context, inv *command.Invocation) error {
	usage, err := todayUsage(ctx)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}

	embed := &discordgo.MessageEmbed{Title: "Today's commands"}
	if len(usage) == 0 {
		embed.Description = "No commands used yet today."
	} else {
		embed.Description = formatUsage(usage, statsTopN)
	}
	return inv.Reply.Respond(ctx, &command.Response{Embeds: []*discordgo.MessageEmbed{embed}})
}

func statsCommand(ctx context.Context, inv *command.Invocation) error {
	name := strings.TrimPrefix(strings.TrimSpace(inv.String("name")), "/")
	usage, err := todayUsage(ctx)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}

	var total int64
	var lines []storage.UsageCount
	for _, u := range usage {
		if u.Command == name {
			total += u.Count
			lines = append(lines, u)
		}
	}

	embed := &discordgo.MessageEmbed{Title: "/" + name}
	if total == 0 {
		embed.Description = fmt.Sprintf("`/%s` has not been used today.", name)
	} else {
		embed.Description = fmt.Sprintf("Used **%d** time(s) today.\n\n%s", total, formatUsage(lines, statsTopN))
	}
	return inv.Reply.Respond(ctx, &command.Response{Embeds: []*discordgo.MessageEmbed{embed}})
}

func formatUsage(usage []storage.UsageCount, limit int) string {
	var sb strings.Builder
	for i, u := range usage {
		if i == limit {
			sb.WriteString(fmt.Sprintf("…and %d more\n", len(usage)-limit))
			break
		}
		sb.WriteString(fmt.Sprintf("`/%s` - %d\n", u.Path(), u.Count))
	}
	return sb.String()
}

// completeCommandName suggests registered command names matching the typed prefix.
func completeCommandName(_ context.Context, inv *command.Invocation) ([]command.Choice, error) {
	typed := strings.ToLower(strings.TrimPrefix(inv.String(inv.Focused), "/"))
	var out []command.Choice
	for _, name := range command.DefaultRegistry.Names() {
		if strings.HasPrefix(name, typed) {
			out = append(out, command.Choice{Name: "/" + name, Value: name})
		}
	}
	return out, nil
}
