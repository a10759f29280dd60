package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/keshon/server-herald/internal/config"
)

func init() {
	command.DefaultRegistry.MustRegister(
		command.New("help").
			Description("Get a list of available commands").
			Category("🕯️ Information").
			Option(&command.Option{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "view_as",
				Description: "View commands by category or as a flat list",
				Choices: []command.Choice{
					{Name: "Categories", Value: "category"},
					{Name: "Flat list", Value: "flat"},
				},
			}).
			Run(help).
			MustBuild(),
	)
}

func help(ctx context.Context, inv *command.Invocation) error {
	cmds := visibleCommands(inv.UserID, command.DefaultRegistry.All())

	var output string
	if inv.String("view_as") == "flat" {
		output = buildHelpFlat(cmds)
	} else {
		output = buildHelpByCategory(cmds)
	}

	return inv.Reply.Respond(ctx, &command.Response{
		Embeds:    []*discordgo.MessageEmbed{{Title: "Help", Description: output}},
		Ephemeral: true,
	})
}

// visibleCommands drops owner-only commands for everyone but the owners.
func visibleCommands(userID string, all []*command.Command) []*command.Command {
	owner := current().Owner
	if owner == nil {
		return all
	}
	out := make([]*command.Command, 0, len(all))
	for _, c := range all {
		if owner.Allows(userID, c) {
			out = append(out, c)
		}
	}
	return out
}

func buildHelpByCategory(cmds []*command.Command) string {
	categoryMap := make(map[string][]*command.Command)
	for _, c := range cmds {
		cat := c.Definition.Category
		if cat == "" {
			cat = "Other"
		}
		categoryMap[cat] = append(categoryMap[cat], c)
	}

	cats := make([]string, 0, len(categoryMap))
	for cat := range categoryMap {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, wj := config.CategoryWeights[cats[i]], config.CategoryWeights[cats[j]]
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	var sb strings.Builder
	for _, cat := range cats {
		sb.WriteString(fmt.Sprintf("**%s**\n", cat))
		sb.WriteString(buildHelpFlat(categoryMap[cat]))
		sb.WriteString("\n")
	}
	return sb.String()
}

// buildHelpFlat lists commands in name order, expanding subcommands.
func buildHelpFlat(cmds []*command.Command) string {
	sorted := append([]*command.Command(nil), cmds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	var sb strings.Builder
	for _, c := range sorted {
		d := c.Definition
		if len(d.Subcommands) == 0 && len(d.Groups) == 0 {
			sb.WriteString(fmt.Sprintf("`/%s` - %s\n", d.Name, d.Description))
			continue
		}
		for _, s := range d.Subcommands {
			sb.WriteString(fmt.Sprintf("`/%s %s` - %s\n", d.Name, s.Name, s.Description))
		}
		for _, g := range d.Groups {
			for _, s := range g.Subcommands {
				sb.WriteString(fmt.Sprintf("`/%s %s %s` - %s\n", d.Name, g.Name, s.Name, s.Description))
			}
		}
	}
	return sb.String()
}
