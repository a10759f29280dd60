package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/keshon/server-herald/internal/commandsync"
	"github.com/keshon/server-herald/internal/discord"
	"github.com/keshon/server-herald/pkg/jobmgr"
)

// Owner-only through the configured name prefix.
func init() {
	command.DefaultRegistry.MustRegister(
		command.New("dev-refresh").
			Description("Re-sync slash commands with Discord").
			Category("🛠️ Maintenance").
			Permissions(discordgo.PermissionAdministrator).
			Run(devRefresh).
			MustBuild(),
	)
}

type syncResult struct {
	report *commandsync.Report
	err    error
}

func devRefresh(ctx context.Context, inv *command.Invocation) error {
	if err := inv.Reply.Acknowledge(ctx); err != nil {
		return err
	}

	done := make(chan syncResult, 1)
	ok := discord.PublishSystemEvent(discord.SystemEvent{
		Type:    discord.SystemEventRefreshCommands,
		GuildID: inv.GuildID,
		Done: func(r *commandsync.Report, err error) {
			done <- syncResult{r, err}
		},
	})
	if !ok {
		return inv.Reply.Edit(ctx, &command.Response{Content: "Too many refresh requests queued, try again shortly."})
	}

	select {
	case res := <-done:
		return inv.Reply.Edit(ctx, &command.Response{Embeds: []*discordgo.MessageEmbed{refreshEmbed(res)}})
	case <-ctx.Done():
		return ctx.Err()
	}
}

func refreshEmbed(res syncResult) *discordgo.MessageEmbed {
	switch {
	case errors.Is(res.err, jobmgr.ErrAlreadyRunning):
		return &discordgo.MessageEmbed{Description: "A command sync is already running."}
	case res.err != nil:
		var syncErr *commandsync.SyncError
		if errors.As(res.err, &syncErr) {
			return &discordgo.MessageEmbed{
				Title:       "Sync failed",
				Description: fmt.Sprintf("Stopped at %s (%s). Check the logs for details.", syncErr.Scope, syncErr.Op),
			}
		}
		return &discordgo.MessageEmbed{Title: "Sync failed", Description: "Check the logs for details."}
	}

	var sb strings.Builder
	for _, s := range res.report.Scopes {
		if s.Action == commandsync.ActionUnchanged {
			continue
		}
		sb.WriteString(fmt.Sprintf("**%s**: %s", s.Scope, s.Action))
		if n := len(s.Added) + len(s.Changed) + len(s.Removed); n > 0 {
			sb.WriteString(fmt.Sprintf(" (+%d ~%d -%d)", len(s.Added), len(s.Changed), len(s.Removed)))
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		sb.WriteString("Everything was already up to date.")
	}
	return &discordgo.MessageEmbed{Title: "Commands synced", Description: sb.String()}
}
