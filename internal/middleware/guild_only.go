package middleware

import (
	"context"

	"github.com/keshon/server-herald/internal/command"
)

// GuildOnlyCheck rejects commands that are not allowed in direct messages.
type GuildOnlyCheck struct{}

func (GuildOnlyCheck) Name() string  { return "guild-only" }
func (GuildOnlyCheck) Priority() int { return 350 }

func (GuildOnlyCheck) Check(_ context.Context, inv *command.Invocation, cmd *command.Command) Outcome {
	if inv.InGuild() || cmd.Definition.DMPermission {
		return Continue()
	}
	return Halt("This command can only be used in a server.")
}
