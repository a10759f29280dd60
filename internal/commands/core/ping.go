package core

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
)

func init() {
	command.DefaultRegistry.MustRegister(
		command.New("ping").
			Description("Check bot latency").
			Category("🛠️ Maintenance").
			Run(ping).
			MustBuild(),
	)
}

func ping(ctx context.Context, inv *command.Invocation) error {
	embed := &discordgo.MessageEmbed{Title: "Pong!"}
	// interaction IDs are snowflakes, so they carry their creation time
	if created, err := discordgo.SnowflakeTimestamp(inv.ID); err == nil {
		latency := current().Now().Sub(created)
		embed.Description = fmt.Sprintf("Latency: %dms", latency.Round(time.Millisecond).Milliseconds())
	}
	return inv.Reply.Respond(ctx, &command.Response{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: true})
}
