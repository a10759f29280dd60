package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Response is the payload of a reply.
type Response struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

// Reply is the effect handle a body uses to answer its interaction.
//
// The first call must be Acknowledge or Respond. Acknowledge defers without
// content and later content goes through Edit; FollowUp adds messages after
// the first answer.
type Reply interface {
	Acknowledge(ctx context.Context) error
	Respond(ctx context.Context, r *Response) error
	Edit(ctx context.Context, r *Response) error
	FollowUp(ctx context.Context, r *Response) error
	Acknowledged() bool
}

// Invocation is the read-only view of one interaction handed to checks and bodies.
type Invocation struct {
	ID         string
	Command    string
	Group      string
	Subcommand string

	UserID      string
	Username    string
	GuildID     string
	ChannelID   string
	Permissions int64
	Locale      discordgo.Locale

	// Options holds leaf option values keyed by name.
	Options map[string]*discordgo.ApplicationCommandInteractionDataOption
	// Focused names the option being completed in autocomplete events.
	Focused string

	Reply Reply
}

// InGuild reports whether the invocation came from a guild rather than a DM.
func (inv *Invocation) InGuild() bool { return inv.GuildID != "" }

// Path returns "command group sub" with empty parts omitted.
func (inv *Invocation) Path() string {
	p := inv.Command
	if inv.Group != "" {
		p += " " + inv.Group
	}
	if inv.Subcommand != "" {
		p += " " + inv.Subcommand
	}
	return p
}

func (inv *Invocation) String(name string) string {
	if o, ok := inv.Options[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

func (inv *Invocation) Int(name string) int64 {
	if o, ok := inv.Options[name]; ok && o.Type == discordgo.ApplicationCommandOptionInteger {
		return o.IntValue()
	}
	return 0
}

func (inv *Invocation) Bool(name string) bool {
	if o, ok := inv.Options[name]; ok && o.Type == discordgo.ApplicationCommandOptionBoolean {
		return o.BoolValue()
	}
	return false
}
