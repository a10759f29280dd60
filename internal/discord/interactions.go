package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/keshon/server-herald/internal/router"
)

const EmbedColor = 0xb01e66

// responder answers one interaction through the session.
type responder struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

var _ router.Responder = (*responder)(nil)

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// colorize gives embeds without a color the bot's accent.
func colorize(embeds []*discordgo.MessageEmbed) []*discordgo.MessageEmbed {
	for _, e := range embeds {
		if e != nil && e.Color == 0 {
			e.Color = EmbedColor
		}
	}
	return embeds
}

func (r *responder) Defer(ctx context.Context) error {
	return r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
}

func (r *responder) Respond(ctx context.Context, resp *command.Response) error {
	return r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: resp.Content,
			Embeds:  colorize(resp.Embeds),
			Flags:   flags(resp.Ephemeral),
		},
	}, discordgo.WithContext(ctx))
}

// Edit replaces the original response. Ephemerality is fixed by the first
// answer and cannot change here.
func (r *responder) Edit(ctx context.Context, resp *command.Response) error {
	content := resp.Content
	embeds := colorize(resp.Embeds)
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	_, err := r.s.InteractionResponseEdit(r.i, &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
	}, discordgo.WithContext(ctx))
	return err
}

func (r *responder) FollowUp(ctx context.Context, resp *command.Response) error {
	_, err := r.s.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
		Content: resp.Content,
		Embeds:  colorize(resp.Embeds),
		Flags:   flags(resp.Ephemeral),
	}, discordgo.WithContext(ctx))
	return err
}

func (r *responder) Autocomplete(ctx context.Context, choices []command.Choice) error {
	out := make([]*discordgo.ApplicationCommandOptionChoice, len(choices))
	for i, c := range choices {
		out[i] = &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value}
	}
	return r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: out},
	}, discordgo.WithContext(ctx))
}

// newEvent converts a gateway interaction into a router event. It reports
// false for interactions the router does not handle (components, modals,
// context menus).
func newEvent(s *discordgo.Session, i *discordgo.InteractionCreate, received time.Time) (*router.Event, bool) {
	var typ router.EventType
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		typ = router.EventCommand
	case discordgo.InteractionApplicationCommandAutocomplete:
		typ = router.EventAutocomplete
	default:
		return nil, false
	}

	data := i.ApplicationCommandData()
	if data.CommandType != 0 && data.CommandType != discordgo.ChatApplicationCommand {
		return nil, false
	}

	return &router.Event{
		Type:       typ,
		Invocation: newInvocation(i.Interaction, data),
		Responder:  &responder{s: s, i: i.Interaction},
		ReceivedAt: received,
	}, true
}

func newInvocation(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *command.Invocation {
	inv := &command.Invocation{
		ID:        i.ID,
		Command:   data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Locale:    i.Locale,
		Options:   make(map[string]*discordgo.ApplicationCommandInteractionDataOption),
	}

	user := i.User
	if i.Member != nil {
		inv.Permissions = i.Member.Permissions
		if i.Member.User != nil {
			user = i.Member.User
		}
	}
	if user != nil {
		inv.UserID = user.ID
		inv.Username = user.Username
	}

	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup {
		inv.Group = opts[0].Name
		opts = opts[0].Options
	}
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		inv.Subcommand = opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		inv.Options[o.Name] = o
		if o.Focused {
			inv.Focused = o.Name
		}
	}
	return inv
}
