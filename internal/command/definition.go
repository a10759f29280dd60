// Package command describes commands as data: their Discord-facing definition,
// the bodies bound to them and the registry the router and synchronizer read.
package command

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Handler is a command or subcommand body.
type Handler func(ctx context.Context, inv *Invocation) error

// AutocompleteHandler returns suggestions for the focused option of inv.
type AutocompleteHandler func(ctx context.Context, inv *Invocation) ([]Choice, error)

// Choice is a fixed or suggested option value.
type Choice struct {
	Name  string
	Value interface{}
}

// Option is a single typed parameter of a command or subcommand.
type Option struct {
	Type                     discordgo.ApplicationCommandOptionType
	Name                     string
	Description              string
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string
	Required                 bool
	Autocomplete             bool
	Choices                  []Choice
	ChannelTypes             []discordgo.ChannelType
	MinValue                 *float64
	MaxValue                 float64
	MinLength                *int
	MaxLength                int
}

// Subcommand is a leaf of a command tree. Run is optional: without it the
// command-level body handles the invocation.
type Subcommand struct {
	Name                     string
	Description              string
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string
	Options                  []*Option
	Run                      Handler
}

// Group nests subcommands one level deep.
type Group struct {
	Name                     string
	Description              string
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string
	Subcommands              []*Subcommand
}

// Definition is the immutable metadata of a command. Build one with Builder.
type Definition struct {
	Name                     string
	Description              string
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string
	Options                  []*Option
	Subcommands              []*Subcommand
	Groups                   []*Group

	// DefaultMemberPermissions is the permission bitset a caller needs. Zero
	// means no requirement.
	DefaultMemberPermissions int64
	DMPermission             bool
	NSFW                     bool

	OwnerOnly bool
	Cooldown  time.Duration
	Category  string
}

// Command is a registry entry: a definition with the bodies bound to it.
type Command struct {
	Definition   *Definition
	Run          Handler
	Autocomplete AutocompleteHandler
}

// Name returns the registry key of c.
func (c *Command) Name() string { return c.Definition.Name }

// Subcommand resolves a subcommand path. group may be empty.
func (d *Definition) Subcommand(group, name string) (*Subcommand, bool) {
	if name == "" {
		return nil, false
	}
	if group == "" {
		for _, s := range d.Subcommands {
			if s.Name == name {
				return s, true
			}
		}
		return nil, false
	}
	for _, g := range d.Groups {
		if g.Name != group {
			continue
		}
		for _, s := range g.Subcommands {
			if s.Name == name {
				return s, true
			}
		}
	}
	return nil, false
}

// Handler returns the body bound to the given subcommand path, falling back to
// the command-level body.
func (c *Command) Handler(group, sub string) Handler {
	if s, ok := c.Definition.Subcommand(group, sub); ok && s.Run != nil {
		return s.Run
	}
	return c.Run
}

// ApplicationCommand serializes d to the Discord registration schema.
func (d *Definition) ApplicationCommand() *discordgo.ApplicationCommand {
	ac := &discordgo.ApplicationCommand{
		Type:        discordgo.ChatApplicationCommand,
		Name:        d.Name,
		Description: d.Description,
	}
	if len(d.NameLocalizations) > 0 {
		m := copyLocalizations(d.NameLocalizations)
		ac.NameLocalizations = &m
	}
	if len(d.DescriptionLocalizations) > 0 {
		m := copyLocalizations(d.DescriptionLocalizations)
		ac.DescriptionLocalizations = &m
	}
	if d.DefaultMemberPermissions != 0 {
		perms := d.DefaultMemberPermissions
		ac.DefaultMemberPermissions = &perms
	}
	dm := d.DMPermission
	ac.DMPermission = &dm
	if d.NSFW {
		nsfw := true
		ac.NSFW = &nsfw
	}

	for _, o := range d.Options {
		ac.Options = append(ac.Options, o.applicationCommandOption())
	}
	for _, s := range d.Subcommands {
		ac.Options = append(ac.Options, s.applicationCommandOption())
	}
	for _, g := range d.Groups {
		opt := &discordgo.ApplicationCommandOption{
			Type:                     discordgo.ApplicationCommandOptionSubCommandGroup,
			Name:                     g.Name,
			Description:              g.Description,
			NameLocalizations:        copyLocalizations(g.NameLocalizations),
			DescriptionLocalizations: copyLocalizations(g.DescriptionLocalizations),
		}
		for _, s := range g.Subcommands {
			opt.Options = append(opt.Options, s.applicationCommandOption())
		}
		ac.Options = append(ac.Options, opt)
	}
	return ac
}

func (s *Subcommand) applicationCommandOption() *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionSubCommand,
		Name:                     s.Name,
		Description:              s.Description,
		NameLocalizations:        copyLocalizations(s.NameLocalizations),
		DescriptionLocalizations: copyLocalizations(s.DescriptionLocalizations),
	}
	for _, o := range s.Options {
		opt.Options = append(opt.Options, o.applicationCommandOption())
	}
	return opt
}

func (o *Option) applicationCommandOption() *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:                     o.Type,
		Name:                     o.Name,
		Description:              o.Description,
		NameLocalizations:        copyLocalizations(o.NameLocalizations),
		DescriptionLocalizations: copyLocalizations(o.DescriptionLocalizations),
		Required:                 o.Required,
		Autocomplete:             o.Autocomplete,
		ChannelTypes:             o.ChannelTypes,
		MinValue:                 o.MinValue,
		MaxValue:                 o.MaxValue,
		MinLength:                o.MinLength,
		MaxLength:                o.MaxLength,
	}
	for _, c := range o.Choices {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value})
	}
	return opt
}

func copyLocalizations(m map[discordgo.Locale]string) map[discordgo.Locale]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[discordgo.Locale]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
