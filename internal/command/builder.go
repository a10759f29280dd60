package command

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	MaxNameLength        = 32
	MaxDescriptionLength = 100
)

var namePattern = regexp.MustCompile(`^[-_\p{Ll}\p{N}]+$`)

// ValidationError describes one problem found by Builder.Build or Registry.Register.
type ValidationError struct {
	Command string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("command %q: %s", e.Command, e.Reason)
	}
	return fmt.Sprintf("command %q: %s: %s", e.Command, e.Field, e.Reason)
}

// Builder accumulates a command definition. Nothing is checked until Build.
type Builder struct {
	def          Definition
	run          Handler
	autocomplete AutocompleteHandler
}

// New starts a builder for the named command. Commands are usable in DMs by
// default.
func New(name string) *Builder {
	return &Builder{def: Definition{Name: name, DMPermission: true}}
}

func (b *Builder) Description(desc string) *Builder {
	b.def.Description = desc
	return b
}

// Localize sets the name and description shown for locale.
func (b *Builder) Localize(locale discordgo.Locale, name, desc string) *Builder {
	if b.def.NameLocalizations == nil {
		b.def.NameLocalizations = map[discordgo.Locale]string{}
		b.def.DescriptionLocalizations = map[discordgo.Locale]string{}
	}
	if name != "" {
		b.def.NameLocalizations[locale] = name
	}
	if desc != "" {
		b.def.DescriptionLocalizations[locale] = desc
	}
	return b
}

func (b *Builder) Option(opt *Option) *Builder {
	b.def.Options = append(b.def.Options, opt)
	return b
}

func (b *Builder) Subcommand(sub *Subcommand) *Builder {
	b.def.Subcommands = append(b.def.Subcommands, sub)
	return b
}

func (b *Builder) Group(name, desc string, subs ...*Subcommand) *Builder {
	b.def.Groups = append(b.def.Groups, &Group{Name: name, Description: desc, Subcommands: subs})
	return b
}

// Permissions sets the permission bitset callers need inside a guild.
func (b *Builder) Permissions(perms int64) *Builder {
	b.def.DefaultMemberPermissions = perms
	return b
}

// GuildOnly hides the command from direct messages.
func (b *Builder) GuildOnly() *Builder {
	b.def.DMPermission = false
	return b
}

func (b *Builder) NSFW() *Builder {
	b.def.NSFW = true
	return b
}

// OwnerOnly restricts the command to the configured owners.
func (b *Builder) OwnerOnly() *Builder {
	b.def.OwnerOnly = true
	return b
}

func (b *Builder) Cooldown(d time.Duration) *Builder {
	b.def.Cooldown = d
	return b
}

func (b *Builder) Category(c string) *Builder {
	b.def.Category = c
	return b
}

func (b *Builder) Run(h Handler) *Builder {
	b.run = h
	return b
}

func (b *Builder) Autocomplete(h AutocompleteHandler) *Builder {
	b.autocomplete = h
	return b
}

// Build validates the accumulated definition and returns an immutable command.
// All problems are reported at once, joined; each is a *ValidationError.
func (b *Builder) Build() (*Command, error) {
	v := &validator{command: b.def.Name}
	def := &b.def

	v.name("name", def.Name)
	v.description("description", def.Description)

	if len(def.Options) > 0 && (len(def.Subcommands) > 0 || len(def.Groups) > 0) {
		v.fail("options", "cannot mix options with subcommands or groups")
	}
	v.options("options", def.Options)

	seen := map[string]bool{}
	leaves := 0
	for _, s := range def.Subcommands {
		if seen[s.Name] {
			v.fail("subcommands", fmt.Sprintf("duplicate name %q", s.Name))
		}
		seen[s.Name] = true
		v.subcommand("subcommand "+s.Name, s)
		leaves++
		b.requireBody(v, "subcommand "+s.Name, s)
	}
	for _, g := range def.Groups {
		if seen[g.Name] {
			v.fail("groups", fmt.Sprintf("duplicate name %q", g.Name))
		}
		seen[g.Name] = true
		field := "group " + g.Name
		v.name(field, g.Name)
		v.description(field, g.Description)
		if len(g.Subcommands) == 0 {
			v.fail(field, "has no subcommands")
		}
		inGroup := map[string]bool{}
		for _, s := range g.Subcommands {
			if inGroup[s.Name] {
				v.fail(field, fmt.Sprintf("duplicate subcommand %q", s.Name))
			}
			inGroup[s.Name] = true
			v.subcommand(field+" "+s.Name, s)
			leaves++
			b.requireBody(v, field+" "+s.Name, s)
		}
	}
	if b.run == nil && leaves == 0 {
		v.fail("", "no body bound to the command or any subcommand")
	}

	if err := errors.Join(v.errs...); err != nil {
		return nil, err
	}

	return &Command{
		Definition:   cloneDefinition(def),
		Run:          b.run,
		Autocomplete: b.autocomplete,
	}, nil
}

// requireBody fails a subcommand that has no body of its own when the
// command has none to fall back to.
func (b *Builder) requireBody(v *validator, field string, s *Subcommand) {
	if b.run == nil && s.Run == nil {
		v.fail(field, "no body bound")
	}
}

// MustBuild is Build for package-level registration; it panics on error.
func (b *Builder) MustBuild() *Command {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

type validator struct {
	command string
	errs    []error
}

func (v *validator) fail(field, reason string) {
	v.errs = append(v.errs, &ValidationError{Command: v.command, Field: field, Reason: reason})
}

func (v *validator) name(field, name string) {
	switch {
	case name == "":
		v.fail(field, "name is empty")
	case len([]rune(name)) > MaxNameLength:
		v.fail(field, fmt.Sprintf("name longer than %d characters", MaxNameLength))
	case !namePattern.MatchString(name):
		v.fail(field, fmt.Sprintf("name %q must be lowercase letters, digits, '-' or '_'", name))
	}
}

func (v *validator) description(field, desc string) {
	switch {
	case desc == "":
		v.fail(field, "description is empty")
	case len([]rune(desc)) > MaxDescriptionLength:
		v.fail(field, fmt.Sprintf("description longer than %d characters", MaxDescriptionLength))
	}
}

func (v *validator) subcommand(field string, s *Subcommand) {
	v.name(field, s.Name)
	v.description(field, s.Description)
	v.options(field, s.Options)
}

func (v *validator) options(field string, opts []*Option) {
	seen := map[string]bool{}
	for _, o := range opts {
		f := field + " " + o.Name
		if seen[o.Name] {
			v.fail(field, fmt.Sprintf("duplicate option %q", o.Name))
		}
		seen[o.Name] = true
		v.name(f, o.Name)
		v.description(f, o.Description)
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			v.fail(f, "subcommands must be declared with Subcommand or Group")
		}
		if o.Autocomplete {
			if !supportsAutocomplete(o.Type) {
				v.fail(f, fmt.Sprintf("autocomplete is not supported for %s options", o.Type))
			}
			if len(o.Choices) > 0 {
				v.fail(f, "autocomplete cannot be combined with fixed choices")
			}
		}
	}
}

func supportsAutocomplete(t discordgo.ApplicationCommandOptionType) bool {
	switch t {
	case discordgo.ApplicationCommandOptionString,
		discordgo.ApplicationCommandOptionInteger,
		discordgo.ApplicationCommandOptionNumber:
		return true
	}
	return false
}

func cloneDefinition(d *Definition) *Definition {
	out := *d
	out.NameLocalizations = copyLocalizations(d.NameLocalizations)
	out.DescriptionLocalizations = copyLocalizations(d.DescriptionLocalizations)
	out.Options = cloneOptions(d.Options)
	out.Subcommands = cloneSubcommands(d.Subcommands)
	out.Groups = nil
	for _, g := range d.Groups {
		cg := *g
		cg.NameLocalizations = copyLocalizations(g.NameLocalizations)
		cg.DescriptionLocalizations = copyLocalizations(g.DescriptionLocalizations)
		cg.Subcommands = cloneSubcommands(g.Subcommands)
		out.Groups = append(out.Groups, &cg)
	}
	return &out
}

func cloneSubcommands(in []*Subcommand) []*Subcommand {
	var out []*Subcommand
	for _, s := range in {
		cs := *s
		cs.NameLocalizations = copyLocalizations(s.NameLocalizations)
		cs.DescriptionLocalizations = copyLocalizations(s.DescriptionLocalizations)
		cs.Options = cloneOptions(s.Options)
		out = append(out, &cs)
	}
	return out
}

func cloneOptions(in []*Option) []*Option {
	var out []*Option
	for _, o := range in {
		co := *o
		co.NameLocalizations = copyLocalizations(o.NameLocalizations)
		co.DescriptionLocalizations = copyLocalizations(o.DescriptionLocalizations)
		co.Choices = append([]Choice(nil), o.Choices...)
		co.ChannelTypes = append([]discordgo.ChannelType(nil), o.ChannelTypes...)
		out = append(out, &co)
	}
	return out
}
