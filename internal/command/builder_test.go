package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *Invocation) error { return nil }

func validationErrors(err error) []*ValidationError {
	var out []*ValidationError
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var ve *ValidationError
			if errors.As(e, &ve) {
				out = append(out, ve)
			}
		}
	}
	return out
}

func TestBuild_Valid(t *testing.T) {
	c, err := New("ping").
		Description("Check bot latency").
		Cooldown(5 * time.Second).
		Run(noop).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "ping", c.Name())
	assert.Equal(t, 5*time.Second, c.Definition.Cooldown)
	assert.True(t, c.Definition.DMPermission)
}

func TestBuild_DuplicateSubcommand(t *testing.T) {
	_, err := New("music").
		Description("Music controls").
		Subcommand(&Subcommand{Name: "play", Description: "Play", Run: noop}).
		Subcommand(&Subcommand{Name: "play", Description: "Play again", Run: noop}).
		Build()
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Reason, "duplicate")
}

func TestBuild_DuplicateGroupAndSubcommandName(t *testing.T) {
	_, err := New("config").
		Description("Settings").
		Subcommand(&Subcommand{Name: "roles", Description: "Roles", Run: noop}).
		Group("roles", "Role settings", &Subcommand{Name: "set", Description: "Set", Run: noop}).
		Build()

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestBuild_DuplicateSubcommandInGroup(t *testing.T) {
	_, err := New("config").
		Description("Settings").
		Group("roles", "Role settings",
			&Subcommand{Name: "set", Description: "Set", Run: noop},
			&Subcommand{Name: "set", Description: "Set", Run: noop},
		).
		Build()

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "group roles", ve.Field)
}

func TestBuild_NameRules(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		wantErr bool
	}{
		{"valid", "roll-dice", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), true},
		{"max length", strings.Repeat("a", MaxNameLength), false},
		{"uppercase", "Ping", true},
		{"space", "two words", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cmd).Description("desc").Run(noop).Build()
			if tt.wantErr {
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuild_AutocompleteType(t *testing.T) {
	_, err := New("pick").
		Description("Pick a user").
		Option(&Option{Type: discordgo.ApplicationCommandOptionUser, Name: "who", Description: "Who", Autocomplete: true}).
		Run(noop).
		Build()
	require.Error(t, err)

	_, err = New("pick").
		Description("Pick a song").
		Option(&Option{Type: discordgo.ApplicationCommandOptionString, Name: "song", Description: "Song", Autocomplete: true}).
		Run(noop).
		Build()
	assert.NoError(t, err)
}

func TestBuild_ReportsAllProblems(t *testing.T) {
	_, err := New("").
		Option(&Option{Type: discordgo.ApplicationCommandOptionRole, Name: "r", Description: "r", Autocomplete: true}).
		Build()
	require.Error(t, err)

	// empty name, empty description, bad autocomplete, no body
	assert.Len(t, validationErrors(err), 4)
}

func TestBuild_EverySubcommandNeedsBody(t *testing.T) {
	_, err := New("multi").
		Description("Multi").
		Subcommand(&Subcommand{Name: "a", Description: "A", Run: noop}).
		Subcommand(&Subcommand{Name: "b", Description: "B"}).
		Group("g", "Group", &Subcommand{Name: "c", Description: "C"}).
		Build()
	require.Error(t, err)

	errs := validationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "subcommand b", errs[0].Field)
	assert.Equal(t, "group g c", errs[1].Field)
	assert.Equal(t, "no body bound", errs[0].Reason)

	_, err = New("multi").
		Description("Multi").
		Subcommand(&Subcommand{Name: "a", Description: "A", Run: noop}).
		Subcommand(&Subcommand{Name: "b", Description: "B"}).
		Run(noop).
		Build()
	assert.NoError(t, err, "command-level body covers subcommands without their own")
}

func TestBuild_MixedOptionsAndSubcommands(t *testing.T) {
	_, err := New("mixed").
		Description("Mixed").
		Option(&Option{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Text"}).
		Subcommand(&Subcommand{Name: "sub", Description: "Sub", Run: noop}).
		Build()

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "options", ve.Field)
}

func TestBuild_Immutable(t *testing.T) {
	opt := &Option{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Text"}
	b := New("echo").Description("Echo").Option(opt).Run(noop)

	c, err := b.Build()
	require.NoError(t, err)

	opt.Name = "changed"
	assert.Equal(t, "text", c.Definition.Options[0].Name)
}

func TestDefinition_ApplicationCommand(t *testing.T) {
	c := New("stats").
		Description("Usage statistics").
		Localize(discordgo.German, "statistik", "Nutzungsstatistik").
		Permissions(discordgo.PermissionManageGuild).
		GuildOnly().
		Subcommand(&Subcommand{Name: "today", Description: "Today", Run: noop}).
		Group("by", "Filtered", &Subcommand{
			Name:        "command",
			Description: "One command",
			Options: []*Option{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Command", Autocomplete: true},
			},
			Run: noop,
		}).
		MustBuild()

	ac := c.Definition.ApplicationCommand()
	assert.Equal(t, discordgo.ChatApplicationCommand, ac.Type)
	require.NotNil(t, ac.DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionManageGuild), *ac.DefaultMemberPermissions)
	require.NotNil(t, ac.DMPermission)
	assert.False(t, *ac.DMPermission)
	require.NotNil(t, ac.NameLocalizations)
	assert.Equal(t, "statistik", (*ac.NameLocalizations)[discordgo.German])

	require.Len(t, ac.Options, 2)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, ac.Options[0].Type)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommandGroup, ac.Options[1].Type)
	assert.True(t, ac.Options[1].Options[0].Options[0].Autocomplete)
}

func TestCommand_Handler(t *testing.T) {
	var called string
	top := func(context.Context, *Invocation) error { called = "top"; return nil }
	sub := func(context.Context, *Invocation) error { called = "sub"; return nil }

	c := New("music").
		Description("Music").
		Group("queue", "Queue", &Subcommand{Name: "clear", Description: "Clear", Run: sub}).
		Subcommand(&Subcommand{Name: "stop", Description: "Stop"}).
		Run(top).
		MustBuild()

	require.NoError(t, c.Handler("queue", "clear")(context.Background(), nil))
	assert.Equal(t, "sub", called)

	require.NoError(t, c.Handler("", "stop")(context.Background(), nil))
	assert.Equal(t, "top", called)
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	c := New("ping").Description("Ping").Run(noop).MustBuild()

	require.NoError(t, r.Register(c))
	err := r.Register(c)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	got, ok := r.Get("ping")
	assert.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, []string{"ping"}, r.Names())
	assert.Len(t, r.ApplicationCommands(), 1)
}
