package commandsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote stores commands per scope the way Discord echoes them back:
// with IDs assigned, values decoded from JSON and no dm_permission on guild
// commands.
type fakeRemote struct {
	mu       sync.Mutex
	scopes   map[Scope][]*discordgo.ApplicationCommand
	lists    int
	replaces []Scope
	failOn   string
	failAt   Scope
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{scopes: make(map[Scope][]*discordgo.ApplicationCommand)}
}

func (f *fakeRemote) seed(t *testing.T, scope Scope, cmds []*discordgo.ApplicationCommand) {
	t.Helper()
	f.scopes[scope] = echo(t, scope, cmds)
}

func (f *fakeRemote) ListCommands(_ context.Context, scope Scope) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.failOn == "list" && f.failAt == scope {
		return nil, errors.New("HTTP 403 Forbidden")
	}
	return f.scopes[scope], nil
}

func (f *fakeRemote) ReplaceCommands(_ context.Context, scope Scope, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "replace" && f.failAt == scope {
		return nil, errors.New("HTTP 500 Internal Server Error")
	}
	f.replaces = append(f.replaces, scope)
	stored := echoNoT(scope, cmds)
	f.scopes[scope] = stored
	return stored, nil
}

func (f *fakeRemote) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaces)
}

func echo(t *testing.T, scope Scope, cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	t.Helper()
	out := echoNoT(scope, cmds)
	require.Len(t, out, len(cmds))
	return out
}

func echoNoT(scope Scope, cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	data, _ := json.Marshal(cmds)
	var out []*discordgo.ApplicationCommand
	_ = json.Unmarshal(data, &out)
	for i, c := range out {
		c.ID = fmt.Sprintf("%d", 1000+i)
		c.ApplicationID = "app"
		c.GuildID = scope.GuildID
		c.Version = "1"
		if !scope.IsGlobal() {
			c.DMPermission = nil
		}
	}
	return out
}

type countingLimiter struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return ctx.Err()
}

func localSet(t *testing.T) func() []*discordgo.ApplicationCommand {
	t.Helper()
	noop := func(context.Context, *command.Invocation) error { return nil }
	minLen := 2
	reg := command.NewRegistry()
	require.NoError(t, reg.Register(command.New("ping").Description("Check latency").Run(noop).MustBuild()))
	require.NoError(t, reg.Register(command.New("roll").Description("Roll a die").
		Option(&command.Option{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "sides",
			Description: "Number of sides",
			Choices:     []command.Choice{{Name: "d6", Value: 6}, {Name: "d20", Value: 20}},
		}).
		Option(&command.Option{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "label",
			Description: "Label",
			MinLength:   &minLen,
		}).
		Run(noop).MustBuild()))
	require.NoError(t, reg.Register(command.New("ban").Description("Ban a member").
		Permissions(discordgo.PermissionBanMembers).GuildOnly().Run(noop).MustBuild()))
	return reg.ApplicationCommands
}

func guildCommands(names ...string) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, len(names))
	for i, n := range names {
		out[i] = &discordgo.ApplicationCommand{Name: n, Description: "old", Type: discordgo.ChatApplicationCommand}
	}
	return out
}

func TestSync_GlobalOnlyClearsGuilds(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(t, Guild("g1"), guildCommands("ping"))
	remote.seed(t, Guild("g2"), guildCommands("roll"))
	remote.seed(t, Guild("g3"), guildCommands("ban"))
	lim := &countingLimiter{}

	s := New(remote, lim, localSet(t))
	report, err := s.Sync(context.Background(), Plan{Global: true}, []string{"g1", "g2", "g3", "g4"})
	require.NoError(t, err)

	assert.Equal(t, []Scope{Global(), Guild("g1"), Guild("g2"), Guild("g3")}, remote.replaces,
		"one global replace and one clear per non-empty guild")
	for _, g := range []string{"g1", "g2", "g3"} {
		assert.Empty(t, remote.scopes[Guild(g)])
	}
	assert.Len(t, remote.scopes[Global()], 3)
	assert.Equal(t, 4, report.Mutations())
	assert.Equal(t, ActionReplaced, report.Scopes[0].Action)
	assert.Equal(t, []string{"ban", "ping", "roll"}, report.Scopes[0].Added)
	assert.Equal(t, []string{"ping"}, report.Scopes[1].Removed)
	assert.Equal(t, ActionUnchanged, report.Scopes[4].Action, "empty guild is left alone")

	assert.Equal(t, remote.lists+remote.replaceCount(), lim.calls, "every remote call is paced")
}

func TestSync_SecondRunIsNoop(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"global", Plan{Global: true}},
		{"guilds", Plan{Guilds: []string{"g1", "g2"}}},
		{"known guilds", Plan{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote()
			remote.seed(t, Global(), guildCommands("legacy"))
			remote.seed(t, Guild("g1"), guildCommands("ping"))
			s := New(remote, nil, localSet(t))

			_, err := s.Sync(context.Background(), tt.plan, []string{"g1", "g2"})
			require.NoError(t, err)
			first := remote.replaceCount()
			assert.Positive(t, first)

			report, err := s.Sync(context.Background(), tt.plan, []string{"g1", "g2"})
			require.NoError(t, err)
			assert.Equal(t, first, remote.replaceCount(), "second run issues no mutations")
			assert.Zero(t, report.Mutations())
		})
	}
}

func TestSync_ZeroPlanUsesKnownGuilds(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(t, Global(), guildCommands("ping"))
	s := New(remote, nil, localSet(t))

	_, err := s.Sync(context.Background(), Plan{}, []string{"g1", "g2"})
	require.NoError(t, err)

	assert.Empty(t, remote.scopes[Global()])
	assert.Len(t, remote.scopes[Guild("g1")], 3)
	assert.Len(t, remote.scopes[Guild("g2")], 3)
}

func TestSync_GuildAllowList(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(t, Global(), guildCommands("ping"))
	remote.seed(t, Guild("other"), guildCommands("ping"))
	s := New(remote, nil, localSet(t))

	report, err := s.Sync(context.Background(), Plan{Guilds: []string{"g1"}}, []string{"other"})
	require.NoError(t, err)

	assert.Empty(t, remote.scopes[Global()])
	assert.Empty(t, remote.scopes[Guild("other")])
	assert.Len(t, remote.scopes[Guild("g1")], 3, "allow-listed guild is visited even if not yet known")
	assert.Equal(t, 3, report.Mutations())
}

func TestSync_ChangedDefinitionIsReplaced(t *testing.T) {
	remote := newFakeRemote()
	local := localSet(t)
	remote.seed(t, Global(), local())

	edited := local()
	edited[0].Description = "Ban a member permanently"
	s := New(remote, nil, func() []*discordgo.ApplicationCommand { return edited })

	report, err := s.Sync(context.Background(), Plan{Global: true}, nil)
	require.NoError(t, err)
	require.Len(t, report.Scopes, 1)
	assert.Equal(t, ActionReplaced, report.Scopes[0].Action)
	assert.Equal(t, []string{"ban"}, report.Scopes[0].Changed)
	assert.Empty(t, report.Scopes[0].Added)
}

func TestSync_FailureAborts(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(t, Guild("g1"), guildCommands("ping"))
	remote.seed(t, Guild("g2"), guildCommands("ping"))
	remote.failOn, remote.failAt = "replace", Guild("g1")
	s := New(remote, nil, localSet(t))

	report, err := s.Sync(context.Background(), Plan{Global: true}, []string{"g1", "g2"})
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, Guild("g1"), syncErr.Scope)
	assert.Equal(t, "clear", syncErr.Op)
	assert.Equal(t, []Scope{Global()}, remote.replaces, "g2 is never touched")
	assert.Len(t, remote.scopes[Guild("g2")], 1)
	assert.Len(t, report.Scopes, 1)
}

func TestSync_ListFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.failOn, remote.failAt = "list", Global()
	s := New(remote, nil, localSet(t))

	_, err := s.Sync(context.Background(), Plan{Global: true}, nil)
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "list", syncErr.Op)
	assert.ErrorContains(t, err, "sync global: list: HTTP 403")
	assert.Zero(t, remote.replaceCount())
}

func TestSync_RejectsConflictingPlan(t *testing.T) {
	s := New(newFakeRemote(), nil, localSet(t))
	_, err := s.Sync(context.Background(), Plan{Global: true, Guilds: []string{"g1"}}, nil)
	assert.ErrorIs(t, err, ErrConflictingPlan)
}

func TestSync_CanceledContext(t *testing.T) {
	remote := newFakeRemote()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(remote, &countingLimiter{}, localSet(t)).Sync(ctx, Plan{Global: true}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, remote.lists)
}

func TestHashCommand_IgnoresServerFields(t *testing.T) {
	local := localSet(t)()
	echoed := echo(t, Global(), local)
	for i := range local {
		assert.Equal(t, hashCommand(local[i], true), hashCommand(echoed[i], true), local[i].Name)
	}

	reordered := echo(t, Global(), local)
	opts := reordered[2].Options
	opts[0], opts[1] = opts[1], opts[0]
	assert.NotEqual(t, hashCommand(local[2], true), hashCommand(reordered[2], true), "option order is visible to users")
}

func TestSync_GuildOnlyCommandStableInGuildScope(t *testing.T) {
	local := localSet(t)
	ban := local()[0]
	require.Equal(t, "ban", ban.Name)
	require.NotNil(t, ban.DMPermission)
	require.False(t, *ban.DMPermission)

	echoed := echo(t, Guild("g1"), []*discordgo.ApplicationCommand{ban})
	assert.Nil(t, echoed[0].DMPermission)
	assert.Equal(t, hashCommand(ban, false), hashCommand(echoed[0], false))
	assert.True(t, diffCommands(Guild("g1"), echoed, []*discordgo.ApplicationCommand{ban}).empty())

	remote := newFakeRemote()
	s := New(remote, nil, local)
	_, err := s.Sync(context.Background(), Plan{Guilds: []string{"g1"}}, nil)
	require.NoError(t, err)
	report, err := s.Sync(context.Background(), Plan{Guilds: []string{"g1"}}, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Mutations())
}
