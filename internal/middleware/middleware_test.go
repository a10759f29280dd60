package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyCheck struct {
	name     string
	priority int
	outcome  Outcome
	calls    *[]string
}

func (s *spyCheck) Name() string  { return s.name }
func (s *spyCheck) Priority() int { return s.priority }
func (s *spyCheck) Check(context.Context, *command.Invocation, *command.Command) Outcome {
	*s.calls = append(*s.calls, s.name)
	return s.outcome
}

type panicCheck struct{}

func (panicCheck) Name() string  { return "boom" }
func (panicCheck) Priority() int { return 50 }
func (panicCheck) Check(context.Context, *command.Invocation, *command.Command) Outcome {
	panic("nil map")
}

func testCommand(t *testing.T, b *command.Builder) *command.Command {
	t.Helper()
	c, err := b.Run(func(context.Context, *command.Invocation) error { return nil }).Build()
	require.NoError(t, err)
	return c
}

func TestManager_OrderAndShortCircuit(t *testing.T) {
	cmd := testCommand(t, command.New("ping").Description("Ping"))
	inv := &command.Invocation{Command: "ping", UserID: "u1"}

	tests := []struct {
		name      string
		stopAt    int
		stop      Outcome
		wantCalls []string
		wantKind  Kind
	}{
		{"all continue", -1, Continue(), []string{"high", "mid", "low"}, KindContinue},
		{"halt in the middle", 200, Halt("no"), []string{"high", "mid"}, KindHalt},
		{"fail first", 300, Fail(errors.New("db down")), []string{"high"}, KindFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			mk := func(name string, prio int) *spyCheck {
				out := Continue()
				if prio == tt.stopAt {
					out = tt.stop
				}
				return &spyCheck{name: name, priority: prio, outcome: out, calls: &calls}
			}
			// registered out of order on purpose
			m := NewManager(mk("low", 100), mk("high", 300), mk("mid", 200))

			res := m.Run(context.Background(), inv, cmd)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantKind, res.Outcome.Kind())
		})
	}
}

func TestManager_HaltReportsCheckAndMessage(t *testing.T) {
	var calls []string
	m := NewManager(&spyCheck{name: "gate", priority: 10, outcome: Halt("closed"), calls: &calls})

	res := m.Run(context.Background(), &command.Invocation{}, testCommand(t, command.New("x").Description("x")))
	assert.Equal(t, "gate", res.Check)
	assert.Equal(t, "closed", res.Outcome.Message())
}

func TestManager_PanicBecomesFail(t *testing.T) {
	var calls []string
	m := NewManager(panicCheck{}, &spyCheck{name: "after", priority: 10, outcome: Continue(), calls: &calls})

	res := m.Run(context.Background(), &command.Invocation{}, testCommand(t, command.New("x").Description("x")))
	assert.Equal(t, KindFail, res.Outcome.Kind())
	assert.Equal(t, "boom", res.Check)
	assert.Empty(t, calls)
}

func TestManager_AddRemove(t *testing.T) {
	var calls []string
	m := NewManager(&spyCheck{name: "a", priority: 1, outcome: Continue(), calls: &calls})
	m.Add(&spyCheck{name: "b", priority: 5, outcome: Continue(), calls: &calls})
	m.Add(&spyCheck{name: "c", priority: 5, outcome: Continue(), calls: &calls})

	names := func() []string {
		var out []string
		for _, c := range m.Checks() {
			out = append(out, c.Name())
		}
		return out
	}
	assert.Equal(t, []string{"b", "c", "a"}, names())

	assert.True(t, m.Remove("b"))
	assert.False(t, m.Remove("missing"))
	assert.Equal(t, []string{"c", "a"}, names())
}

func TestDefaults_Order(t *testing.T) {
	m := Defaults(Options{Blacklist: &fakeBlacklist{}})

	var names []string
	for _, c := range m.Checks() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"blacklist", "guild-only", "cooldown", "permissions", "owner"}, names)
}

func TestDefaults_SharedBlacklistCheck(t *testing.T) {
	check := NewBlacklistCheck(&fakeBlacklist{}, time.Minute)
	m := Defaults(Options{BlacklistCheck: check, Blacklist: &fakeBlacklist{}})

	checks := m.Checks()
	require.Len(t, checks, 5)
	assert.Same(t, check, checks[0])

	assert.Len(t, Defaults(Options{}).Checks(), 4, "no blacklist without a check or source")
}

func TestGuildOnlyCheck(t *testing.T) {
	guildOnly := testCommand(t, command.New("purge").Description("Purge").GuildOnly())
	anywhere := testCommand(t, command.New("ping").Description("Ping"))
	dm := &command.Invocation{UserID: "u1"}
	guild := &command.Invocation{UserID: "u1", GuildID: "g1"}

	assert.Equal(t, KindHalt, GuildOnlyCheck{}.Check(context.Background(), dm, guildOnly).Kind())
	assert.True(t, GuildOnlyCheck{}.Check(context.Background(), guild, guildOnly).IsContinue())
	assert.True(t, GuildOnlyCheck{}.Check(context.Background(), dm, anywhere).IsContinue())
}

func TestPermissionCheck(t *testing.T) {
	cmd := testCommand(t, command.New("ban").Description("Ban").
		Permissions(discordgo.PermissionBanMembers|discordgo.PermissionKickMembers))

	tests := []struct {
		name  string
		inv   *command.Invocation
		allow bool
	}{
		{"direct message skips", &command.Invocation{Permissions: 0}, true},
		{"missing one", &command.Invocation{GuildID: "g", Permissions: discordgo.PermissionBanMembers}, false},
		{"has all", &command.Invocation{GuildID: "g", Permissions: discordgo.PermissionBanMembers | discordgo.PermissionKickMembers}, true},
		{"administrator", &command.Invocation{GuildID: "g", Permissions: discordgo.PermissionAdministrator}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := PermissionCheck{}.Check(context.Background(), tt.inv, cmd)
			assert.Equal(t, tt.allow, out.IsContinue())
			if !tt.allow {
				assert.Contains(t, out.Message(), "Kick Members")
				assert.NotContains(t, out.Message(), "Ban Members")
			}
		})
	}
}

func TestOwnerCheck(t *testing.T) {
	check := NewOwnerCheck([]string{"owner1"}, "dev-")
	flagged := testCommand(t, command.New("reload").Description("Reload").OwnerOnly())
	prefixed := testCommand(t, command.New("dev-refresh").Description("Refresh"))
	public := testCommand(t, command.New("ping").Description("Ping"))

	owner := &command.Invocation{UserID: "owner1"}
	stranger := &command.Invocation{UserID: "someone"}

	assert.True(t, check.Check(context.Background(), owner, flagged).IsContinue())
	assert.Equal(t, KindHalt, check.Check(context.Background(), stranger, flagged).Kind())
	assert.Equal(t, KindHalt, check.Check(context.Background(), stranger, prefixed).Kind())
	assert.True(t, check.Check(context.Background(), stranger, public).IsContinue())

	noPrefix := NewOwnerCheck([]string{"owner1"}, "")
	assert.False(t, noPrefix.IsOwnerOnly(prefixed))
}
