// Package commandsync reconciles the commands registered on Discord with the
// local registry.
//
// A run visits the global scope and then every guild scope. Each scope is
// either desired (it should hold the full local set) or undesired (it should
// be empty). Desired scopes are replaced in bulk only when their content
// differs; undesired ones are cleared only when non-empty. A second run with
// unchanged inputs therefore issues no mutations.
package commandsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Scope is Global when GuildID is empty.
type Scope struct {
	GuildID string
}

func Global() Scope { return Scope{} }

func Guild(id string) Scope { return Scope{GuildID: id} }

func (s Scope) IsGlobal() bool { return s.GuildID == "" }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "guild " + s.GuildID
}

// Remote is the platform's command registry.
type Remote interface {
	ListCommands(ctx context.Context, scope Scope) ([]*discordgo.ApplicationCommand, error)
	ReplaceCommands(ctx context.Context, scope Scope, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
}

// Limiter paces remote calls. *ratelimit.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// ErrConflictingPlan is returned for a plan that wants both scopes.
var ErrConflictingPlan = errors.New("commands cannot be registered globally and per guild at the same time")

// Plan is the desired scope assignment for one run. The zero Plan registers
// the commands in every known guild.
type Plan struct {
	Global bool
	Guilds []string
}

func (p Plan) Validate() error {
	if p.Global && len(p.Guilds) > 0 {
		return ErrConflictingPlan
	}
	return nil
}

func (p Plan) wantsGuild(id string) bool {
	if len(p.Guilds) == 0 {
		return !p.Global
	}
	for _, g := range p.Guilds {
		if g == id {
			return true
		}
	}
	return false
}

// SyncError reports the remote call that aborted a run.
type SyncError struct {
	Scope Scope
	Op    string
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %s: %v", e.Scope, e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Action is what a run did to one scope.
type Action string

const (
	ActionUnchanged Action = "unchanged"
	ActionReplaced  Action = "replaced"
	ActionCleared   Action = "cleared"
)

type ScopeReport struct {
	Scope   Scope
	Action  Action
	Added   []string
	Removed []string
	Changed []string
}

// Report summarizes a run. It is returned even when the run aborts.
type Report struct {
	Scopes []ScopeReport
}

// Mutations counts the replace and clear calls issued.
func (r *Report) Mutations() int {
	n := 0
	for _, s := range r.Scopes {
		if s.Action != ActionUnchanged {
			n++
		}
	}
	return n
}

func (r *Report) String() string {
	var parts []string
	for _, s := range r.Scopes {
		if s.Action != ActionUnchanged {
			parts = append(parts, fmt.Sprintf("%s %s", s.Scope, s.Action))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d scope(s) already up to date", len(r.Scopes))
	}
	return strings.Join(parts, ", ")
}

// Synchronizer is not safe for overlapping runs against the same remote;
// callers serialize Sync (the bot does it through a named job).
type Synchronizer struct {
	remote  Remote
	limiter Limiter
	local   func() []*discordgo.ApplicationCommand
}

// New returns a synchronizer pushing the commands produced by local. A nil
// limiter disables pacing.
func New(remote Remote, limiter Limiter, local func() []*discordgo.ApplicationCommand) *Synchronizer {
	return &Synchronizer{remote: remote, limiter: limiter, local: local}
}

// Sync makes every scope match plan. known lists the guilds the bot is in;
// guilds named by the plan are visited even when missing from it.
func (s *Synchronizer) Sync(ctx context.Context, plan Plan, known []string) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	local := s.local()
	report := &Report{}

	if err := s.syncScope(ctx, Global(), plan.Global, local, report); err != nil {
		return report, err
	}
	for _, id := range guildSet(known, plan.Guilds) {
		if err := s.syncScope(ctx, Guild(id), plan.wantsGuild(id), local, report); err != nil {
			return report, err
		}
	}

	log.Printf("[DONE] Command sync finished: %s", report)
	return report, nil
}

func (s *Synchronizer) syncScope(ctx context.Context, scope Scope, desired bool, local []*discordgo.ApplicationCommand, report *Report) error {
	if err := s.wait(ctx); err != nil {
		return &SyncError{Scope: scope, Op: "wait", Err: err}
	}
	remote, err := s.remote.ListCommands(ctx, scope)
	if err != nil {
		return &SyncError{Scope: scope, Op: "list", Err: err}
	}

	res := ScopeReport{Scope: scope, Action: ActionUnchanged}
	if !desired {
		if len(remote) == 0 {
			report.Scopes = append(report.Scopes, res)
			return nil
		}
		log.Printf("[INFO] [%s] Clearing %d command(s): %s", scope, len(remote), strings.Join(names(remote), ", "))
		if err := s.replace(ctx, scope, []*discordgo.ApplicationCommand{}); err != nil {
			return &SyncError{Scope: scope, Op: "clear", Err: err}
		}
		res.Action = ActionCleared
		res.Removed = names(remote)
		report.Scopes = append(report.Scopes, res)
		return nil
	}

	d := diffCommands(scope, remote, local)
	if d.empty() {
		log.Printf("[DEBUG] [%s] %d command(s) up to date", scope, len(local))
		report.Scopes = append(report.Scopes, res)
		return nil
	}
	logDiff(scope, d)
	if err := s.replace(ctx, scope, local); err != nil {
		return &SyncError{Scope: scope, Op: "replace", Err: err}
	}
	res.Action = ActionReplaced
	res.Added, res.Removed, res.Changed = d.Added, d.Removed, d.Changed
	report.Scopes = append(report.Scopes, res)
	return nil
}

func (s *Synchronizer) replace(ctx context.Context, scope Scope, cmds []*discordgo.ApplicationCommand) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.remote.ReplaceCommands(ctx, scope, cmds)
	return err
}

func (s *Synchronizer) wait(ctx context.Context) error {
	if s.limiter == nil {
		return ctx.Err()
	}
	return s.limiter.Wait(ctx)
}

func logDiff(scope Scope, d diff) {
	if len(d.Added) > 0 {
		log.Printf("[INFO] [%s] New command(s): %s", scope, strings.Join(d.Added, ", "))
	}
	if len(d.Removed) > 0 {
		log.Printf("[INFO] [%s] Obsolete command(s): %s", scope, strings.Join(d.Removed, ", "))
	}
	if len(d.Changed) > 0 {
		log.Printf("[INFO] [%s] Changed command(s): %s", scope, strings.Join(d.Changed, ", "))
	}
}

func guildSet(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
