// Package router dispatches inbound interactions to registered commands.
//
// Every command event is looked up, passed through the middleware pipeline and
// executed while a timer guards the platform's acknowledgment deadline: if the
// body has not answered in time the router defers on its behalf, and later
// content from the body lands as an edit. Failures never reach the caller
// verbatim.
package router

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/keshon/server-herald/internal/command"
	"github.com/keshon/server-herald/internal/middleware"
)

// EventType distinguishes command invocations from autocomplete requests.
type EventType int

const (
	EventCommand EventType = iota
	EventAutocomplete
)

// Event is one inbound interaction. The router consumes it exactly once.
type Event struct {
	Type       EventType
	Invocation *command.Invocation
	Responder  Responder
	ReceivedAt time.Time
}

// UsageRecorder counts command usage per day.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, command, subcommand string, day time.Time) error
}

const (
	DefaultAckTimeout     = 2 * time.Second
	DefaultExecTimeout    = 15 * time.Minute
	DefaultFailureMessage = "Something went wrong while running this command. Please try again later."
	maxChoices            = 25
	usageTimeout          = 5 * time.Second
	replyTimeout          = 5 * time.Second
)

// Config tunes a Router. Zero values fall back to the defaults above.
type Config struct {
	// AckTimeout is measured from Event.ReceivedAt and must stay below the
	// platform's 3 second limit.
	AckTimeout     time.Duration
	ExecTimeout    time.Duration
	FailureMessage string
	Usage          UsageRecorder
	Now            func() time.Time
}

// Router is safe for concurrent use; each Handle call is independent.
type Router struct {
	registry *command.Registry
	checks   *middleware.Manager
	cfg      Config

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(registry *command.Registry, checks *middleware.Manager, cfg Config) *Router {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = DefaultExecTimeout
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = DefaultFailureMessage
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if checks == nil {
		checks = middleware.NewManager()
	}
	return &Router{registry: registry, checks: checks, cfg: cfg}
}

// Handle processes ev and returns once the body finished or gave up. Events
// arriving after Shutdown are dropped.
func (r *Router) Handle(ctx context.Context, ev *Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Printf("[WARN] Router is shutting down, dropped /%s", ev.Invocation.Command)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = r.cfg.Now()
	}
	switch ev.Type {
	case EventAutocomplete:
		r.autocomplete(ctx, ev)
	default:
		r.dispatch(ctx, ev)
	}
}

// Shutdown stops accepting events and blocks until in-flight interactions
// and their usage writes are done.
func (r *Router) Shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

// replyContext outlives ctx so a caller still gets an answer when the body's
// context was canceled, for example during shutdown.
func replyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
}

func (r *Router) dispatch(ctx context.Context, ev *Event) {
	inv := ev.Invocation
	cmd, ok := r.registry.Get(inv.Command)
	if !ok {
		log.Printf("[WARN] Unknown command: %s", inv.Command)
		return
	}

	reply := newTracker(ev.Responder)
	inv.Reply = reply

	res := r.checks.Run(ctx, inv, cmd)
	switch res.Outcome.Kind() {
	case middleware.KindHalt:
		msg := res.Outcome.Message()
		if msg == "" {
			msg = "You can't use this command right now."
		}
		rctx, cancel := replyContext(ctx)
		defer cancel()
		if err := reply.Respond(rctx, &command.Response{Content: msg, Ephemeral: true}); err != nil {
			log.Printf("[WARN] Failed to send %s rejection for /%s: %v", res.Check, inv.Path(), err)
		}
		return
	case middleware.KindFail:
		rctx, cancel := replyContext(ctx)
		defer cancel()
		if err := reply.fail(rctx, r.cfg.FailureMessage); err != nil {
			log.Printf("[WARN] Failed to report middleware failure for /%s: %v", inv.Path(), err)
		}
		return
	}

	r.recordUsage(inv)
	r.execute(ctx, ev, cmd, reply)
}

func (r *Router) execute(ctx context.Context, ev *Event, cmd *command.Command, reply *tracker) {
	inv := ev.Invocation
	fail := func() error {
		rctx, cancel := replyContext(ctx)
		defer cancel()
		return reply.fail(rctx, r.cfg.FailureMessage)
	}

	h := cmd.Handler(inv.Group, inv.Subcommand)
	if h == nil {
		log.Printf("[ERR] No body bound to /%s", inv.Path())
		if err := fail(); err != nil {
			log.Printf("[WARN] Failed to report missing body for /%s: %v", inv.Path(), err)
		}
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.ExecTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runBody(runCtx, h, inv) }()

	wait := r.cfg.AckTimeout - r.cfg.Now().Sub(ev.ReceivedAt)
	if wait < 0 {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-reply.acked:
		timer.Stop()
		err = await(runCtx, done)
	case <-timer.C:
		rctx, rcancel := replyContext(ctx)
		if derr := reply.Acknowledge(rctx); derr != nil {
			log.Printf("[ERR] Failed to defer /%s before the deadline: %v", inv.Path(), derr)
		}
		rcancel()
		err = await(runCtx, done)
	}

	if err != nil {
		log.Printf("[ERR] Command /%s failed (user %s, guild %s): %v", inv.Path(), inv.UserID, inv.GuildID, err)
		if ferr := fail(); ferr != nil {
			log.Printf("[WARN] Failed to report failure of /%s: %v", inv.Path(), ferr)
		}
		return
	}
	if reply.current() == statePending {
		log.Printf("[WARN] Command /%s returned without answering", inv.Path())
		if ferr := fail(); ferr != nil {
			log.Printf("[WARN] Failed to answer /%s: %v", inv.Path(), ferr)
		}
	}
}

func await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("command did not finish: %w", ctx.Err())
	}
}

func runBody(ctx context.Context, h command.Handler, inv *command.Invocation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
		}
	}()
	return h(ctx, inv)
}

// autocomplete always answers; failures become an empty list so the client
// shows no error.
func (r *Router) autocomplete(ctx context.Context, ev *Event) {
	inv := ev.Invocation
	choices := []command.Choice{}

	cmd, ok := r.registry.Get(inv.Command)
	switch {
	case !ok || cmd.Autocomplete == nil:
		log.Printf("[WARN] No autocomplete bound to /%s", inv.Command)
	default:
		got, err := runAutocomplete(ctx, cmd.Autocomplete, inv)
		if err != nil {
			log.Printf("[WARN] Autocomplete for /%s (%s) failed: %v", inv.Path(), inv.Focused, err)
			break
		}
		if got != nil {
			choices = got
		}
	}
	if len(choices) > maxChoices {
		choices = choices[:maxChoices]
	}

	rctx, cancel := replyContext(ctx)
	defer cancel()
	if err := ev.Responder.Autocomplete(rctx, choices); err != nil {
		log.Printf("[WARN] Failed to send autocomplete for /%s: %v", inv.Path(), err)
	}
}

func runAutocomplete(ctx context.Context, h command.AutocompleteHandler, inv *command.Invocation) (choices []command.Choice, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h(ctx, inv)
}

// recordUsage writes in the background; failures are logged and dropped.
func (r *Router) recordUsage(inv *command.Invocation) {
	if r.cfg.Usage == nil {
		return
	}
	name, sub, day := inv.Command, subcommandKey(inv), r.cfg.Now()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[WARN] Usage recorder panicked for /%s: %v", name, rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), usageTimeout)
		defer cancel()
		if err := r.cfg.Usage.RecordUsage(ctx, name, sub, day); err != nil {
			log.Printf("[WARN] Failed to record usage of /%s: %v", name, err)
		}
	}()
}

func subcommandKey(inv *command.Invocation) string {
	if inv.Group != "" {
		return inv.Group + " " + inv.Subcommand
	}
	return inv.Subcommand
}
