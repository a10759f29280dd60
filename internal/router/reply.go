package router

import (
	"context"
	"errors"
	"sync"

	"github.com/keshon/server-herald/internal/command"
)

var (
	// ErrNotAcknowledged is returned by Edit and FollowUp before the first answer.
	ErrNotAcknowledged = errors.New("interaction not acknowledged yet")
	// ErrAlreadyReplied is returned by Respond after a full first answer.
	ErrAlreadyReplied = errors.New("interaction already replied")
)

// Responder is the transport side of an interaction.
type Responder interface {
	Defer(ctx context.Context) error
	Respond(ctx context.Context, r *command.Response) error
	Edit(ctx context.Context, r *command.Response) error
	FollowUp(ctx context.Context, r *command.Response) error
	Autocomplete(ctx context.Context, choices []command.Choice) error
}

type ackState int

const (
	statePending ackState = iota
	stateDeferred
	stateReplied
)

// tracker is the command.Reply handed to bodies. It serializes the first
// answer so exactly one of Defer/Respond reaches the transport.
type tracker struct {
	mu    sync.Mutex
	state ackState
	out   Responder
	acked chan struct{}
}

var _ command.Reply = (*tracker)(nil)

func newTracker(out Responder) *tracker {
	return &tracker{out: out, acked: make(chan struct{})}
}

func (t *tracker) markLocked(s ackState) {
	if t.state == statePending {
		close(t.acked)
	}
	t.state = s
}

// Acknowledge defers the interaction. Once anything answered, it is a no-op.
func (t *tracker) Acknowledge(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != statePending {
		return nil
	}
	if err := t.out.Defer(ctx); err != nil {
		return err
	}
	t.markLocked(stateDeferred)
	return nil
}

// Respond sends the first answer. After a deferral it edits the placeholder.
func (t *tracker) Respond(ctx context.Context, r *command.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case stateDeferred:
		if err := t.out.Edit(ctx, r); err != nil {
			return err
		}
	case stateReplied:
		return ErrAlreadyReplied
	default:
		if err := t.out.Respond(ctx, r); err != nil {
			return err
		}
	}
	t.markLocked(stateReplied)
	return nil
}

func (t *tracker) Edit(ctx context.Context, r *command.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == statePending {
		return ErrNotAcknowledged
	}
	if err := t.out.Edit(ctx, r); err != nil {
		return err
	}
	t.state = stateReplied
	return nil
}

func (t *tracker) FollowUp(ctx context.Context, r *command.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == statePending {
		return ErrNotAcknowledged
	}
	return t.out.FollowUp(ctx, r)
}

func (t *tracker) Acknowledged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != statePending
}

func (t *tracker) current() ackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// fail answers with msg using whatever the current state still allows.
func (t *tracker) fail(ctx context.Context, msg string) error {
	r := &command.Response{Content: msg, Ephemeral: true}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case statePending:
		if err := t.out.Respond(ctx, r); err != nil {
			return err
		}
		t.markLocked(stateReplied)
		return nil
	case stateDeferred:
		if err := t.out.Edit(ctx, r); err != nil {
			return err
		}
		t.state = stateReplied
		return nil
	default:
		return t.out.FollowUp(ctx, r)
	}
}
