package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/commandsync"
)

// Remote is the Discord application command registry seen through a session.
type Remote struct {
	dg *discordgo.Session

	mu    sync.Mutex
	appID string
}

var _ commandsync.Remote = (*Remote)(nil)

func NewRemote(dg *discordgo.Session) *Remote {
	return &Remote{dg: dg}
}

func (r *Remote) ListCommands(ctx context.Context, scope commandsync.Scope) ([]*discordgo.ApplicationCommand, error) {
	appID, err := r.applicationID(ctx)
	if err != nil {
		return nil, err
	}
	cmds, err := r.dg.ApplicationCommands(appID, scope.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapREST(err)
	}
	return cmds, nil
}

// ReplaceCommands overwrites the scope in one call; an empty slice clears it.
func (r *Remote) ReplaceCommands(ctx context.Context, scope commandsync.Scope, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	appID, err := r.applicationID(ctx)
	if err != nil {
		return nil, err
	}
	if cmds == nil {
		cmds = []*discordgo.ApplicationCommand{}
	}
	out, err := r.dg.ApplicationCommandBulkOverwrite(appID, scope.GuildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapREST(err)
	}
	return out, nil
}

// applicationID returns the bot's application ID, fetching it from Discord
// if State has no user yet.
func (r *Remote) applicationID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appID != "" {
		return r.appID, nil
	}
	if r.dg.State != nil && r.dg.State.User != nil && r.dg.State.User.ID != "" {
		r.appID = r.dg.State.User.ID
		return r.appID, nil
	}
	u, err := r.dg.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", wrapREST(err))
	}
	r.appID = u.ID
	return r.appID, nil
}

// apiError exposes the HTTP status of a discordgo REST failure.
type apiError struct {
	rest *discordgo.RESTError
}

func (e *apiError) Error() string { return e.rest.Error() }
func (e *apiError) Unwrap() error { return e.rest }

func (e *apiError) StatusCode() int {
	if e.rest.Response == nil {
		return 0
	}
	return e.rest.Response.StatusCode
}

func wrapREST(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		return &apiError{rest: rest}
	}
	return err
}
