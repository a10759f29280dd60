package command

import (
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// DefaultRegistry is filled by command packages from init() before the bot starts.
var DefaultRegistry = NewRegistry()

// Registry stores commands by name. Lookups are safe while the router runs.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds c. A name already present is a *ValidationError.
func (r *Registry) Register(c *Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[c.Name()]; exists {
		return &ValidationError{Command: c.Name(), Reason: "already registered"}
	}
	r.commands[c.Name()] = c
	return nil
}

// MustRegister is Register for init(); a malformed command set blocks startup.
func (r *Registry) MustRegister(c *Command) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Get returns the command with the given name.
func (r *Registry) Get(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// All returns all registered commands, sorted by name.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	list := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Names returns the sorted command names.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name()
	}
	return names
}

// ApplicationCommands serializes the whole registry for bulk registration.
func (r *Registry) ApplicationCommands() []*discordgo.ApplicationCommand {
	all := r.All()
	defs := make([]*discordgo.ApplicationCommand, 0, len(all))
	for _, c := range all {
		defs = append(defs, c.Definition.ApplicationCommand())
	}
	return defs
}
