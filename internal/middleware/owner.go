package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/keshon/server-herald/internal/command"
)

// OwnerCheck restricts owner-only commands to a fixed allow-list. A command is
// owner-only when flagged so, or when its name carries prefix.
type OwnerCheck struct {
	owners []string
	prefix string
}

func NewOwnerCheck(owners []string, prefix string) *OwnerCheck {
	return &OwnerCheck{owners: slices.Clone(owners), prefix: prefix}
}

func (c *OwnerCheck) Name() string  { return "owner" }
func (c *OwnerCheck) Priority() int { return 100 }

// IsOwnerOnly reports whether cmd is restricted to owners.
func (c *OwnerCheck) IsOwnerOnly(cmd *command.Command) bool {
	if cmd.Definition.OwnerOnly {
		return true
	}
	return c.prefix != "" && strings.HasPrefix(cmd.Name(), c.prefix)
}

func (c *OwnerCheck) IsOwner(userID string) bool {
	return slices.Contains(c.owners, userID)
}

// Allows reports whether userID may run cmd.
func (c *OwnerCheck) Allows(userID string, cmd *command.Command) bool {
	return !c.IsOwnerOnly(cmd) || c.IsOwner(userID)
}

func (c *OwnerCheck) Check(_ context.Context, inv *command.Invocation, cmd *command.Command) Outcome {
	if c.Allows(inv.UserID, cmd) {
		return Continue()
	}
	return Halt("This command is restricted to the bot owners.")
}
