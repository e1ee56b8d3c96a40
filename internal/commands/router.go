// Package commands resolves /trip invocations and dispatches them to their
// handlers.
package commands

import (
	"context"
	"slices"
	"strings"
)

// Command is a routable /trip command
type Command struct {
	Kind Kind
	run  func(ctx context.Context, d *dispatch) error
}

// Name returns the command name as typed by users
func (c *Command) Name() string {
	return c.Kind.String()
}

// Router dispatches command names to their handlers
type Router struct {
	commands map[Kind]*Command
}

// NewRouter creates an empty command router
func NewRouter() *Router {
	return &Router{
		commands: make(map[Kind]*Command),
	}
}

// register adds a command to the router
func (r *Router) register(k Kind, run func(ctx context.Context, d *dispatch) error) {
	r.commands[k] = &Command{Kind: k, run: run}
}

// Lookup returns the command for an already lower-cased name, or nil if not
// found
func (r *Router) Lookup(name string) *Command {
	return r.commands[ParseKind(name)]
}

// Commands returns the registered commands in display order
func (r *Router) Commands() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		cmds = append(cmds, c)
	}
	slices.SortFunc(cmds, func(a, b *Command) int { return int(a.Kind - b.Kind) })
	return cmds
}

// ParseCommand extracts the command name and argument tokens from a message.
// A "@botname" suffix on the command is dropped. Returns empty string if not
// a command
func ParseCommand(text string) (name string, args []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	name = strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), fields[1:]
}
