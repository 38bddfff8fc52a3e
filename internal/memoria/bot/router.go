// Package bot wires the Matrix room to the archive: it records every
// incoming message through the sync writer and answers the $-prefixed
// commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Command is a parsed room command.
type Command struct {
	Name string
	Args []string
}

// ErrNotACommand is returned by Parse when the message does not start with
// the command prefix. Callers use errors.Is to tell this expected case
// apart from real errors.
var ErrNotACommand = errors.New("not a command (missing prefix)")

// Handler answers one command, returning the notice text to post. An empty
// string means the handler already sent its own reply.
type Handler func(ctx context.Context, cmd *Command) (string, error)

// Router routes commands to handlers.
type Router struct {
	prefix   string
	handlers map[string]Handler
}

// NewRouter creates a router for commands starting with prefix.
func NewRouter(prefix string) *Router {
	return &Router{
		prefix:   prefix,
		handlers: make(map[string]Handler),
	}
}

// Register registers a handler under a command name.
func (r *Router) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Parse splits a room message into a command name and arguments.
func (r *Router) Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, r.prefix) {
		return nil, ErrNotACommand
	}

	parts := strings.Fields(strings.TrimPrefix(text, r.prefix))
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return &Command{Name: parts[0], Args: parts[1:]}, nil
}

// Route parses text and invokes the matching handler.
func (r *Router) Route(ctx context.Context, text string) (string, error) {
	cmd, err := r.Parse(text)
	if err != nil {
		return "", err
	}
	handler, ok := r.handlers[cmd.Name]
	if !ok {
		return fmt.Sprintf("Unknown command %s%s", r.prefix, cmd.Name), nil
	}
	return handler(ctx, cmd)
}
