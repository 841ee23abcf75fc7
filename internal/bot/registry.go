// Package bot maps chat commands onto the D-day registry.
//
// Commands are declared in a platform-independent table; the Discord adapter
// in discord.go translates between that table and the Discord API.
package bot

import (
	"context"
	"fmt"
	"sort"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

// Option declares a string parameter of a command
type Option struct {
	Name        string
	Description string
	Required    bool
}

// Handler answers one invocation
type Handler func(ctx context.Context, inv Invocation) Response

// Command is one entry of the command table
type Command struct {
	Name        string
	Description string
	Options     []Option
	Handler     Handler
}

// Invocation is a single command call with its string options
type Invocation struct {
	ID      string
	Command string
	GuildID string
	UserID  string
	Options map[string]string
}

// Listing is the structured body of a list response
type Listing struct {
	Title   string
	Entries []app.Countdown
}

// Response is what a command sends back. Private responses are visible to the caller only.
type Response struct {
	Content string
	Listing *Listing
	Private bool
}

// Registry holds the command table
type Registry struct {
	commands map[string]Command
}

// NewRegistry builds a registry, rejecting duplicate names
func NewRegistry(commands ...Command) (*Registry, error) {
	r := &Registry{commands: make(map[string]Command, len(commands))}
	for _, c := range commands {
		if _, dup := r.commands[c.Name]; dup {
			return nil, fmt.Errorf("duplicate command %q", c.Name)
		}
		if c.Handler == nil {
			return nil, fmt.Errorf("command %q has no handler", c.Name)
		}
		r.commands[c.Name] = c
	}
	return r, nil
}

// Commands returns the table ordered by name
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch validates inv against the command's declared options and runs its handler
func (r *Registry) Dispatch(ctx context.Context, inv Invocation) Response {
	cmd, ok := r.commands[inv.Command]
	if !ok {
		return private(fmt.Sprintf("❌ Unknown command `%s`.", inv.Command))
	}
	if err := validateOptions(cmd, inv.Options); err != nil {
		return private("❌ " + err.Error())
	}
	return cmd.Handler(ctx, inv)
}

func validateOptions(cmd Command, given map[string]string) error {
	declared := make(map[string]bool, len(cmd.Options))
	for _, o := range cmd.Options {
		declared[o.Name] = true
		if _, ok := given[o.Name]; o.Required && !ok {
			return fmt.Errorf("missing required option `%s`", o.Name)
		}
	}
	for name := range given {
		if !declared[name] {
			return fmt.Errorf("unknown option `%s`", name)
		}
	}
	return nil
}

func private(content string) Response {
	return Response{Content: content, Private: true}
}

func public(content string) Response {
	return Response{Content: content}
}
