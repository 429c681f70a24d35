// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is matched and
// dispatched (chat prefix, mention, CLI) is defined by adapters that wrap this.
package cmd

import "context"

// Invocation carries what any command runner can pass: positional arguments
// and an opaque payload. Adapters set Data to their own context (for chat
// commands, the originating message).
type Invocation struct {
	Name string
	Args []string
	Data any
}

// Command is the universal contract: identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under more than one name.
type Aliased interface {
	Aliases() []string
}

// Usage is implemented by commands that document their arguments.
type Usage interface {
	Usage() string
}

// Func adapts a plain function into a Command.
type Func struct {
	CmdName string
	Desc    string
	Alias   []string
	Fn      func(ctx context.Context, inv *Invocation) error
}

func (f *Func) Name() string        { return f.CmdName }
func (f *Func) Description() string { return f.Desc }
func (f *Func) Aliases() []string   { return f.Alias }

func (f *Func) Run(ctx context.Context, inv *Invocation) error {
	return f.Fn(ctx, inv)
}
