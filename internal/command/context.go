package command

import (
	"github.com/iotku/subdonic/internal/session"
	"github.com/iotku/subdonic/pkg/cmd"
)

// Context is the payload of every chat command invocation.
type Context struct {
	Message Message
	Session *session.Session // nil outside guilds and before the first session command
}

func contextOf(inv *cmd.Invocation) *Context {
	c, _ := inv.Data.(*Context)
	return c
}
