package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaomoneus/cppl/internal/ctxlog"
)

// Command accumulates one child invocation's argv. Builder methods chain
// and respect the current condition flag, so optional argument groups read
// linearly at the call site.
type Command struct {
	exe  string
	args []string
	cond bool
}

// New starts an argv for the given executable.
func New(exe string) *Command {
	return &Command{exe: exe, cond: true}
}

// Exe returns the executable path.
func (c *Command) Exe() string { return c.exe }

// Arg appends a single argument.
func (c *Command) Arg(arg string) *Command {
	if c.cond {
		c.args = append(c.args, arg)
	}
	return c
}

// Args appends every argument in the slice.
func (c *Command) Args(args []string) *Command {
	if c.cond {
		c.args = append(c.args, args...)
	}
	return c
}

// KVEq appends a key=value pair as one argument.
func (c *Command) KVEq(key, value string) *Command {
	if c.cond {
		c.args = append(c.args, key+"="+value)
	}
	return c
}

// KVEqIfNotEmpty appends key=value only when value is non-empty.
func (c *Command) KVEqIfNotEmpty(key, value string) *Command {
	if c.cond && value != "" {
		c.KVEq(key, value)
	}
	return c
}

// KVsEq appends one key=value argument per value.
func (c *Command) KVsEq(key string, values []string) *Command {
	if c.cond {
		for _, v := range values {
			c.KVEq(key, v)
		}
	}
	return c
}

// KVSpace appends the key and the value as two separate arguments.
func (c *Command) KVSpace(key, value string) *Command {
	if c.cond {
		c.args = append(c.args, key, value)
	}
	return c
}

// Condition disables all following builder calls until ConditionElse or
// ConditionEnd when v is false.
func (c *Command) Condition(v bool) *Command {
	c.cond = v
	return c
}

// ConditionElse flips the current condition.
func (c *Command) ConditionElse() *Command {
	c.cond = !c.cond
	return c
}

// ConditionEnd re-enables the builder unconditionally.
func (c *Command) ConditionEnd() *Command {
	c.cond = true
	return c
}

// Argv returns the full argv including the executable, quotes preserved.
func (c *Command) Argv() []string {
	return append([]string{c.exe}, c.args...)
}

// execArgs returns the arguments in the form handed to the exec primitive:
// quotes bounding a whole argument are stripped, and so are quotes around
// the value of a key=value argument.
func (c *Command) execArgs() []string {
	stripped := make([]string, len(c.args))
	for i, a := range c.args {
		s := StripQuotes(a)
		if s == a {
			if eq := strings.IndexByte(a, '='); eq >= 0 {
				s = a[:eq+1] + StripQuotes(a[eq+1:])
			}
		}
		stripped[i] = s
	}
	return stripped
}

// String renders the command the way it would be typed in a shell.
func (c *Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Execute runs the command through the runner. In dry-run mode the command
// is printed and reported successful without executing. A non-zero exit is
// an error carrying the child's stderr; stderr with exit zero is returned
// as a warning.
func (c *Command) Execute(ctx context.Context, r Runner, dryRun bool) (warning string, err error) {
	logger := ctxlog.FromContext(ctx)

	if dryRun {
		logger.Info(c.String())
		return "", nil
	}
	logger.Debug("executing child", "command", c.String())

	res, runErr := r.Run(ctx, c.exe, c.execArgs())
	if runErr != nil {
		return "", fmt.Errorf("failed to run %s: %w", c.exe, runErr)
	}

	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = "(no diagnostics)"
		}
		return "", fmt.Errorf("%s exited with code %d: %s", c.exe, res.ExitCode, msg)
	}

	return strings.TrimSpace(res.Stderr), nil
}
