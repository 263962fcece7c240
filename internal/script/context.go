package script

import (
	"errors"
	"io"
	"log/slog"
)

// OnError selects how the context reacts when an error entry is recorded.
type OnError int

const (
	// OnErrorDefault records the error and lets the per-line propagation
	// rules apply unchanged.
	OnErrorDefault OnError = iota
	// OnErrorOmit marks the run omitted and aborts it on the first error.
	OnErrorOmit
)

// ErrAborted unwinds all nested interpreters back to the top-level Execute
// call, which absorbs it. It is returned as is, never wrapped by the
// per-line error handler, so it bypasses the per-line catch.
var ErrAborted = errors.New("script run aborted")

// Context carries the per-run state shared by every interpreter of one
// top-level execution: nesting depth, the logging switch, the base
// directory for relative includes, the result log, and the omission
// policy.
//
// A Context is created once per top-level run and shared by reference with
// each interpreter spawned for an include. A run is single-threaded, so
// none of this is guarded by locks.
type Context struct {
	depth   int
	logging bool
	baseDir string
	log     *ResultLog
	onError OnError
	omitted bool
	aborted bool
	logger  *slog.Logger
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithOnError sets the on-error policy.
func WithOnError(p OnError) ContextOption {
	return func(c *Context) { c.onError = p }
}

// WithLogger sets the diagnostic logger. The default discards everything,
// which is what tests want.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContext creates a context rooted at baseDir with logging enabled.
func NewContext(baseDir string, opts ...ContextOption) *Context {
	c := &Context{
		logging: true,
		baseDir: baseDir,
		log:     &ResultLog{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// enter and leave maintain the nesting depth. Every Execute pairs them
// through defer so the depth is restored on all exit paths, including an
// unwind from a propagated error or an abort.
func (c *Context) enter() { c.depth++ }
func (c *Context) leave() { c.depth-- }

// TopLevel reports whether the innermost active Execute is the outermost
// one. Computed from the live depth, never cached: includes change it.
func (c *Context) TopLevel() bool { return c.depth == 1 }

// Depth returns the current nesting depth.
func (c *Context) Depth() int { return c.depth }

// BaseDir returns the directory relative include targets resolve against.
func (c *Context) BaseDir() string { return c.baseDir }

// Log returns the result log owned by this context.
func (c *Context) Log() *ResultLog { return c.log }

// Logger returns the diagnostic logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// EnableLogging turns result recording back on. The switch is shared
// across nested includes; an include that disables logging leaves it
// disabled for the rest of the run unless re-enabled.
func (c *Context) EnableLogging() { c.logging = true }

// DisableLogging turns result recording off.
func (c *Context) DisableLogging() { c.logging = false }

// LoggingEnabled reports whether input/output entries are being recorded.
func (c *Context) LoggingEnabled() bool { return c.logging }

// LogInput records a command line sent to the server. Dropped when logging
// is disabled or the content is empty.
func (c *Context) LogInput(content []byte) {
	if !c.logging || len(content) == 0 {
		return
	}
	c.log.append(Entry{Tag: TagInput, Content: content})
}

// LogOutput records a server response together with the command and format
// that produced it.
func (c *Context) LogOutput(content []byte, command string, format Format) {
	if !c.logging || len(content) == 0 {
		return
	}
	c.log.append(Entry{Tag: TagOutput, Content: content, Command: command, Format: format})
}

// LogError records a failure. Error entries bypass the logging switch so a
// disabled-logging section still shows what went wrong. Under the omit
// policy the run is marked omitted and the abort flag is armed.
func (c *Context) LogError(content []byte) {
	if len(content) > 0 {
		c.log.append(Entry{Tag: TagError, Content: content})
	}
	if c.onError == OnErrorOmit {
		c.omit()
	}
}

func (c *Context) omit() {
	c.omitted = true
	c.aborted = true
}

// Abort arms the abort flag directly. The next per-line checkpoint unwinds
// to the top level.
func (c *Context) Abort() { c.aborted = true }

// Aborted reports whether the run should unwind to the top level.
func (c *Context) Aborted() bool { return c.aborted }

// Omitted reports whether the run ended by omission rather than pass/fail.
func (c *Context) Omitted() bool { return c.omitted }
