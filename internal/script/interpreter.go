package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// Directives recognized on comment lines. Anything else after a `#` is a
// plain comment.
const (
	directiveDisableLogging = "disable-logging"
	directiveEnableLogging  = "enable-logging"
	directiveInclude        = "include"
)

// Interpreter executes one script file against a server channel.
//
// An instance lives for exactly one file. Includes spawn a fresh
// interpreter sharing the same Context, so transient per-file state
// (loading mode, a pending continuation) never leaks across files.
type Interpreter struct {
	context *Context
	channel *Channel

	loading bool
	pending string
	command string
	format  Format
}

// New creates an interpreter bound to a run context and a server channel.
func New(ctx *Context, ch *Channel) *Interpreter {
	return &Interpreter{context: ctx, channel: ch, format: FormatJSON}
}

// Execute runs the script at path and returns the context's result log.
//
// A missing script fails with fs.ErrNotExist before the execution scope is
// entered. Per-line failures are always recorded as error entries; inside
// an include they abort the rest of the included file only, while at the
// top level the next line runs. An abort from the omit policy unwinds all
// nested frames and is absorbed by the top-level call.
func (in *Interpreter) Execute(path string) (*ResultLog, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return in.context.Log(), fmt.Errorf("script %s: %w", path, fs.ErrNotExist)
		}
		return in.context.Log(), err
	}

	in.context.enter()
	defer in.context.leave()

	file, err := os.Open(path)
	if err != nil {
		return in.context.Log(), err
	}
	defer file.Close()

	in.context.Logger().Debug("executing script", "path", path, "depth", in.context.Depth())

	err = in.run(file, path)
	if errors.Is(err, ErrAborted) && in.context.TopLevel() {
		// The abort token is established by the top-level run; the
		// unwind stops here and the caller sees an omitted result.
		err = nil
	}
	return in.context.Log(), err
}

func (in *Interpreter) run(r io.Reader, path string) error {
	scanner := bufio.NewScanner(r)
	// Load payload lines can be far longer than the default token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		if err := in.processLine(scanner.Text()); err != nil {
			if errors.Is(err, ErrAborted) {
				return err
			}
			in.context.LogError(fmt.Appendf(nil, "%s:%d: %s\n", path, lineno, err))
			if in.context.Aborted() {
				return ErrAborted
			}
			if !in.context.TopLevel() {
				// Abort the rest of the included file; the including
				// script resumes after its include line.
				return err
			}
		}
	}
	return scanner.Err()
}

func (in *Interpreter) processLine(line string) error {
	if in.loading {
		return in.feedLoadPayload(line)
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "#") {
		return in.executeDirective(trimmed)
	}
	if strings.HasSuffix(line, "\\") {
		in.pending += strings.TrimSuffix(line, "\\")
		return nil
	}
	if in.pending != "" {
		command := in.pending + line
		in.pending = ""
		return in.executeCommand(command)
	}
	return in.executeCommand(line)
}

// feedLoadPayload forwards one payload line verbatim. Loading ends only
// when a line ending in "]" yields a non-empty drain; a closing bracket
// inside the payload drains nothing and streaming continues.
func (in *Interpreter) feedLoadPayload(line string) error {
	in.context.LogInput([]byte(line + "\n"))
	if err := in.channel.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("send load payload: %w", err)
	}
	if strings.HasSuffix(line, "]") {
		if response := in.channel.Drain(); len(response) > 0 {
			in.loading = false
			in.context.LogOutput(response, in.command, in.format)
		}
	}
	return nil
}

func (in *Interpreter) executeDirective(line string) error {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	switch {
	case body == directiveDisableLogging:
		in.context.DisableLogging()
	case body == directiveEnableLogging:
		in.context.EnableLogging()
	case body == directiveInclude || strings.HasPrefix(body, directiveInclude+" "):
		target := strings.TrimSpace(strings.TrimPrefix(body, directiveInclude))
		return in.executeInclude(target)
	}
	return nil
}

// executeInclude runs another script through a fresh interpreter sharing
// this context. An empty target is a no-op.
func (in *Interpreter) executeInclude(target string) error {
	if target == "" {
		return nil
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(in.context.BaseDir(), target)
	}
	sub := New(in.context, in.channel)
	_, err := sub.Execute(target)
	return err
}

func (in *Interpreter) executeCommand(line string) error {
	words, err := shell.Fields(line, nil)
	if err != nil {
		return fmt.Errorf("tokenize command: %w", err)
	}
	if len(words) == 0 {
		return nil
	}
	in.command = words[0]
	in.format = detectFormat(words)

	in.context.LogInput([]byte(line + "\n"))
	if err := in.channel.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	if in.command == "load" {
		in.loading = true
		return nil
	}
	if response := in.channel.Drain(); len(response) > 0 {
		in.context.LogOutput(response, in.command, in.format)
	}
	return nil
}

// detectFormat decides the declared response format for a command line.
// dump always speaks groonga-command; everything else defaults to json
// unless an --output_format flag overrides it. The flag value may be
// inlined with `=` or given as the following word.
func detectFormat(words []string) Format {
	if words[0] == "dump" {
		return FormatGroongaCommand
	}
	format := FormatJSON
	for i := 1; i < len(words); i++ {
		switch {
		case words[i] == "--output_format":
			if i+1 < len(words) {
				format = ParseFormat(words[i+1])
				i++
			}
		case strings.HasPrefix(words[i], "--output_format="):
			format = ParseFormat(strings.TrimPrefix(words[i], "--output_format="))
		}
	}
	return format
}
