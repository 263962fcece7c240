// Package report turns a run's result log into a comparable string and
// checks it against the recorded expectation file.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/groonga-club/grntest/internal/script"
)

// Outcome classifies one script run.
type Outcome int

const (
	// OutcomePassed means the actual output matched the expectation.
	OutcomePassed Outcome = iota
	// OutcomeFailed means the output differed; a .reject file was written.
	OutcomeFailed
	// OutcomeNotChecked means no expectation exists; a .actual file was
	// written to seed one.
	OutcomeNotChecked
	// OutcomeOmitted means the script stopped itself early via the omit
	// policy. Neither artifact is written.
	OutcomeOmitted
)

// String returns the display name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	case OutcomeNotChecked:
		return "not checked"
	case OutcomeOmitted:
		return "omitted"
	default:
		return "unknown"
	}
}

// Result is the comparison outcome for one script.
type Result struct {
	Script   string
	Outcome  Outcome
	Actual   string
	Expected string
	Diff     string
	Elapsed  time.Duration
}

// Format renders a result log into the string that is diffed against the
// expectation file: inputs and errors verbatim, outputs normalized.
func Format(log *script.ResultLog) string {
	var buf bytes.Buffer
	for _, e := range log.Entries() {
		buf.Write(script.FormatEntry(e))
	}
	return buf.String()
}

// ExpectedPath returns the expectation file recorded for a script.
func ExpectedPath(scriptPath string) string { return replaceExt(scriptPath, ".expected") }

// ActualPath returns the artifact written when no expectation exists.
func ActualPath(scriptPath string) string { return replaceExt(scriptPath, ".actual") }

// RejectPath returns the artifact written when the output differs.
func RejectPath(scriptPath string) string { return replaceExt(scriptPath, ".reject") }

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Compare checks actual output against the stored expectation and writes
// the .actual or .reject artifact as appropriate. A passing run removes a
// stale .reject left by an earlier failure.
func Compare(scriptPath, actual string, omitted bool) (*Result, error) {
	res := &Result{Script: scriptPath, Actual: actual}
	if omitted {
		res.Outcome = OutcomeOmitted
		return res, nil
	}

	expected, err := os.ReadFile(ExpectedPath(scriptPath))
	if errors.Is(err, fs.ErrNotExist) {
		res.Outcome = OutcomeNotChecked
		if err := os.WriteFile(ActualPath(scriptPath), []byte(actual), 0o644); err != nil {
			return nil, fmt.Errorf("write actual artifact: %w", err)
		}
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read expectation: %w", err)
	}

	res.Expected = string(expected)
	if res.Expected == actual {
		res.Outcome = OutcomePassed
		_ = os.Remove(RejectPath(scriptPath))
		return res, nil
	}

	res.Outcome = OutcomeFailed
	res.Diff = Diff(res.Expected, actual)
	if err := os.WriteFile(RejectPath(scriptPath), []byte(actual), 0o644); err != nil {
		return nil, fmt.Errorf("write reject artifact: %w", err)
	}
	return res, nil
}
