// Package script implements the test-script execution engine.
//
// A script is a line-oriented file in the Groonga test mini-language:
// commands sent verbatim to a server process, `#`-prefixed directives,
// backslash continuation lines, and multi-line load payloads. The
// Interpreter streams a script to the server over a Channel, collects the
// responses, and records everything in a Context-owned ResultLog that the
// reporter later turns into a comparable result string.
//
// The server's responses are not framed. Completion is inferred by the
// Channel's poll-and-drain protocol and, for load payloads, a trailing
// bracket heuristic. Both are kept exactly as the recorded expectation
// files assume; see Channel.Drain for the limitation this implies.
package script
