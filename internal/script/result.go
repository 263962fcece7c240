package script

// Tag classifies a result log entry.
type Tag int

const (
	// TagInput marks a command line echoed from the script.
	TagInput Tag = iota
	// TagOutput marks a server response.
	TagOutput
	// TagError marks a failure recorded while executing a line.
	TagError
)

// String returns the lowercase name used in diagnostics.
func (t Tag) String() string {
	switch t {
	case TagInput:
		return "input"
	case TagOutput:
		return "output"
	case TagError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one record in a ResultLog.
//
// Command and Format are populated for output entries only. They carry the
// command that produced the response and its declared output format, which
// drive normalization when the log is rendered.
type Entry struct {
	Tag     Tag
	Content []byte
	Command string
	Format  Format
}

// ResultLog is the ordered accumulation target for one script run.
// It is append-only for the duration of a top-level execution and is owned
// by the run's Context.
type ResultLog struct {
	entries []Entry
}

func (l *ResultLog) append(e Entry) {
	l.entries = append(l.entries, e)
}

// Entries returns the accumulated entries in append order.
func (l *ResultLog) Entries() []Entry {
	return l.entries
}

// Len returns the number of accumulated entries.
func (l *ResultLog) Len() int {
	return len(l.entries)
}
