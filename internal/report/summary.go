package report

// ScriptResult is the JSON-friendly view of one script's outcome.
type ScriptResult struct {
	Script    string `json:"script"`
	Outcome   string `json:"outcome"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Diff      string `json:"diff,omitempty"`
}

// Summary tallies a whole harness invocation.
type Summary struct {
	Scripts    []ScriptResult `json:"scripts"`
	Passed     int            `json:"passed"`
	Failed     int            `json:"failed"`
	NotChecked int            `json:"not_checked"`
	Omitted    int            `json:"omitted"`
	Total      int            `json:"total"`
}

// Summarize folds per-script results into a Summary, preserving order.
func Summarize(results []*Result) Summary {
	s := Summary{Scripts: make([]ScriptResult, 0, len(results)), Total: len(results)}
	for _, r := range results {
		s.Scripts = append(s.Scripts, ScriptResult{
			Script:    r.Script,
			Outcome:   r.Outcome.String(),
			ElapsedMS: r.Elapsed.Milliseconds(),
			Diff:      r.Diff,
		})
		switch r.Outcome {
		case OutcomePassed:
			s.Passed++
		case OutcomeFailed:
			s.Failed++
		case OutcomeNotChecked:
			s.NotChecked++
		case OutcomeOmitted:
			s.Omitted++
		}
	}
	return s
}
