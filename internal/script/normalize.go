package script

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// maxCompactWidth is the column budget for a compact response line.
// Normalized responses longer than this are re-serialized pretty-printed.
const maxCompactWidth = 79

// FormatEntry renders one log entry the way it appears in a result file.
// Input lines keep the terminator they carried in the script and error
// entries are recorded newline-terminated, so both pass through verbatim.
// Output entries are normalized and newline-terminated here.
func FormatEntry(e Entry) []byte {
	if e.Tag != TagOutput {
		return e.Content
	}
	return append(NormalizeResponse(e.Content, e.Format), '\n')
}

// NormalizeResponse strips the volatile fields from a server response so
// results are comparable across runs. Only json responses carry the status
// envelope the server timestamps; every other format is returned as is.
// Content that does not parse as a json response array is also returned
// unchanged so the mismatch stays visible in the diff.
func NormalizeResponse(content []byte, format Format) []byte {
	if format != FormatJSON {
		return content
	}
	normalized, err := normalizeResponseJSON(content)
	if err != nil {
		return content
	}
	return normalized
}

// normalizeResponseJSON rewrites the status descriptor of a response
// array. The raw status is [returnCode, startedTime, elapsedTime, ...]:
// on success it becomes [0,0.0,0.0], on failure [[rc,0.0,0.0], message]
// with the backtrace dropped. Numbers are decoded as json.Number so the
// untouched tail of the response survives byte-for-byte.
func normalizeResponseJSON(content []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var response []any
	if err := dec.Decode(&response); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("empty response array")
	}
	status, ok := response[0].([]any)
	if !ok || len(status) == 0 {
		return nil, fmt.Errorf("malformed status descriptor")
	}
	rc, ok := status[0].(json.Number)
	if !ok {
		return nil, fmt.Errorf("malformed return code")
	}

	zero := json.Number("0.0")
	if rc.String() == "0" {
		response[0] = []any{json.Number("0"), zero, zero}
	} else {
		normalized := []any{[]any{rc, zero, zero}}
		if len(status) > 3 {
			// status[3] is the error message; status[4], when present,
			// is the backtrace and is dropped.
			normalized = append(normalized, status[3])
		}
		response[0] = normalized
	}

	compact, err := encodeResponseJSON(response, false)
	if err != nil {
		return nil, err
	}
	if len(compact) > maxCompactWidth {
		return encodeResponseJSON(response, true)
	}
	return compact, nil
}

func encodeResponseJSON(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("re-serialize response: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
