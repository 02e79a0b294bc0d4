// Package mistralparse recovers structured tool calls from Mistral's native
// inline text marker, `[TOOL_CALLS]Name{"arg":"v"}`, which the backend
// sometimes emits even when structured tool-call output was requested
// (spec §4.2).
package mistralparse

import (
	"encoding/json"
	"strings"
)

const marker = "[TOOL_CALLS]"

// ToolCall is a single recovered call: a function name and its still-raw
// JSON argument object.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// nameChar matches the character class [A-Za-z0-9_]+ the spec specifies for
// tool names.
func nameChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

// Parse scans text for every `[TOOL_CALLS]Name{json}` occurrence and returns
// the successfully parsed calls, in order. A marker with no well-formed
// name+JSON following it is skipped without aborting the rest of the scan;
// an empty result means the marker never appeared (or never resolved).
func Parse(text string) []ToolCall {
	var calls []ToolCall

	pos := 0
	for {
		idx := strings.Index(text[pos:], marker)
		if idx == -1 {
			break
		}
		start := pos + idx + len(marker)
		pos = start

		nameEnd := start
		for nameEnd < len(text) && nameChar(text[nameEnd]) {
			nameEnd++
		}
		if nameEnd == start {
			// Marker not followed by a name at all; keep scanning past it.
			continue
		}
		name := text[start:nameEnd]

		if nameEnd >= len(text) || text[nameEnd] != '{' {
			// Name immediately followed by a non-'{' is skipped (spec §4.2 edge case).
			pos = nameEnd
			continue
		}

		jsonEnd, ok := scanBalancedObject(text, nameEnd)
		if !ok {
			// Unbalanced braces: this call is dropped and scanning resumes
			// after its name, so later markers can still be recovered.
			pos = nameEnd
			continue
		}

		raw := text[nameEnd:jsonEnd]
		var probe map[string]any
		if err := json.Unmarshal([]byte(raw), &probe); err != nil {
			pos = jsonEnd
			continue
		}

		calls = append(calls, ToolCall{Name: name, Arguments: json.RawMessage(raw)})
		pos = jsonEnd
	}

	return calls
}

// scanBalancedObject scans a JSON object starting at text[start] == '{',
// respecting string literals and escape sequences so braces inside strings
// don't affect the nesting count. It returns the exclusive end index of the
// object and true on success; false if the braces never balance before the
// text ends.
func scanBalancedObject(text string, start int) (int, bool) {
	if start >= len(text) || text[start] != '{' {
		return 0, false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}

	return 0, false
}
