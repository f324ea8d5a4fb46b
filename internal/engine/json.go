package engine

import "encoding/json"

// FirstJSONObject extracts the first balanced {...} object embedded
// anywhere in s, for call sites where the engine prints a JSON payload
// surrounded by log noise. The second return is false when no complete
// object is present.
func FirstJSONObject(s string) (json.RawMessage, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return json.RawMessage(candidate), true
				}
				// Unbalanced garbage that merely looked like an object;
				// keep scanning after it.
				start = -1
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return nil, false
}
