package inference

import (
	"encoding/json"
	"strings"
)

// ExtractJSON finds the first balanced JSON object in a model reply.
// Markdown fences are stripped first. String literals are skipped so braces
// inside quoted text do not unbalance the scan.
func ExtractJSON(s string) string {
	if s == "" {
		return ""
	}
	s = stripFences(s)

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
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
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

// SalvageJSON returns the text between the first '{' and the last '}'.
// Used for replies where the balanced scan fails on truncated prose.
func SalvageJSON(s string) string {
	s = stripFences(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// DecodeObject tries the balanced candidate first and then the salvage span.
func DecodeObject(reply string, target any) bool {
	for _, candidate := range []string{ExtractJSON(reply), SalvageJSON(reply)} {
		if candidate == "" {
			continue
		}
		if json.Unmarshal([]byte(candidate), target) == nil {
			return true
		}
	}
	return false
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, r := range []string{"```json", "```JSON", "```text", "```"} {
		s = strings.ReplaceAll(s, r, "")
	}
	return s
}
