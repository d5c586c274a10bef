package utils

import "strings"

// ExtractJSONObject pulls a JSON object out of possibly-wrapped model output.
// Models frequently fence JSON in markdown code blocks or surround it with
// prose; this strips both and returns the outermost {...} span. The second
// return value is false when no object is present, which callers must treat
// as "ignore", never as an error.
func ExtractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Strip markdown code fences (```json ... ``` or plain ```).
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "\n"); idx >= 0 {
			// Drop a language tag like "json" on the fence line.
			first := strings.TrimSpace(s[:idx])
			if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
				s = s[idx+1:]
			}
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// IsIgnoreSentinel reports whether model output is the literal IGNORE marker,
// allowing for fences, whitespace and quoting around it.
func IsIgnoreSentinel(raw string) bool {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "`\"' \n\t")
	return strings.EqualFold(s, "IGNORE")
}
