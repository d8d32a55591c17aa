package orchestrate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionError reports that no structured value could be recovered from
// the provider output. It carries a truncated preview for diagnostics.
type ExtractionError struct {
	Preview string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no JSON value found in provider output: %q", e.Preview)
}

const previewLen = 200

// Extract recovers the intended JSON value from raw provider output.
// Models are not guaranteed to honor "return JSON only" instructions, so the
// strategies get progressively looser: a direct bracket-span scan, then
// markdown-fence stripping, then parsing the whole text, then a bare-scalar
// fallback for plain-text answers like "Healthcare".
func Extract(raw string) (any, error) {
	// 1. Direct scan for the widest [...] or {...} span.
	if v, ok := tryParseSpan(raw); ok {
		return v, nil
	}

	// 2. Strip backtick fencing and the literal word "json", re-locate.
	cleaned := stripFencing(raw)
	if v, ok := tryParseSpan(cleaned); ok {
		return v, nil
	}

	// 3. The whole cleaned text might already be valid JSON.
	var whole any
	if err := json.Unmarshal([]byte(cleaned), &whole); err == nil {
		return whole, nil
	}

	// 4. No brackets at all: treat as a bare scalar answer.
	if !strings.ContainsAny(cleaned, "{[") {
		scalar := strings.Trim(strings.TrimSpace(cleaned), `"'`)
		if scalar != "" {
			return scalar, nil
		}
	}

	return nil, &ExtractionError{Preview: truncate(raw, previewLen)}
}

// tryParseSpan locates the widest bracketed span in s and attempts to parse
// it, tolerating trailing commas. The pair whose opening bracket appears
// first is tried first: an object that contains an array must come back as
// the object, not its inner array.
func tryParseSpan(s string) (any, bool) {
	pairs := [][2]byte{{'[', ']'}, {'{', '}'}}
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')
	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		pairs = [][2]byte{{'{', '}'}, {'[', ']'}}
	}

	for _, pair := range pairs {
		start := strings.IndexByte(s, pair[0])
		if start < 0 {
			continue
		}
		end := strings.LastIndexByte(s, pair[1])
		if end <= start {
			continue
		}

		candidate := stripTrailingCommas(s[start : end+1])
		var v any
		if err := json.Unmarshal([]byte(candidate), &v); err == nil {
			return v, true
		}
	}
	return nil, false
}

// stripFencing removes backtick fences and the word "json" that models wrap
// output in.
func stripFencing(s string) string {
	s = strings.ReplaceAll(s, "```", "")
	s = replaceFold(s, "json", "")
	return strings.TrimSpace(s)
}

// replaceFold removes every case-insensitive occurrence of old from s.
func replaceFold(s, old, new string) string {
	var b strings.Builder
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	for {
		i := strings.Index(lower, oldLower)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(new)
		s = s[i+len(old):]
		lower = lower[i+len(old):]
	}
}

// stripTrailingCommas removes commas that directly precede a closing bracket,
// skipping commas inside quoted strings.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
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

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue // drop the comma
			}
		}

		b.WriteByte(c)
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
