package orchestrate

import (
	"encoding/json"
	"strconv"
	"strings"
)

// errorEnvelope is the normalized shape of a provider's JSON error body.
// Providers nest these ("error": {...}) and sometimes stringify a whole
// envelope into the outer message, so the same text can carry several
// levels of them.
type errorEnvelope struct {
	Code    int
	Status  string
	Message string
	// RetryDelay comes from a google.rpc.RetryInfo detail ("40s" format).
	RetryDelay string
}

// scanJSONObjects returns every balanced top-level {...} span in s. The scan
// tracks quoted strings and backslash escapes, which a regex cannot do once
// messages contain braces inside string values.
func scanJSONObjects(s string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

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
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return spans
}

// extractEnvelope pulls the deepest error envelope out of text. Each decoded
// envelope's own message is re-scanned, because providers stringify nested
// errors into the outer message. Depth is bounded to keep adversarial input
// from looping.
func extractEnvelope(text string) (errorEnvelope, bool) {
	var out errorEnvelope
	found := false

	current := text
	for depth := 0; depth < 3; depth++ {
		env, ok := decodeFirstEnvelope(current)
		if !ok {
			break
		}
		found = true
		mergeEnvelope(&out, env)
		if env.Message == "" || env.Message == current {
			break
		}
		current = env.Message
	}

	return out, found
}

// decodeFirstEnvelope tries each balanced JSON span in text until one decodes
// into something that looks like an error envelope.
func decodeFirstEnvelope(text string) (errorEnvelope, bool) {
	for _, span := range scanJSONObjects(text) {
		var raw map[string]any
		if err := json.Unmarshal([]byte(span), &raw); err != nil {
			continue
		}

		// Providers wrap the envelope under an "error" key.
		if inner, ok := raw["error"].(map[string]any); ok {
			raw = inner
		}

		env := envelopeFromMap(raw)
		if env.Code != 0 || env.Status != "" || env.Message != "" {
			return env, true
		}
	}
	return errorEnvelope{}, false
}

func envelopeFromMap(m map[string]any) errorEnvelope {
	var env errorEnvelope

	switch code := m["code"].(type) {
	case float64:
		env.Code = int(code)
	case string:
		if n, err := strconv.Atoi(code); err == nil {
			env.Code = n
		} else {
			env.Status = code
		}
	}

	if status, ok := m["status"].(string); ok && env.Status == "" {
		env.Status = status
	}
	if msg, ok := m["message"].(string); ok {
		env.Message = msg
	}

	if details, ok := m["details"].([]any); ok {
		for _, d := range details {
			dm, ok := d.(map[string]any)
			if !ok {
				continue
			}
			if delay, ok := dm["retryDelay"].(string); ok {
				env.RetryDelay = delay
			}
		}
	}

	return env
}

// mergeEnvelope copies fields from src into dst where dst is still empty,
// so deeper envelopes refine rather than overwrite what the outer one said.
func mergeEnvelope(dst *errorEnvelope, src errorEnvelope) {
	if dst.Code == 0 {
		dst.Code = src.Code
	}
	if dst.Status == "" {
		dst.Status = src.Status
	}
	if src.Message != "" {
		dst.Message = src.Message
	}
	if dst.RetryDelay == "" {
		dst.RetryDelay = src.RetryDelay
	}
}

// parseRetryDelay parses a provider-suggested delay in "<number>s" form.
// Fractional seconds ("3.5s") are accepted.
func parseRetryDelay(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "s") {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
