package orchestrate

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/leadgrid/leadgrid/internal/llm"
)

// Kind categorizes a provider failure for retry decisions.
type Kind string

const (
	KindRateLimited      Kind = "rate_limited"
	KindUnavailable      Kind = "unavailable"
	KindNetwork          Kind = "network"
	KindTerminal         Kind = "terminal"
	KindExtractionFailed Kind = "extraction_failed"
	KindValidationFailed Kind = "validation_failed"
)

// Retryable reports whether another attempt against the same provider is
// justified.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindUnavailable, KindNetwork, KindExtractionFailed, KindValidationFailed:
		return true
	}
	return false
}

// Classification is the normalized verdict on a provider failure.
type Classification struct {
	Kind Kind

	// RetryAfter is a provider-suggested wait, zero when none was given.
	RetryAfter time.Duration

	// Message is the most specific human-readable message found, including
	// inside nested envelopes. Callers render these to end users.
	Message string
}

// Classify inspects a provider failure and produces a normalized verdict.
// It reads the HTTP status code, the provider status string, and the message
// text, including error envelopes that providers stringify into the outer
// message. Pure function: same error, same verdict.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindTerminal, Message: "no error"}
	}

	code := 0
	status := ""
	message := err.Error()
	scanText := message

	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		code = perr.Code
		status = perr.Status
		if perr.Message != "" {
			message = perr.Message
		}
		scanText = perr.Message + "\n" + perr.RawBody
	}

	if env, ok := extractEnvelope(scanText); ok {
		if code == 0 {
			code = env.Code
		}
		if status == "" {
			status = env.Status
		}
		if env.Message != "" {
			message = env.Message
		}
		if env.RetryDelay != "" {
			if secs, ok := parseRetryDelay(env.RetryDelay); ok {
				cls := classifyFields(code, status, message, err)
				cls.RetryAfter = time.Duration(secs * float64(time.Second))
				return cls
			}
		}
	}

	return classifyFields(code, status, message, err)
}

// classifyFields applies the decision rules in priority order.
func classifyFields(code int, status, message string, err error) Classification {
	lower := strings.ToLower(message)

	// 1. Service unavailable / overloaded.
	if code == http.StatusServiceUnavailable ||
		status == "UNAVAILABLE" ||
		strings.Contains(lower, "overloaded") ||
		strings.Contains(message, "UNAVAILABLE") {
		return Classification{Kind: KindUnavailable, Message: message}
	}

	// 2. Rate limiting / quota exhaustion.
	if code == http.StatusTooManyRequests ||
		status == "RESOURCE_EXHAUSTED" ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "rate limit") {
		return Classification{Kind: KindRateLimited, Message: message}
	}

	// 3. Transport-level failures, including per-call timeouts.
	if isNetworkError(err, lower) {
		return Classification{Kind: KindNetwork, Message: message}
	}

	// 4. Everything else (auth, malformed request) is not worth retrying.
	return Classification{Kind: KindTerminal, Message: message}
}

func isNetworkError(err error, lowerMessage string) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	for _, marker := range []string{
		"no such host",
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"timed out",
		"network is unreachable",
	} {
		if strings.Contains(lowerMessage, marker) {
			return true
		}
	}
	return false
}
