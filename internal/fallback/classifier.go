package fallback

import (
	"strconv"
	"strings"
)

// fallbackStatusCodes are statuses that always hand the request to the
// next entry in the chain.
var fallbackStatusCodes = map[int]bool{
	400: true,
	401: true,
	403: true,
	422: true,
	429: true,
	500: true,
	503: true,
}

// errorPatterns are case-insensitive substrings that mark an error body
// when the status line is missing or inconclusive. Upstream proxies
// sometimes return non-standard responses with no parseable status, so
// the classifier prefers over-triggering (a wasted retry) to stranding
// the caller on a dead backend.
var errorPatterns = []string{
	// quota / rate limiting
	"quota exceeded",
	"rate limit",
	"too many requests",
	"throttl",
	// request shape
	"invalid_request",
	"validation error",
	"field required",
	// auth
	"unauthorized",
	"invalid api key",
	"access denied",
	// model availability
	"model not found",
	"does not exist",
}

// ShouldTriggerFallback decides, from a raw HTTP response text, whether
// the dispatcher should advance to the next chain entry. A parseable 2xx
// status short-circuits to false; the body is never re-scanned for error
// text on success.
func ShouldTriggerFallback(raw string) bool {
	if code, ok := parseStatusLine(raw); ok {
		if code >= 200 && code < 300 {
			return false
		}
		if fallbackStatusCodes[code] {
			return true
		}
	}

	return bodyLooksLikeError(raw)
}

// ShouldFallbackResponse is the structured form used by the dispatcher,
// which already has the status and body separated.
func ShouldFallbackResponse(statusCode int, body []byte) bool {
	if statusCode >= 200 && statusCode < 300 {
		return false
	}
	if fallbackStatusCodes[statusCode] {
		return true
	}
	return bodyLooksLikeError(string(body))
}

func bodyLooksLikeError(text string) bool {
	lowered := strings.ToLower(text)
	for _, pattern := range errorPatterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

// parseStatusLine extracts the numeric status from the first line of a
// raw HTTP response ("HTTP/1.1 429 Too Many Requests").
func parseStatusLine(raw string) (int, bool) {
	line := raw
	if i := strings.IndexAny(raw, "\r\n"); i >= 0 {
		line = raw[:i]
	}

	for _, field := range strings.Fields(line) {
		if len(field) == 3 {
			if code, err := strconv.Atoi(field); err == nil && code >= 100 && code < 600 {
				return code, true
			}
		}
	}
	return 0, false
}
