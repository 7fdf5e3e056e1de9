package observability

import (
	"strings"
	"unicode"
)

// Field ceilings for log values. Identifiers in this API are short strings
// (ULID-derived order ids, role-prefixed actor labels), so the caps stay tight.
const (
	maxRouteField  = 200
	maxMethodField = 8
	maxActorField  = 48
	maxAddrField   = 64
)

// clipField strips control characters and caps the length so crafted input
// cannot break a log line.
func clipField(value string, limit int) string {
	if limit <= 0 {
		limit = maxRouteField
	}

	var b strings.Builder
	b.Grow(len(value))
	kept := 0
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		kept++
		if kept == limit {
			break
		}
	}
	return b.String()
}

// SanitizeRoute renders a chi route pattern or raw path safe for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clipField(route, maxRouteField)
}

// SanitizeMethod renders an HTTP method safe for logging.
func SanitizeMethod(method string) string {
	return clipField(method, maxMethodField)
}

// SanitizeActorID caps actor identifiers to limit PII leakage in logs.
func SanitizeActorID(id string) string {
	if id == "" {
		return ""
	}
	return clipField(id, maxActorField)
}
