package security

import (
	"net/url"
	"strings"
)

// sensitiveParamMarkers flag query parameter names that likely carry a
// credential. Matched as substrings, so "api_key", "apikey", and
// "x-api-key" all hit "key".
var sensitiveParamMarkers = []string{
	"password", "passwd", "pwd",
	"secret", "token", "auth", "bearer", "credential",
	"key", "session", "sid", "private",
}

// RedactURL strips credentials from a navigation target before it reaches a
// log line: userinfo is replaced wholesale and suspicious query parameter
// values are masked. Unparsable input is replaced entirely rather than
// logged raw.
func RedactURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid-url]"
	}

	if parsed.User != nil {
		parsed.User = url.User("[REDACTED]")
	}
	if parsed.RawQuery != "" {
		query := parsed.Query()
		for name := range query {
			if isSensitiveParam(name) {
				query[name] = []string{"[REDACTED]"}
			}
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func isSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveParamMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
