package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// SensitiveHeaders lists, lowercased, the request headers whose values never
// reach a log line. The HTTP middleware's RedactHeaders reads the same set.
var SensitiveHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"cookie":        true,
}

// sensitiveFields are attribute keys redacted wherever they appear. dsn and
// cache_password cover the postgres and redis settings.
var sensitiveFields = []string{"password", "secret", "token", "dsn", "cache_password"}

// sensitivePrefixes catch variants such as secret_key or api_key_v2.
var sensitivePrefixes = []string{"secret_", "api_key"}

// Value patterns for secrets that end up inside ordinary string attributes,
// for example an error message quoting a connection URL.
var valuePatterns = []*regexp.Regexp{
	// Bearer tokens.
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
	// JWTs; each segment is at least 10 characters so version strings pass.
	regexp.MustCompile(`[a-zA-Z0-9\-_]{10,}\.[a-zA-Z0-9\-_]{10,}\.[a-zA-Z0-9\-_]{10,}`),
	// Inline api_key=... or apikey: ...
	regexp.MustCompile(`(?i)(api[_\-]?key|apikey)\s*[:=]\s*\S+`),
	// URLs with a password, e.g. postgres://todo:pw@db:5432/todos or
	// redis://:pw@cache:6379.
	regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.\-]*://[^\s:/@]*:[^\s@]+@`),
}

// newRedactAttr builds the masq ReplaceAttr hook used by New.
func newRedactAttr() func([]string, slog.Attr) slog.Attr {
	opts := make([]masq.Option, 0, len(SensitiveHeaders)+len(sensitiveFields)+len(sensitivePrefixes)+len(valuePatterns))
	for name := range SensitiveHeaders {
		opts = append(opts, masq.WithFieldName(name))
	}
	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}
	for _, prefix := range sensitivePrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}
	for _, re := range valuePatterns {
		opts = append(opts, masq.WithRegex(re))
	}
	return masq.New(opts...)
}
