package main

import (
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// newLogger builds the process logger. format is "json" or "text"; an
// unknown level falls back to info.
func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// passwordPattern catches key=value DSN passwords.
var passwordPattern = regexp.MustCompile(`(?i)password=\S+`)

// redactURL hides the password of a connection URL. Unparseable input is
// replaced entirely.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "[redacted]"
	}
	return u.Redacted()
}

// sanitizeError renders err with every secret replaced by its redacted
// form and DSN passwords masked.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, redactURL(s))
		}
	}
	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
