package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that are always masked.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,

	// Authentication
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"access_token":  true,
	"refresh_token": true,
	"csrftoken":     true,

	// Session
	"session":    true,
	"session_id": true,
	"sessionid":  true,
	"sid":        true,

	// Credentials
	"credential":  true,
	"credentials": true,
	"auth":        true,
}

// sensitiveKeywords mark a key as sensitive when they appear anywhere in it.
// The bare word "key" is left out because it matches harmless keys such as
// "primary_key".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "cookie",
}

// titleKeys carry page titles and hrefs. Their values are never matched
// against sensitivePatterns: a title such as
// "Pneumonoultramicroscopicsilicovolcanoconiosis" would otherwise look
// like an API key.
var titleKeys = map[string]bool{
	"title":  true,
	"page":   true,
	"start":  true,
	"target": true,
	"from":   true,
	"to":     true,
	"href":   true,
	"last":   true,
}

// sensitivePatterns match values that are masked regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Long opaque strings such as OAuth consumer keys
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),

	// Private key markers
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks sensitive attribute values
// before passing records on.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. Every package logs through plain *slog.Logger values
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Redaction cannot be forgotten at a call site
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
}

// NewSecureHandler creates a SecureHandler wrapping handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes sanitized and added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr masks a single attribute, recursing into groups.
func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitized[i] = sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || containsSensitiveKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString || titleKeys[key] {
		return a
	}

	value := a.Value.String()
	if isSensitiveValue(value) {
		return slog.String(a.Key, MaskValue)
	}
	if masked, ok := sanitizeURL(value); ok {
		return slog.String(a.Key, masked)
	}

	return a
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// sanitizeURL masks credential query parameters and userinfo of an
// absolute URL. It reports false when value is not such a URL or has
// nothing to mask.
func sanitizeURL(value string) (string, bool) {
	if !strings.Contains(value, "://") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return "", false
	}

	changed := false
	if u.User != nil {
		u.User = url.User(MaskValue)
		changed = true
	}

	q := u.Query()
	for name := range q {
		lower := strings.ToLower(name)
		if sensitiveKeys[lower] || containsSensitiveKeyword(lower) {
			q.Set(name, MaskValue)
			changed = true
		}
	}
	if !changed {
		return "", false
	}

	u.RawQuery = q.Encode()
	return u.String(), true
}

// level returns the minimum level for the verbose flag: Debug when
// verbose, Warn otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSecureLogger creates a text slog.Logger that sanitizes all output.
// With verbose the level is Debug, which logs every followed link;
// otherwise Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(handler))
}

// NewSecureJSONLogger creates a JSON slog.Logger that sanitizes all output.
// Useful for structured log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(handler))
}
