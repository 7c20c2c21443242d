package logging

import (
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Redactor masks user-identifying values in log attributes: download URLs,
// local file names, and content hashes.
type Redactor struct {
	hashRe *regexp.Regexp
}

// Attribute keys whose values are always masked, regardless of content.
var sensitiveKeys = []string{
	"url", "uri", "origin",
	"file_path", "filepath", "filename", "file_name",
	"file_hash", "hash", "sha256",
}

// NewRedactor creates a Redactor with the built-in rules.
func NewRedactor() *Redactor {
	return &Redactor{
		hashRe: regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`),
	}
}

// RedactAttr returns the attribute with its value masked if the key names
// sensitive data. Group attributes are redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		redacted := make([]slog.Attr, len(members))
		for i, m := range members {
			redacted[i] = r.RedactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if !isSensitiveKey(a.Key) {
		// Benign keys still get embedded content hashes scrubbed.
		if a.Value.Kind() == slog.KindString {
			s := a.Value.String()
			if masked := r.hashRe.ReplaceAllStringFunc(s, RedactHash); masked != s {
				return slog.String(a.Key, masked)
			}
		}
		return a
	}
	if a.Value.Kind() != slog.KindString {
		return slog.String(a.Key, "[redacted]")
	}
	return slog.String(a.Key, r.RedactString(a.Key, a.Value.String()))
}

// RedactString masks a sensitive value while keeping enough shape for
// debugging: URLs keep scheme and host, paths keep the extension, hashes
// keep an 8-character prefix.
func (r *Redactor) RedactString(key, value string) string {
	if value == "" {
		return value
	}

	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "hash") || strings.Contains(lower, "sha256"):
		return RedactHash(value)
	case strings.Contains(lower, "url") || strings.Contains(lower, "uri") || strings.Contains(lower, "origin"):
		return RedactURL(value)
	case strings.Contains(lower, "file") || strings.Contains(lower, "path") || strings.Contains(lower, "name"):
		return RedactFileName(value)
	default:
		return r.hashRe.ReplaceAllStringFunc(value, RedactHash)
	}
}

// isSensitiveKey checks if a key name indicates user-identifying data.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if lower == sensitive || strings.HasSuffix(lower, "_"+sensitive) {
			return true
		}
	}
	return false
}

// RedactURL keeps the scheme and host of a URL and drops path and query,
// which routinely carry usernames, document names, and session tokens.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[redacted-url]"
	}
	if u.Scheme != "" {
		return u.Scheme + "://" + u.Host + "/***"
	}
	return u.Host + "/***"
}

// RedactFileName keeps the extension of a file name and masks the rest.
func RedactFileName(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return "***"
	}
	return "***" + ext
}

// RedactHash keeps an 8-character prefix of a content hash, enough to
// correlate log lines without identifying the file.
func RedactHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8] + "..."
}
