package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/downloads/invoice.pdf", "https://example.com/***"},
		{"https://example.com/path?token=secret", "https://example.com/***"},
		{"http://10.0.0.5:8080/file", "http://10.0.0.5:8080/***"},
		{"not a url", "[redacted-url]"},
		{"", "[redacted-url]"},
	}
	for _, tt := range tests {
		if got := RedactURL(tt.in); got != tt.want {
			t.Errorf("RedactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"payroll-march.xlsx", "***.xlsx"},
		{"setup.exe", "***.exe"},
		{"README", "***"},
	}
	for _, tt := range tests {
		if got := RedactFileName(tt.in); got != tt.want {
			t.Errorf("RedactFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactHash(t *testing.T) {
	full := strings.Repeat("0123456789abcdef", 4)
	if got := RedactHash(full); got != "01234567..." {
		t.Errorf("RedactHash = %q", got)
	}
	if got := RedactHash("short"); got != "short" {
		t.Errorf("RedactHash(short) = %q", got)
	}
}

func TestRedactAttrLeavesBenignKeysAlone(t *testing.T) {
	r := NewRedactor()
	a := r.RedactAttr(slog.String("tier", "url_pattern"))
	if a.Value.String() != "url_pattern" {
		t.Errorf("benign attr rewritten: %v", a)
	}
}

func TestRedactAttrMasksEmbeddedHashes(t *testing.T) {
	r := NewRedactor()
	hash := strings.Repeat("cd", 32)
	a := r.RedactAttr(slog.String("message", "verdict for "+hash+" expired"))
	// "message" is not a sensitive key, so only the embedded hash is masked.
	got := a.Value.String()
	if strings.Contains(got, hash) {
		t.Errorf("embedded hash survived: %q", got)
	}
	if !strings.Contains(got, "cdcdcdcd...") {
		t.Errorf("hash prefix missing: %q", got)
	}
}

func TestRedactAttrRecursesIntoGroups(t *testing.T) {
	r := NewRedactor()
	a := r.RedactAttr(slog.Group("download",
		slog.String("url", "https://example.com/contract.docx"),
		slog.String("tier", "file_hash"),
	))
	members := a.Value.Group()
	if len(members) != 2 {
		t.Fatalf("group members = %d", len(members))
	}
	if strings.Contains(members[0].Value.String(), "contract") {
		t.Errorf("grouped URL leaked: %v", members[0])
	}
	if members[1].Value.String() != "file_hash" {
		t.Errorf("benign grouped attr rewritten: %v", members[1])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"url", "download_url", "file_hash", "sha256", "filename"} {
		if !isSensitiveKey(key) {
			t.Errorf("isSensitiveKey(%q) = false", key)
		}
	}
	for _, key := range []string{"tier", "level", "count", "urls_scanned"} {
		if isSensitiveKey(key) {
			t.Errorf("isSensitiveKey(%q) = true", key)
		}
	}
}
