package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Error("New accepted unknown log level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("New accepted unknown log format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("below-threshold messages logged: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("at-or-above-threshold messages missing: %s", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("policy matched", "tier", "file_hash")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "policy matched" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["tier"] != "file_hash" {
		t.Errorf("tier = %v", entry["tier"])
	}
}

func TestRedactionMasksSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Redact: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("download scanned",
		"url", "https://mail.example.com/attachments/tax-return-2025.pdf?sid=abc123",
		"file_name", "tax-return-2025.pdf",
		"file_hash", strings.Repeat("ab", 32),
	)

	out := buf.String()
	if strings.Contains(out, "tax-return-2025") {
		t.Errorf("document name leaked: %s", out)
	}
	if strings.Contains(out, "sid=abc123") {
		t.Errorf("query string leaked: %s", out)
	}
	if !strings.Contains(out, "mail.example.com") {
		t.Errorf("host should survive redaction: %s", out)
	}
	if strings.Contains(out, strings.Repeat("ab", 32)) {
		t.Errorf("full hash leaked: %s", out)
	}
	if !strings.Contains(out, "abababab...") {
		t.Errorf("hash prefix missing: %s", out)
	}
}

func TestRedactionCoversWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Redact: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.With("url", "https://example.com/secret-doc.xlsx").Info("cached")

	out := buf.String()
	if strings.Contains(out, "secret-doc") {
		t.Errorf("With-attached URL leaked: %s", out)
	}
}

func TestRedactionDisabledByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("download scanned", "url", "https://example.com/report.pdf")
	if !strings.Contains(buf.String(), "report.pdf") {
		t.Errorf("redaction applied without being enabled: %s", buf.String())
	}
}
