package policy

import (
	"fmt"
	"strings"
	"time"
)

// Field length bounds, matching the storage schema.
const (
	maxRuleNameLen          = 256
	maxURLPatternLen        = 2048
	maxMimeTypeLen          = 255
	maxCreatedByLen         = 256
	maxEnforcementActionLen = 256
	fileHashHexLen          = 64 // SHA-256
)

// Validate checks every policy field against the input rules and returns a
// *ValidationError on the first violation. It must be called before any
// mutation reaches storage.
func (p *Policy) Validate(now time.Time) error {
	if err := validateRuleName(p.RuleName); err != nil {
		return err
	}
	if p.URLPattern != "" {
		if err := validateURLPattern(p.URLPattern); err != nil {
			return err
		}
	}
	if p.FileHash != "" {
		if err := validateFileHash(p.FileHash); err != nil {
			return err
		}
	}
	if p.MimeType != "" {
		if err := validateMimeType(p.MimeType); err != nil {
			return err
		}
	}
	if err := validateBoundedText("created_by", p.CreatedBy, 1, maxCreatedByLen); err != nil {
		return err
	}
	if err := validateBoundedText("enforcement_action", p.EnforcementAction, 0, maxEnforcementActionLen); err != nil {
		return err
	}
	if p.HitCount < 0 {
		return &ValidationError{Field: "hit_count", Message: "cannot be negative"}
	}
	if !p.LastHit.IsZero() && p.LastHit.After(now) {
		return &ValidationError{Field: "last_hit", Message: "cannot be in the future"}
	}
	return nil
}

func validateRuleName(name string) error {
	if name == "" {
		return &ValidationError{Field: "rule_name", Message: "must not be empty"}
	}
	return validateBoundedText("rule_name", name, 1, maxRuleNameLen)
}

// validateURLPattern restricts patterns to a safe character subset so a
// pattern can never smuggle query syntax into the matching layer.
// Allowed: ASCII alphanumerics and / - _ . * % : plus the escape char '\'.
func validateURLPattern(pattern string) error {
	if len(pattern) > maxURLPatternLen {
		return &ValidationError{
			Field:   "url_pattern",
			Message: fmt.Sprintf("exceeds %d characters", maxURLPatternLen),
		}
	}
	for _, ch := range pattern {
		if isAlphanumeric(ch) || strings.ContainsRune(`/-_.*%:\`, ch) {
			continue
		}
		return &ValidationError{
			Field:   "url_pattern",
			Message: fmt.Sprintf("contains unsafe character %q", ch),
		}
	}
	return nil
}

func validateFileHash(hash string) error {
	if len(hash) != fileHashHexLen {
		return &ValidationError{
			Field:   "file_hash",
			Message: fmt.Sprintf("expected %d hex characters, got %d", fileHashHexLen, len(hash)),
		}
	}
	for _, ch := range hash {
		if (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			continue
		}
		return &ValidationError{Field: "file_hash", Message: "contains non-hex character"}
	}
	return nil
}

func validateMimeType(mime string) error {
	if len(mime) > maxMimeTypeLen {
		return &ValidationError{
			Field:   "mime_type",
			Message: fmt.Sprintf("exceeds %d characters", maxMimeTypeLen),
		}
	}
	slashes := 0
	for _, ch := range mime {
		switch {
		case isAlphanumeric(ch) || ch == '-' || ch == '+' || ch == '.':
		case ch == '/':
			slashes++
		default:
			return &ValidationError{Field: "mime_type", Message: "contains invalid characters"}
		}
	}
	if slashes != 1 {
		return &ValidationError{Field: "mime_type", Message: "must be type/subtype"}
	}
	return nil
}

func validateBoundedText(field, value string, min, max int) error {
	if len(value) < min {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	if len(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds %d characters", max),
		}
	}
	for _, ch := range value {
		if ch < 0x20 || ch == 0x7f {
			return &ValidationError{Field: field, Message: "contains control characters"}
		}
	}
	return nil
}

func isAlphanumeric(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
