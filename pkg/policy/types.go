package policy

import (
	"fmt"
	"time"
)

// Action is the enforcement decision a matched policy prescribes.
type Action int

const (
	// ActionAllow lets the download or form submission proceed.
	ActionAllow Action = iota

	// ActionBlock rejects the download or submission outright.
	ActionBlock

	// ActionQuarantine accepts the file but isolates it from the user.
	ActionQuarantine

	// ActionBlockAutofill prevents credential autofill on the form.
	ActionBlockAutofill

	// ActionWarnUser shows a warning and proceeds only on confirmation.
	ActionWarnUser
)

// String returns the stable wire/database representation of the action.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionBlock:
		return "block"
	case ActionQuarantine:
		return "quarantine"
	case ActionBlockAutofill:
		return "block_autofill"
	case ActionWarnUser:
		return "warn_user"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction converts a stored action string back to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "allow":
		return ActionAllow, nil
	case "block":
		return ActionBlock, nil
	case "quarantine":
		return ActionQuarantine, nil
	case "block_autofill":
		return ActionBlockAutofill, nil
	case "warn_user":
		return ActionWarnUser, nil
	default:
		return ActionAllow, fmt.Errorf("unknown policy action %q", s)
	}
}

// MatchType categorizes what kind of event a policy targets.
type MatchType int

const (
	// MatchDownloadOriginFileType targets downloads by origin and file type.
	MatchDownloadOriginFileType MatchType = iota

	// MatchFormActionMismatch targets forms posting to a different origin.
	MatchFormActionMismatch

	// MatchInsecureCredentialPost targets passwords sent over plain HTTP.
	MatchInsecureCredentialPost

	// MatchThirdPartyFormPost targets forms posting to third parties.
	MatchThirdPartyFormPost
)

// String returns the stable wire/database representation of the match type.
func (m MatchType) String() string {
	switch m {
	case MatchDownloadOriginFileType:
		return "download_origin_file_type"
	case MatchFormActionMismatch:
		return "form_action_mismatch"
	case MatchInsecureCredentialPost:
		return "insecure_credential_post"
	case MatchThirdPartyFormPost:
		return "third_party_form_post"
	default:
		return fmt.Sprintf("match_type(%d)", int(m))
	}
}

// ParseMatchType converts a stored match-type string back to a MatchType.
func ParseMatchType(s string) (MatchType, error) {
	switch s {
	case "download_origin_file_type":
		return MatchDownloadOriginFileType, nil
	case "form_action_mismatch":
		return MatchFormActionMismatch, nil
	case "insecure_credential_post":
		return MatchInsecureCredentialPost, nil
	case "third_party_form_post":
		return MatchThirdPartyFormPost, nil
	default:
		return MatchDownloadOriginFileType, fmt.Errorf("unknown match type %q", s)
	}
}

// Policy is a persisted enforcement rule. Optional string fields use the
// empty string for "unset"; optional timestamps use the zero time.
type Policy struct {
	// ID is the storage-assigned identifier. Zero before insertion.
	ID int64

	// RuleName is the detection rule this policy responds to. Required.
	RuleName string

	// URLPattern is an optional SQL-LIKE wildcard pattern matched against
	// the threat URL ('%' any run, '_' one character, '\' escapes).
	URLPattern string

	// FileHash is an optional hex SHA-256 of the exact content to match.
	FileHash string

	// MimeType optionally records the MIME type the policy was created for.
	MimeType string

	// Action is the enforcement decision when this policy matches.
	Action Action

	// MatchType categorizes the event class the policy targets.
	MatchType MatchType

	// EnforcementAction carries free-text enforcement detail.
	EnforcementAction string

	CreatedAt time.Time
	CreatedBy string

	// ExpiresAt, when set, makes the policy inert once passed. Expired
	// policies are never returned by matching and are purged by the
	// retention sweep.
	ExpiresAt time.Time

	// HitCount increments on every successful match.
	HitCount int64

	// LastHit is the time of the most recent match, zero if never matched.
	LastHit time.Time
}

// Expired reports whether the policy is inert at the given instant.
func (p *Policy) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !p.ExpiresAt.After(now)
}

// ThreatMetadata describes one observed download or form event. It is a
// query input only and is never persisted as-is.
type ThreatMetadata struct {
	URL      string
	Filename string
	FileHash string
	MimeType string
	FileSize uint64
	RuleName string
	Severity string
}

// ThreatRecord is one row of threat history: an observation plus the
// action that was taken for it.
type ThreatRecord struct {
	ID         int64
	DetectedAt time.Time
	URL        string
	Filename   string
	FileHash   string
	MimeType   string
	FileSize   uint64
	RuleName   string
	Severity   string

	// ActionTaken is the enforcement outcome, as shown to the user.
	ActionTaken string

	// PolicyID references the policy that drove the action, zero if none.
	PolicyID int64

	// AlertJSON preserves the raw detector alert for later inspection.
	AlertJSON string
}

// MatchOutcome is the cached result of a policy match: either the ID of the
// matching policy or an explicit "nothing matches this fingerprint". The
// explicit negative form is distinct from an absent cache entry.
type MatchOutcome struct {
	Matched  bool
	PolicyID int64
}
