// Package audit provides the append-only audit log for policy mutations
// and enforcement decisions.
//
// # Overview
//
// Every policy create, update, and delete, and every enforcement action
// taken against a download, is recorded as one JSON line with a unique
// event ID. The log is append-only; the writer never rewrites or truncates
// existing entries. When the file grows past the configured size it is
// rotated aside with a timestamp suffix and a fresh file is started.
//
// # Usage
//
//	log, err := audit.New(audit.Config{Path: "sentinel-audit.jsonl"})
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//
//	log.Record(audit.Event{
//	    Type:     audit.EventPolicyCreated,
//	    PolicyID: 42,
//	    Actor:    "enterprise_admin",
//	})
package audit
