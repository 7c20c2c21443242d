// Package logging provides structured logging with sensitive-data redaction.
//
// # Overview
//
// Sentinel runs inside a browser and its logs routinely touch data the user
// would consider private: the URLs a download came from, local file names,
// and content hashes that can identify a file. The Logger wraps log/slog and,
// when redaction is enabled, masks those values before they reach the output
// writer.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Slog())
package logging
