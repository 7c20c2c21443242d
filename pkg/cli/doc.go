// Package cli provides shared helpers for the sentinel command line:
// output formatting, command error types, and signal handling.
package cli
