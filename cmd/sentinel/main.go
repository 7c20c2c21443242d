// Sentinel is a browser-embedded threat-detection decision core.
//
// It resolves detector alerts against enforcement policies, fuses
// multi-detector scores into verdicts, and caches sandbox verdicts by
// content hash with severity-based expiry:
//   - Priority-ordered policy matching (file hash, URL pattern, rule name)
//   - Weighted verdict scoring with agreement-based confidence
//   - Severity-TTL verdict cache backed by SQLite
//   - Scheduled retention sweeps and an append-only audit log
//
// Usage:
//
//	# Start the decision service with default configuration
//	sentinel run
//
//	# Start with a custom configuration file
//	sentinel run --config /path/to/config.yaml
//
//	# Show version information
//	sentinel version
//
//	# Manage enforcement policies
//	sentinel policy list
//	sentinel policy add --rule EICAR_Test --action block
//
//	# Score detector outputs from the command line
//	sentinel verdict score --yara 0.8 --ml 0.7 --behavioral 0.6
package main

func main() {
	Execute()
}
