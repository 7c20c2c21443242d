// Package config defines the Sentinel service configuration and its
// loading pipeline.
//
// # Overview
//
// Configuration is declared in YAML, loaded with LoadConfig, filled in by
// ApplyDefaults, optionally overridden by SENTINEL_* environment variables,
// and checked by Validate before any component is constructed. A Watcher
// can additionally hot-reload the file on change so scoring thresholds can
// be tuned without a restart.
//
// # Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("sentinel.yaml")
//	if err != nil {
//	    return err
//	}
//
// # Precedence
//
//  1. Built-in defaults
//  2. YAML file values
//  3. Environment variable overrides
package config
