// Package config loads, normalizes, and validates the TOML configuration for
// the capture core and CLI.
//
// Load resolves the config path (explicit flag, ~/.config/escucha/config.toml,
// or a project-local escucha.toml), applies defaults for missing values,
// expands ~ in path fields, and rejects unusable settings before any
// subsystem starts.
package config
