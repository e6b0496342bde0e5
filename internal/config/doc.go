// Package config loads the remedit TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use $REMEDIT_CONFIG when set
//  3. Otherwise, use ~/.config/remedit/config.toml
//  4. If the file doesn't exist, fall back to defaults
//  5. If the file exists but fields are missing or empty, use defaults
//
// # TOML Format
//
//	endpoints_file = "~/.config/remedit/endpoints.toml"
//	credentials_file = "~/.config/remedit/credentials.json"
//	request_timeout = "10s"
//	log_level = "info"
//	log_format = "json"
//	log_file = "~/.local/state/remedit/remedit.log"
//	metrics_addr = ""
//
// Every field is optional. An endpoints_file ending in .yaml or .yml is read
// and written as YAML; anything else is TOML. An empty metrics_addr disables
// the metrics listener.
//
// # Path Expansion
//
// Paths are trimmed, a leading ~ is expanded to the home directory and the
// result is made absolute.
//
// # Error Handling
//
// A missing file is not an error. Unreadable files, invalid TOML, an
// unparseable or non-positive request_timeout and an unknown log_format are
// reported with a "parse config" or "open config" prefix.
package config
