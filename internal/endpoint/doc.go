// Package endpoint models the remote servers remedit talks to and the registry
// that persists them.
//
// # Endpoints
//
// An Endpoint is an immutable identity (a UUID assigned by New) plus a display
// name, a base URL and an optional username. Passwords are deliberately absent:
// they live in a credential store keyed by the endpoint ID.
//
// Validation mirrors what the settings dialog of a desktop client would check:
//
//   - the name is not blank
//   - the URL is absolute, uses http or https, and names a host
//
// # Registry
//
// Registry keeps the endpoint list in memory and writes it to disk on every
// Add, Update and Remove before returning, using a temp file plus rename so a
// crash never leaves a truncated file behind.
//
// The on-disk format follows the file extension:
//
//	# endpoints.toml
//	[[endpoints]]
//	id = "5b8c..."
//	name = "prod"
//	url = "https://api.example.com"
//	username = "bob"
//
//	# endpoints.yaml
//	endpoints:
//	  - id: 5b8c...
//	    name: prod
//	    url: https://api.example.com
//
// Invalid entries found on load are skipped with a warning rather than failing
// the whole registry.
//
// Removal hooks (OnRemove) run after the file has been written. The workspace
// uses them to purge the endpoint's password and cached programs.
//
// Watch follows the file with fsnotify so that edits made by another remedit
// process (for example `remedit endpoint add` while the TUI is open) show up
// without a restart.
package endpoint
