// Package app is the composition root for remedit.
//
// Bootstrap loads an optional .env file and the TOML config, initializes
// logging, opens the endpoint registry and the credential store, and wires
// them into a workspace together with the program cache and the metrics
// recorder. CLI commands use the returned Env directly.
//
// Run additionally starts the background services of an interactive
// session and blocks in the terminal UI:
//
//   - registry watcher: reloads endpoints edited by other processes
//   - metrics server: serves /metrics when metrics_addr is set
//   - poller: refreshes every endpoint listing at refresh_interval
//
// The poller backs off exponentially while every endpoint is failing, up
// to 30 minutes, and resets on the first round with any success. Errors
// from background services are logged and never end the session.
//
// Passwords persist only when REMEDIT_MASTER_KEY is set; otherwise an
// in-memory store is used and a warning is logged.
package app
