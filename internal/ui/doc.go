// Package ui provides the terminal user interface for remedit.
//
// The UI is a Bubble Tea program with three views:
//
//   - Endpoints: the registry with cached listing status per endpoint
//   - Programs: the cached listing of the connected endpoint
//   - Editor: a text area bound to a document.Document
//
// All remote work goes through a workspace.Workspace and runs inside
// tea.Cmd functions, so the event loop never blocks on the network. A
// periodic tick re-reads the registry and the cache, which picks up edits
// made to the endpoints file by other processes.
//
// Modal dialogs (endpoint form, confirmations, help) consume key input
// before the active view. The editor consumes keys before global bindings
// so that typing "q" inserts text; ctrl+c always quits.
package ui
