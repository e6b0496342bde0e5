// Package logtail reads and renders the remedit log file.
//
// # Overview
//
// The interactive UI writes its log to a file because the terminal belongs to
// the UI. The `remedit log` command uses this package to show the tail of that
// file in a readable form.
//
// # Reading Log Files
//
// Read extracts the last N lines with a ring buffer, so memory stays
// O(maxLines) no matter how large the file grows:
//
//	lines, err := logtail.Read(cfg.LogFile, 200)
//
// A missing file yields no lines and no error.
//
// # Rendering
//
// Parse decodes one line of zap's JSON output into an Entry. Formatter turns
// entries into "15:04:05 LEVEL message key=value" lines, drops entries below
// MinLevel and optionally styles the level with lipgloss. Lines that are not
// JSON, such as console-format output, are passed through unchanged.
package logtail
