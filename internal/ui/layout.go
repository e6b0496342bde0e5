package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which list columns are dropped.
	LayoutCompactWidth = 80

	// LayoutModalWidth is the width of modal dialogs.
	LayoutModalWidth = 56

	// LayoutChromeHeight is the number of rows used by header and footer.
	LayoutChromeHeight = 3
)

// Timing constants.
const (
	// DefaultUIInterval is the cadence at which views re-read the cache.
	DefaultUIInterval = time.Second

	// StatusTTL is how long a non-error status message stays visible.
	StatusTTL = 5 * time.Second
)
