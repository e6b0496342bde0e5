// Package session holds the in-memory program cache shared by the UI, the
// CLI and every open document.
//
// # Overview
//
// The cache maps an (endpoint id, program id) pair to the last program value
// observed from that endpoint. Entries arrive from three places:
//
//	ListPrograms  → RecordList   (replaces the endpoint's whole set)
//	GetProgram    → RecordFetch  (upserts one program, content included)
//	SaveProgram   → RecordSave   (upserts the canonical saved copy)
//
// Entries are full replacements. A fetch after a list overwrites the list's
// content-less entry, and a later list drops the fetched content again.
//
// # Concurrency Model
//
// Cache uses a readers-writer lock. Writers hold the lock only while copying
// values; no network I/O happens under the lock. Concurrent writers for the
// same key resolve as last writer wins.
//
// # Defensive Copying
//
// Every value is cloned on the way in and on the way out, so callers may
// mutate returned programs freely.
//
// # Failure Handling
//
// Callers record only successful results. RecordListError keeps the previous
// set and increments a failure counter that the UI uses to flag an endpoint
// as offline.
//
// # Bounds
//
// The cache never evicts. Forget drops an endpoint's entries when the
// endpoint is removed from the registry.
package session
