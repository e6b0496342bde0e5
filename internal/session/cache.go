package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/remedit/internal/remote"
)

// Status describes the outcome of the most recent list call for an endpoint.
type Status struct {
	LastRefreshed       time.Time
	LastError           error
	ConsecutiveFailures int
	Programs            int
}

// IsOffline returns true when the endpoint has failed several lists in a row.
func (s Status) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

type endpointEntry struct {
	programs map[string]remote.Program
	status   Status
}

// Cache maps (endpoint, program) identity to the last observed program. It
// never evicts. The zero value is ready to use.
type Cache struct {
	mu        sync.RWMutex
	endpoints map[string]*endpointEntry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// RecordList replaces the whole program set for an endpoint. Other endpoints
// are untouched.
func (c *Cache) RecordList(endpointID string, programs []remote.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entryLocked(endpointID)
	next := make(map[string]remote.Program, len(programs))
	for _, p := range programs {
		next[p.ID] = p.Clone()
	}
	entry.programs = next
	entry.status.LastRefreshed = time.Now()
	entry.status.LastError = nil
	entry.status.ConsecutiveFailures = 0
}

// RecordListError notes a failed list. The previous program set is kept.
func (c *Cache) RecordListError(endpointID string, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entryLocked(endpointID)
	entry.status.LastError = err
	entry.status.LastRefreshed = time.Now()
	entry.status.ConsecutiveFailures++
}

// RecordFetch stores a program returned by an individual fetch, replacing
// any previous entry with the same id.
func (c *Cache) RecordFetch(endpointID string, p remote.Program) {
	c.upsert(endpointID, p)
}

// RecordSave stores the canonical program returned by a save.
func (c *Cache) RecordSave(endpointID string, p remote.Program) {
	c.upsert(endpointID, p)
}

func (c *Cache) upsert(endpointID string, p remote.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entryLocked(endpointID)
	if entry.programs == nil {
		entry.programs = make(map[string]remote.Program)
	}
	entry.programs[p.ID] = p.Clone()
}

// Lookup returns the cached program without performing any I/O.
func (c *Cache) Lookup(endpointID, programID string) (remote.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.endpoints[endpointID]
	if !ok {
		return remote.Program{}, false
	}
	p, ok := entry.programs[programID]
	if !ok {
		return remote.Program{}, false
	}
	return p.Clone(), true
}

// Programs returns the endpoint's cached programs ordered by full name.
func (c *Cache) Programs(endpointID string) []remote.Program {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.endpoints[endpointID]
	if !ok || len(entry.programs) == 0 {
		return nil
	}
	out := make([]remote.Program, 0, len(entry.programs))
	for _, p := range entry.programs {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].FullName(), out[j].FullName()
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Status returns the list status for an endpoint.
func (c *Cache) Status(endpointID string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.endpoints[endpointID]
	if !ok {
		return Status{}
	}
	st := entry.status
	st.Programs = len(entry.programs)
	if entry.status.LastError != nil {
		st.LastError = fmt.Errorf("%w", entry.status.LastError)
	}
	return st
}

// Forget drops everything cached for an endpoint.
func (c *Cache) Forget(endpointID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.endpoints, endpointID)
}

// Stats reports how many endpoints and programs are cached.
func (c *Cache) Stats() (endpoints, programs int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.endpoints {
		programs += len(entry.programs)
	}
	return len(c.endpoints), programs
}

func (c *Cache) entryLocked(endpointID string) *endpointEntry {
	if c.endpoints == nil {
		c.endpoints = make(map[string]*endpointEntry)
	}
	entry, ok := c.endpoints[endpointID]
	if !ok {
		entry = &endpointEntry{}
		c.endpoints[endpointID] = entry
	}
	return entry
}
