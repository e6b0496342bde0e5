package endpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/five82/remedit/internal/logging"
)

// Registry holds the configured endpoints and persists every mutation to disk
// before returning. Entries on disk that fail validation are kept and written
// back untouched but never listed.
type Registry struct {
	path string

	mu        sync.RWMutex
	endpoints []Endpoint
	onRemove  []func(Endpoint)
}

type fileFormat struct {
	Endpoints []Endpoint `toml:"endpoints" yaml:"endpoints"`
}

// Open loads the registry stored at path. A missing file yields an empty
// registry; it is created on the first mutation.
func Open(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("registry path is empty")
	}
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the backing file path.
func (r *Registry) Path() string {
	return r.path
}

// Reload re-reads the backing file, replacing the in-memory set. Endpoints
// that disappeared from the file run the removal hooks.
func (r *Registry) Reload() error {
	loaded, err := readFile(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	var removed []Endpoint
	for _, old := range r.endpoints {
		if old.ID != "" && !slices.ContainsFunc(loaded, func(ep Endpoint) bool { return ep.ID == old.ID }) {
			removed = append(removed, old)
		}
	}
	r.endpoints = loaded
	hooks := slices.Clone(r.onRemove)
	r.mu.Unlock()

	logging.Debug("endpoint registry loaded",
		logging.String("path", r.path),
		logging.Int("endpoints", len(loaded)))
	for _, ep := range removed {
		logging.Info("endpoint removed externally", logging.String("id", ep.ID), logging.String("name", ep.Name))
		for _, hook := range hooks {
			hook(ep)
		}
	}
	return nil
}

// List returns a copy of the valid endpoints in their stored order.
func (r *Registry) List() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		if ep.Validate() == nil {
			out = append(out, ep)
		}
	}
	return out
}

// Get returns the endpoint with the given id.
func (r *Registry) Get(id string) (Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexOf(id); idx >= 0 && r.endpoints[idx].Validate() == nil {
		return r.endpoints[idx], nil
	}
	return Endpoint{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Resolve finds an endpoint by id, falling back to a case-insensitive name match.
func (r *Registry) Resolve(ref string) (Endpoint, error) {
	ref = strings.TrimSpace(ref)
	if ep, err := r.Get(ref); err == nil {
		return ep, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ep := range r.endpoints {
		if strings.EqualFold(ep.Name, ref) && ep.Validate() == nil {
			return ep, nil
		}
	}
	return Endpoint{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Add validates and appends an endpoint.
func (r *Registry) Add(ep Endpoint) error {
	if err := ep.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(ep.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, ep.ID)
	}
	next := append(r.cloneLocked(), ep)
	if err := writeFile(r.path, next); err != nil {
		return err
	}
	r.endpoints = next
	logging.Info("endpoint added", logging.String("id", ep.ID), logging.String("name", ep.Name))
	return nil
}

// Update replaces the endpoint sharing ep.ID. A hidden invalid entry can be
// repaired this way.
func (r *Registry) Update(ep Endpoint) error {
	if err := ep.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(ep.ID)
	if idx < 0 {
		logging.Warn("update of unknown endpoint", logging.String("id", ep.ID))
		return fmt.Errorf("%w: %s", ErrNotFound, ep.ID)
	}
	next := r.cloneLocked()
	next[idx] = ep
	if err := writeFile(r.path, next); err != nil {
		return err
	}
	r.endpoints = next
	logging.Info("endpoint updated", logging.String("id", ep.ID), logging.String("name", ep.Name))
	return nil
}

// Remove deletes the endpoint and then runs the removal hooks.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := r.endpoints[idx]
	next := make([]Endpoint, 0, len(r.endpoints)-1)
	next = append(next, r.endpoints[:idx]...)
	next = append(next, r.endpoints[idx+1:]...)
	if err := writeFile(r.path, next); err != nil {
		r.mu.Unlock()
		return err
	}
	r.endpoints = next
	hooks := slices.Clone(r.onRemove)
	r.mu.Unlock()

	logging.Info("endpoint removed", logging.String("id", removed.ID), logging.String("name", removed.Name))
	for _, hook := range hooks {
		hook(removed)
	}
	return nil
}

// Move shifts an endpoint delta places within the listed order, negative
// towards the front. The shift stops at either end.
func (r *Registry) Move(id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 || r.endpoints[idx].Validate() != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	step := 1
	if delta < 0 {
		step, delta = -1, -delta
	}
	target := idx
	for ; delta > 0; delta-- {
		next := target + step
		for next >= 0 && next < len(r.endpoints) && r.endpoints[next].Validate() != nil {
			next += step
		}
		if next < 0 || next >= len(r.endpoints) {
			break
		}
		target = next
	}
	if target == idx {
		return nil
	}

	ep := r.endpoints[idx]
	next := slices.Delete(r.cloneLocked(), idx, idx+1)
	next = slices.Insert(next, target, ep)
	if err := writeFile(r.path, next); err != nil {
		return err
	}
	r.endpoints = next
	logging.Info("endpoint moved",
		logging.String("id", ep.ID),
		logging.String("name", ep.Name),
		logging.Int("position", target))
	return nil
}

// OnRemove registers fn to run after an endpoint has been removed and persisted.
func (r *Registry) OnRemove(fn func(Endpoint)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.onRemove = append(r.onRemove, fn)
	r.mu.Unlock()
}

// Watch reloads the registry whenever the backing file is written by another
// process. It blocks until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(r.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Reload(); err != nil {
				logging.Warn("endpoint registry reload failed", logging.Err(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("endpoint registry watch error", logging.Err(err))
		}
	}
}

func (r *Registry) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, ep := range r.endpoints {
		if ep.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) cloneLocked() []Endpoint {
	out := make([]Endpoint, len(r.endpoints), len(r.endpoints)+1)
	copy(out, r.endpoints)
	return out
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func readFile(path string) ([]Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read endpoints: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc fileFormat
	if isYAML(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = toml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse endpoints: %w", err)
	}

	for _, ep := range doc.Endpoints {
		if err := ep.Validate(); err != nil {
			logging.Warn("hiding invalid endpoint",
				logging.String("id", ep.ID),
				logging.String("name", ep.Name),
				logging.String("path", path),
				logging.Err(err))
		}
	}
	return doc.Endpoints, nil
}

func writeFile(path string, endpoints []Endpoint) error {
	doc := fileFormat{Endpoints: endpoints}
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = toml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("marshal endpoints: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create endpoints dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".endpoints-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write endpoints: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync endpoints: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close endpoints: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename endpoints: %w", err)
	}
	return nil
}
