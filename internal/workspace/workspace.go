// Package workspace wires the endpoint registry, credential store, remote
// client and program cache into the connect, refresh, open and save flows
// used by the UI and the CLI.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/five82/remedit/internal/credential"
	"github.com/five82/remedit/internal/document"
	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/logging"
	"github.com/five82/remedit/internal/remote"
	"github.com/five82/remedit/internal/session"
)

// ClientFactory builds the program client for an endpoint.
type ClientFactory func(ep endpoint.Endpoint, creds credential.Getter, opts ...remote.Option) (remote.Fetcher, error)

// DefaultClientFactory returns a *remote.Client.
func DefaultClientFactory(ep endpoint.Endpoint, creds credential.Getter, opts ...remote.Option) (remote.Fetcher, error) {
	return remote.NewClient(ep, creds, opts...)
}

// Options configures a Workspace.
type Options struct {
	ClientOptions []remote.Option
	NewClient     ClientFactory
	// MaxConcurrentRefresh bounds RefreshAll; zero means unbounded.
	MaxConcurrentRefresh int
}

// Workspace is the explicitly constructed context shared by every flow.
type Workspace struct {
	registry *endpoint.Registry
	creds    credential.Store
	cache    *session.Cache
	opts     Options

	mu   sync.Mutex
	docs map[string]*document.Document
}

// New builds a workspace and registers its removal hook on reg.
func New(reg *endpoint.Registry, creds credential.Store, cache *session.Cache, opts Options) *Workspace {
	if creds == nil {
		creds = credential.NewMemory()
	}
	if cache == nil {
		cache = session.New()
	}
	if opts.NewClient == nil {
		opts.NewClient = DefaultClientFactory
	}
	w := &Workspace{
		registry: reg,
		creds:    creds,
		cache:    cache,
		opts:     opts,
		docs:     make(map[string]*document.Document),
	}
	reg.OnRemove(w.endpointRemoved)
	return w
}

// Registry returns the endpoint registry.
func (w *Workspace) Registry() *endpoint.Registry { return w.registry }

// Credentials returns the credential store.
func (w *Workspace) Credentials() credential.Store { return w.creds }

// Cache returns the program cache.
func (w *Workspace) Cache() *session.Cache { return w.cache }

// Endpoints lists the configured endpoints.
func (w *Workspace) Endpoints() []endpoint.Endpoint {
	return w.registry.List()
}

// Endpoint resolves an endpoint by id or name.
func (w *Workspace) Endpoint(ref string) (endpoint.Endpoint, error) {
	return w.registry.Resolve(ref)
}

func (w *Workspace) client(ep endpoint.Endpoint) (remote.Fetcher, error) {
	c, err := w.opts.NewClient(ep, w.creds, w.opts.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("client for %s: %w", ep.Name, err)
	}
	return c, nil
}

// Connect lists an endpoint's programs. The cache is only updated on success.
func (w *Workspace) Connect(ctx context.Context, endpointID string) ([]remote.Program, error) {
	ep, err := w.registry.Get(endpointID)
	if err != nil {
		return nil, err
	}
	return w.connect(ctx, ep)
}

func (w *Workspace) connect(ctx context.Context, ep endpoint.Endpoint) ([]remote.Program, error) {
	c, err := w.client(ep)
	if err != nil {
		return nil, err
	}
	programs, err := c.ListPrograms(ctx)
	if err != nil {
		w.cache.RecordListError(ep.ID, err)
		return nil, err
	}
	w.cache.RecordList(ep.ID, programs)
	logging.Info("endpoint connected",
		logging.String("endpoint", ep.Name),
		logging.Int("programs", len(programs)))
	return programs, nil
}

// RefreshAll lists every endpoint concurrently. Successful endpoints are
// recorded and returned even when others fail; failures are joined.
func (w *Workspace) RefreshAll(ctx context.Context) (map[string][]remote.Program, error) {
	endpoints := w.registry.List()

	var (
		mu      sync.Mutex
		results = make(map[string][]remote.Program, len(endpoints))
		errs    []error
	)
	g, gctx := errgroup.WithContext(ctx)
	if w.opts.MaxConcurrentRefresh > 0 {
		g.SetLimit(w.opts.MaxConcurrentRefresh)
	}
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			programs, err := w.connect(gctx, ep)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", ep.Name, err))
				return nil
			}
			results[ep.ID] = programs
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return results, errors.Join(errs...)
}

// Open fetches a program and returns its document. An already open document
// for the same program is reloaded in place and returned.
func (w *Workspace) Open(ctx context.Context, endpointID, programID string) (*document.Document, error) {
	ep, err := w.registry.Get(endpointID)
	if err != nil {
		return nil, err
	}
	c, err := w.client(ep)
	if err != nil {
		return nil, err
	}
	p, err := c.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	switch p.ID {
	case "":
		p.ID = programID
	case programID:
	default:
		return nil, &remote.ProtocolError{
			Endpoint: ep.Name,
			URL:      ep.URL,
			Reason:   fmt.Sprintf("fetched program id %q does not match %q", p.ID, programID),
		}
	}
	w.cache.RecordFetch(ep.ID, p)

	key := document.Key(ep.ID, p.ID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if doc, ok := w.docs[key]; ok {
		if err := doc.Replace(p); err != nil {
			return nil, err
		}
		return doc, nil
	}
	doc := document.New(ep, p, c, w.cache)
	w.docs[key] = doc
	logging.Debug("document opened", logging.String("document", doc.Name()))
	return doc, nil
}

// Save flushes a document.
func (w *Workspace) Save(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return errors.New("no document")
	}
	return doc.Flush(ctx)
}

// Document returns the open document for key.
func (w *Workspace) Document(key string) (*document.Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[key]
	return doc, ok
}

// Documents returns the open documents ordered by key.
func (w *Workspace) Documents() []*document.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]string, 0, len(w.docs))
	for k := range w.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*document.Document, 0, len(keys))
	for _, k := range keys {
		out = append(out, w.docs[k])
	}
	return out
}

// Close forgets an open document. A flush already in flight completes.
func (w *Workspace) Close(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, key)
}

// Lookup reads the cache without I/O.
func (w *Workspace) Lookup(endpointID, programID string) (remote.Program, bool) {
	return w.cache.Lookup(endpointID, programID)
}

// Programs returns the cached programs of an endpoint.
func (w *Workspace) Programs(endpointID string) []remote.Program {
	return w.cache.Programs(endpointID)
}

func (w *Workspace) endpointRemoved(ep endpoint.Endpoint) {
	if err := w.creds.ClearPassword(ep.ID); err != nil {
		logging.Warn("clear password failed", logging.String("endpoint", ep.Name), logging.Err(err))
	}
	w.cache.Forget(ep.ID)

	w.mu.Lock()
	for key, doc := range w.docs {
		if doc.Endpoint().ID == ep.ID {
			delete(w.docs, key)
		}
	}
	w.mu.Unlock()
}
