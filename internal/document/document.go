// Package document presents a cached remote program as an editable document.
//
// A Document is bound to exactly one (endpoint, program) pair for its whole
// lifetime. Writes only touch the local buffer; Flush pushes the buffer to the
// endpoint and adopts the server's canonical copy on success. A failed flush
// leaves the buffer and the dirty flag as they were.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/logging"
	"github.com/five82/remedit/internal/remote"
)

// Saver writes a program to its endpoint and returns the canonical copy.
type Saver interface {
	SaveProgram(ctx context.Context, p remote.Program) (remote.Program, error)
}

// Recorder receives the canonical copy after a successful save.
type Recorder interface {
	RecordSave(endpointID string, p remote.Program)
}

// Handle is the surface an editing host needs.
type Handle interface {
	Read() []byte
	Write(b []byte)
	Flush(ctx context.Context) error
	Name() string
}

var _ Handle = (*Document)(nil)

// Document is safe for concurrent use by the UI and a background flush.
type Document struct {
	endpoint endpoint.Endpoint
	saver    Saver
	recorder Recorder

	mu       sync.RWMutex
	program  remote.Program
	buffer   []byte
	saved    []byte
	modCount uint64
}

// New binds a document to ep and p. The initial buffer is p's content, or
// empty when p has not been fetched.
func New(ep endpoint.Endpoint, p remote.Program, saver Saver, rec Recorder) *Document {
	d := &Document{
		endpoint: ep,
		saver:    saver,
		recorder: rec,
	}
	d.load(p)
	return d
}

func (d *Document) load(p remote.Program) {
	d.program = p.Clone()
	d.buffer = []byte(p.ContentString())
	d.saved = bytes.Clone(d.buffer)
}

// Read returns a copy of the current buffer.
func (d *Document) Read() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return bytes.Clone(d.buffer)
}

// Reader returns a reader over a snapshot of the buffer.
func (d *Document) Reader() io.Reader {
	return bytes.NewReader(d.Read())
}

// Write replaces the buffer. Nothing is sent until Flush.
func (d *Document) Write(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = bytes.Clone(b)
	d.program = d.program.WithContent(string(b))
	d.modCount++
}

// Flush saves the buffer to the endpoint. On success the document adopts the
// canonical program and the cache is updated; on failure the error is
// returned unchanged and the buffer is kept.
func (d *Document) Flush(ctx context.Context) error {
	if d.saver == nil {
		return fmt.Errorf("document %s has no saver", d.Name())
	}

	d.mu.RLock()
	pending := d.program.Clone()
	sent := bytes.Clone(d.buffer)
	d.mu.RUnlock()

	saved, err := d.saver.SaveProgram(ctx, pending)
	if err != nil {
		logging.Warn("save failed",
			logging.String("document", d.Name()),
			logging.Err(err))
		return err
	}
	saved, err = bindSaved(d.endpoint.Name, pending, saved)
	if err != nil {
		logging.Warn("save response rejected",
			logging.String("document", d.Name()),
			logging.Err(err))
		return err
	}

	// Without echoed content, what was sent is what the server holds.
	content := sent
	if saved.HasContent() {
		content = []byte(saved.ContentString())
	}
	canonical := saved.WithContent(string(content))

	d.mu.Lock()
	// Edits made while the save was in flight stay in the buffer.
	edited := !bytes.Equal(d.buffer, sent)
	d.saved = content
	if edited {
		d.program = canonical.WithContent(string(d.buffer))
	} else {
		d.buffer = bytes.Clone(content)
		d.program = canonical.Clone()
	}
	d.modCount++
	d.mu.Unlock()

	if d.recorder != nil {
		d.recorder.RecordSave(d.endpoint.ID, canonical)
	}
	logging.Info("document saved",
		logging.String("document", d.Name()),
		logging.Int64("last_modified", saved.LastModified))
	return nil
}

// bindSaved keeps the document's identity when the server's copy omits it.
// A copy naming a different program is rejected.
func bindSaved(endpointName string, pending, saved remote.Program) (remote.Program, error) {
	if saved.ID != "" && saved.ID != pending.ID {
		return remote.Program{}, &remote.ProtocolError{
			Endpoint: endpointName,
			URL:      path.Join("/api", endpointName, pending.FullName()),
			Reason:   fmt.Sprintf("saved program id %q does not match %q", saved.ID, pending.ID),
		}
	}
	saved.ID = pending.ID
	if saved.Name == "" {
		saved.Name = pending.Name
	}
	if saved.Extension == "" {
		saved.Extension = pending.Extension
	}
	return saved, nil
}

// Replace reloads the document from a fresh fetch of the same program.
func (d *Document) Replace(p remote.Program) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID != d.program.ID {
		return fmt.Errorf("replace %s: program id %q does not match %q", d.endpoint.Name, p.ID, d.program.ID)
	}
	d.load(p)
	d.modCount++
	return nil
}

// Name is the display name, "<full name> @ <endpoint name>".
func (d *Document) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.program.FullName() + " @ " + d.endpoint.Name
}

// Path is the virtual path, "/api/<endpoint name>/<full name>".
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return path.Join("/api", d.endpoint.Name, d.program.FullName())
}

// Key identifies the document by endpoint and program id.
func (d *Document) Key() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Key(d.endpoint.ID, d.program.ID)
}

// Key builds the document key for an endpoint and program.
func Key(endpointID, programID string) string {
	return endpointID + ":" + programID
}

// ModCount increases on every write, successful flush and replace.
func (d *Document) ModCount() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modCount
}

// Dirty reports whether the buffer differs from the last loaded or saved content.
func (d *Document) Dirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !bytes.Equal(d.buffer, d.saved)
}

// Program returns a copy of the bound program, content reflecting the buffer.
func (d *Document) Program() remote.Program {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.program.Clone()
}

// Endpoint returns the bound endpoint.
func (d *Document) Endpoint() endpoint.Endpoint {
	return d.endpoint
}

// LastModified is the program's advisory server timestamp.
func (d *Document) LastModified() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.program.ModifiedAt()
}

// Len is the buffer size in bytes.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.buffer)
}
