package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/remedit/internal/credential"
	"github.com/five82/remedit/internal/endpoint"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, username, password string, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ep := endpoint.New("test", server.URL+"/", username)
	creds := credential.NewMemory()
	if password != "" {
		if err := creds.SetPassword(ep.ID, password); err != nil {
			t.Fatalf("SetPassword returned error: %v", err)
		}
	}
	c, err := NewClient(ep, creds, opts...)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_TrimsAndValidates(t *testing.T) {
	base, err := parseBaseURL("https://api.example.com/programs/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if base != "https://api.example.com/programs" {
		t.Fatalf("base = %q, want https://api.example.com/programs", base)
	}

	for _, raw := range []string{"", "ftp://example.com", "example.com", "http://"} {
		if _, err := parseBaseURL(raw); err == nil {
			t.Fatalf("parseBaseURL(%q) expected error", raw)
		}
	}
}

func TestListPrograms_SendsBasicAuthAndDecodes(t *testing.T) {
	t.Parallel()

	var gotAuth, gotPath, gotAccept, gotContentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{"programs":[{"id":"42","name":"hello","extension":"py","lastModified":1000,"extra":true}]}`)
	}, "bob", "secret")

	programs, err := c.ListPrograms(testContext(t))
	if err != nil {
		t.Fatalf("ListPrograms returned error: %v", err)
	}
	if gotAuth != "Basic Ym9iOnNlY3JldA==" {
		t.Fatalf("Authorization = %q, want Basic Ym9iOnNlY3JldA==", gotAuth)
	}
	if gotPath != "/" {
		t.Fatalf("path = %q, want /", gotPath)
	}
	if gotAccept != "application/json" || gotContentType != "application/json" {
		t.Fatalf("headers Accept=%q Content-Type=%q, want application/json", gotAccept, gotContentType)
	}
	if len(programs) != 1 {
		t.Fatalf("len(programs) = %d, want 1", len(programs))
	}
	p := programs[0]
	if p.ID != "42" || p.FullName() != "hello.py" || p.LastModified != 1000 {
		t.Fatalf("program = %#v, want id=42 hello.py lastModified=1000", p)
	}
	if p.HasContent() {
		t.Fatalf("list entry should not carry content")
	}
}

func TestListPrograms_OmitsAuthWithoutPassword(t *testing.T) {
	t.Parallel()

	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"programs":[]}`)
	}, "bob", "")

	programs, err := c.ListPrograms(testContext(t))
	if err != nil {
		t.Fatalf("ListPrograms returned error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Authorization = %q, want empty", gotAuth)
	}
	if len(programs) != 0 {
		t.Fatalf("len(programs) = %d, want 0", len(programs))
	}
}

func TestListPrograms_MissingEnvelopeIsProtocolError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[]}`)
	}, "", "")

	_, err := c.ListPrograms(testContext(t))
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if !strings.Contains(protoErr.Reason, "programs") {
		t.Fatalf("reason = %q, want mention of programs", protoErr.Reason)
	}
}

func TestListPrograms_InvalidJSONIsProtocolError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	}, "", "")

	_, err := c.ListPrograms(testContext(t))
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
}

func TestGetProgram_EscapesIDAndReturnsContent(t *testing.T) {
	t.Parallel()

	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"program":{"id":"a b","name":"hello","extension":".py","content":"print(1)","lastModified":1000}}`)
	}, "", "")

	p, err := c.GetProgram(testContext(t), "a b")
	if err != nil {
		t.Fatalf("GetProgram returned error: %v", err)
	}
	if gotPath != "/a%20b" {
		t.Fatalf("path = %q, want /a%%20b", gotPath)
	}
	if p.ContentString() != "print(1)" {
		t.Fatalf("content = %q, want print(1)", p.ContentString())
	}
	if p.FullName() != "hello.py" {
		t.Fatalf("FullName = %q, want hello.py", p.FullName())
	}

	if _, err := c.GetProgram(testContext(t), " "); err == nil {
		t.Fatalf("GetProgram with empty id expected error")
	}
}

func TestGetProgram_StatusErrorCarriesBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "  no such program \n")
	}, "", "")

	_, err := c.GetProgram(testContext(t), "99")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "no such program" {
		t.Fatalf("api error = %#v, want 404 with trimmed message", apiErr)
	}
	if apiErr.Kind() != KindNotFound {
		t.Fatalf("Kind = %v, want KindNotFound", apiErr.Kind())
	}
}

func TestSaveProgram_PutsContentAndReturnsCanonical(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_, _ = io.WriteString(w, `{"program":{"id":"42","name":"hello","extension":"py","content":"print(2)","lastModified":1001}}`)
	}, "bob", "secret")

	p := Program{ID: "42", Name: "hello", Extension: "py"}.WithContent("print(2)")
	saved, err := c.SaveProgram(testContext(t), p)
	if err != nil {
		t.Fatalf("SaveProgram returned error: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/42" {
		t.Fatalf("request = %s %s, want PUT /42", gotMethod, gotPath)
	}
	if gotBody != `{"content":"print(2)"}` {
		t.Fatalf("body = %q, want {\"content\":\"print(2)\"}", gotBody)
	}
	if saved.LastModified != 1001 || saved.ContentString() != "print(2)" {
		t.Fatalf("saved = %#v, want lastModified=1001 content=print(2)", saved)
	}
}

func TestFetchProgram_BindsRequestedID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/42":
			_, _ = io.WriteString(w, `{"program":{"lastModified":1001}}`)
		default:
			_, _ = io.WriteString(w, `{"program":{"id":"other","name":"x"}}`)
		}
	}, "", "")

	saved, err := c.SaveProgram(testContext(t), Program{ID: "42", Name: "hello"}.WithContent("x"))
	if err != nil {
		t.Fatalf("SaveProgram returned error: %v", err)
	}
	if saved.ID != "42" {
		t.Fatalf("saved.ID = %q, want 42", saved.ID)
	}

	_, err = c.GetProgram(testContext(t), "7")
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if !strings.Contains(protoErr.Reason, "does not match") {
		t.Fatalf("reason = %q", protoErr.Reason)
	}
}

func TestSaveProgram_UnauthorizedIsAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "bob", "wrong")

	_, err := c.SaveProgram(testContext(t), Program{ID: "42"}.WithContent("x"))
	if StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("StatusCode(err) = %d, want 401 (err=%v)", StatusCode(err), err)
	}
	if !strings.Contains(Hint(err), "Authentication failed") {
		t.Fatalf("Hint = %q, want authentication guidance", Hint(err))
	}
}

func TestClient_TransportErrorOnClosedServer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	ep := endpoint.New("gone", server.URL, "")
	server.Close()

	c, err := NewClient(ep, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.ListPrograms(testContext(t))
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if transport.Endpoint != "gone" {
		t.Fatalf("endpoint = %q, want gone", transport.Endpoint)
	}
	if !strings.Contains(Hint(err), "offline or unreachable") {
		t.Fatalf("Hint = %q, want connectivity guidance", Hint(err))
	}
}

func TestClient_TimeoutIsTransportError(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, "", "", WithTimeout(50*time.Millisecond))
	t.Cleanup(func() { close(release) })

	_, err := c.ListPrograms(testContext(t))
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if !transport.Timeout() {
		t.Fatalf("Timeout() = false, want true (err=%v)", err)
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	ops   []string
	fails int
}

func (o *recordingObserver) ObserveRequest(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	if err != nil {
		o.fails++
	}
}

func TestClient_ReportsToObserver(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = io.WriteString(w, `{"programs":[]}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}, "", "", WithObserver(obs), WithUserAgent("remedit-test"))

	ctx := testContext(t)
	if _, err := c.ListPrograms(ctx); err != nil {
		t.Fatalf("ListPrograms returned error: %v", err)
	}
	if _, err := c.GetProgram(ctx, "1"); err == nil {
		t.Fatalf("GetProgram expected error")
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if strings.Join(obs.ops, ",") != "list,get" {
		t.Fatalf("ops = %v, want [list get]", obs.ops)
	}
	if obs.fails != 1 {
		t.Fatalf("fails = %d, want 1", obs.fails)
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		name, ext, want string
	}{
		{"hello", "py", "hello.py"},
		{"hello", ".py", "hello.py"},
		{"hello", "", "hello"},
		{"archive.tar", "gz", "archive.tar.gz"},
	}
	for _, tt := range tests {
		got := Program{Name: tt.name, Extension: tt.ext}.FullName()
		if got != tt.want {
			t.Fatalf("FullName(%q, %q) = %q, want %q", tt.name, tt.ext, got, tt.want)
		}
	}
}

func TestProgram_EqualIgnoresContent(t *testing.T) {
	a := Program{ID: "1", Name: "a", Extension: "py", LastModified: 5}.WithContent("x")
	b := Program{ID: "1", Name: "a", Extension: "py", LastModified: 5}
	if !a.Equal(b) {
		t.Fatalf("Equal = false, want true when only content differs")
	}
	b.LastModified = 6
	if a.Equal(b) {
		t.Fatalf("Equal = true, want false when lastModified differs")
	}

	clone := a.Clone()
	*clone.Content = "y"
	if a.ContentString() != "x" {
		t.Fatalf("Clone shares content with original")
	}
}
