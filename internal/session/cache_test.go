package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/five82/remedit/internal/remote"
)

func program(id, name, ext string) remote.Program {
	return remote.Program{ID: id, Name: name, Extension: ext, LastModified: 1000}
}

func TestCache_RecordListReplacesOnlyThatEndpoint(t *testing.T) {
	var c Cache

	c.RecordList("a", []remote.Program{program("1", "one", "py"), program("2", "two", "py")})
	c.RecordList("b", []remote.Program{program("9", "nine", "")})
	c.RecordList("a", []remote.Program{program("3", "three", "py")})

	if _, ok := c.Lookup("a", "1"); ok {
		t.Fatalf("Lookup(a,1) found stale entry after replacing list")
	}
	if _, ok := c.Lookup("a", "3"); !ok {
		t.Fatalf("Lookup(a,3) missing after RecordList")
	}
	if _, ok := c.Lookup("b", "9"); !ok {
		t.Fatalf("Lookup(b,9) missing; other endpoint should be untouched")
	}

	endpoints, programs := c.Stats()
	if endpoints != 2 || programs != 2 {
		t.Fatalf("Stats = (%d, %d), want (2, 2)", endpoints, programs)
	}
}

func TestCache_RecordFetchIsIdempotentFullReplacement(t *testing.T) {
	var c Cache

	c.RecordList("ep", []remote.Program{program("42", "hello", "py")})
	fetched := program("42", "hello", "py").WithContent("print(1)")
	c.RecordFetch("ep", fetched)
	c.RecordFetch("ep", fetched)

	got, ok := c.Lookup("ep", "42")
	if !ok {
		t.Fatalf("Lookup missing after RecordFetch")
	}
	if got.ContentString() != "print(1)" {
		t.Fatalf("content = %q, want print(1)", got.ContentString())
	}
	if n := len(c.Programs("ep")); n != 1 {
		t.Fatalf("len(Programs) = %d, want 1", n)
	}

	renamed := remote.Program{ID: "42", Name: "renamed", LastModified: 2000}
	c.RecordSave("ep", renamed)
	got, _ = c.Lookup("ep", "42")
	if got.Name != "renamed" || got.Extension != "" || got.HasContent() {
		t.Fatalf("RecordSave merged fields: got %#v", got)
	}
}

func TestCache_LookupReturnsClone(t *testing.T) {
	var c Cache

	c.RecordFetch("ep", program("1", "a", "py").WithContent("orig"))
	got, _ := c.Lookup("ep", "1")
	*got.Content = "mutated"

	again, _ := c.Lookup("ep", "1")
	if again.ContentString() != "orig" {
		t.Fatalf("Lookup should clone content; got %q want orig", again.ContentString())
	}

	if _, ok := c.Lookup("missing", "1"); ok {
		t.Fatalf("Lookup on unknown endpoint returned ok")
	}
}

func TestCache_ProgramsSortedByFullName(t *testing.T) {
	var c Cache

	c.RecordList("ep", []remote.Program{
		program("3", "zeta", "py"),
		program("1", "alpha", "sql"),
		program("2", "alpha", "py"),
	})

	got := c.Programs("ep")
	want := []string{"alpha.py", "alpha.sql", "zeta.py"}
	if len(got) != len(want) {
		t.Fatalf("len(Programs) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].FullName() != want[i] {
			t.Fatalf("Programs[%d] = %q, want %q", i, got[i].FullName(), want[i])
		}
	}
}

func TestCache_ListErrorKeepsPreviousData(t *testing.T) {
	var c Cache

	c.RecordList("ep", []remote.Program{program("1", "a", "py")})
	before := time.Now()
	c.RecordListError("ep", errors.New("boom"))
	c.RecordListError("ep", errors.New("boom again"))

	st := c.Status("ep")
	if st.Programs != 1 {
		t.Fatalf("Programs = %d, want 1 after failed list", st.Programs)
	}
	if st.LastError == nil || st.LastError.Error() != "boom again" {
		t.Fatalf("LastError = %v, want boom again", st.LastError)
	}
	if st.LastRefreshed.Before(before) {
		t.Fatalf("LastRefreshed = %v, want >= %v", st.LastRefreshed, before)
	}
	if !st.IsOffline() {
		t.Fatalf("IsOffline = false after 2 failures")
	}

	c.RecordList("ep", nil)
	st = c.Status("ep")
	if st.LastError != nil || st.ConsecutiveFailures != 0 {
		t.Fatalf("status not reset on success: %#v", st)
	}
}

func TestCache_Forget(t *testing.T) {
	var c Cache

	c.RecordFetch("a", program("1", "x", ""))
	c.RecordFetch("b", program("1", "x", ""))
	c.Forget("a")

	if _, ok := c.Lookup("a", "1"); ok {
		t.Fatalf("Lookup(a,1) found entry after Forget")
	}
	if _, ok := c.Lookup("b", "1"); !ok {
		t.Fatalf("Forget(a) removed endpoint b")
	}
}

func TestCache_ConcurrentWriters(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.RecordFetch("ep", program("1", "x", "").WithContent(string(rune('a'+i))))
			_, _ = c.Lookup("ep", "1")
			_ = c.Programs("ep")
		}(i)
	}
	wg.Wait()

	if _, ok := c.Lookup("ep", "1"); !ok {
		t.Fatalf("Lookup missing after concurrent writes")
	}
}
