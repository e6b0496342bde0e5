package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/remedit/internal/credential"
	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/session"
	"github.com/five82/remedit/internal/workspace"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := time.Minute

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, time.Minute},
		{"negative failures", -1, time.Minute},
		{"one failure", 1, 2 * time.Minute},
		{"two failures", 2, 4 * time.Minute},
		{"four failures", 4, 16 * time.Minute},
		{"five failures capped", 5, 30 * time.Minute}, // Would be 32m
		{"many failures capped", 40, 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 64; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff || got <= 0 {
			t.Errorf("calculateBackoff(%d, %v) = %v, outside (0, %v]", failures, baseInterval, got, maxBackoff)
		}
	}
}

func newPollerWorkspace(t *testing.T, handler http.Handler) *workspace.Workspace {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	reg, err := endpoint.Open(filepath.Join(t.TempDir(), "endpoints.toml"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	if err := reg.Add(endpoint.New("local", srv.URL, "")); err != nil {
		t.Fatalf("add endpoint: %v", err)
	}
	return workspace.New(reg, credential.NewMemory(), session.New(), workspace.Options{})
}

func TestStartPoller_RefreshesCache(t *testing.T) {
	var calls atomic.Int32
	ws := newPollerWorkspace(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"programs":[{"id":"p1","name":"a","extension":"py","lastModified":1}]}`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartPoller(ctx, ws, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller made %d calls, want at least 2", calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	ep := ws.Endpoints()[0]
	if got := len(ws.Programs(ep.ID)); got != 1 {
		t.Fatalf("cached programs = %d, want 1", got)
	}
}

func TestStartPoller_DisabledWithoutInterval(t *testing.T) {
	var calls atomic.Int32
	ws := newPollerWorkspace(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartPoller(ctx, ws, 0)
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("disabled poller made %d calls", calls.Load())
	}
}

func TestRefresh_ReportsTotalFailure(t *testing.T) {
	ws := newPollerWorkspace(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	if refresh(context.Background(), ws) {
		t.Fatalf("refresh should report failure when every endpoint fails")
	}
	ep := ws.Endpoints()[0]
	if st := ws.Cache().Status(ep.ID); st.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", st.ConsecutiveFailures)
	}
}
