package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"picname/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func newChatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckInference_OK(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "ok")
	cfg := config.Default().Inference
	cfg.BaseURL = srv.URL

	result := CheckInference(context.Background(), cfg, time.Second)
	if !result.Passed || !result.Required {
		t.Fatalf("expected required pass, got %+v", result)
	}
	if !strings.Contains(result.Detail, cfg.Model) {
		t.Fatalf("expected model in detail, got %s", result.Detail)
	}
}

func TestCheckInference_ServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	cfg := config.Default().Inference
	cfg.BaseURL = srv.URL

	result := CheckInference(context.Background(), cfg, time.Second)
	if result.Passed {
		t.Fatal("expected failure for 503")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
	if !strings.Contains(result.Detail, "ollama pull") {
		t.Fatalf("expected service hint, got %s", result.Detail)
	}
}

func TestCheckCache(t *testing.T) {
	disabled := CheckCache(context.Background(), config.Cache{})
	if !disabled.Skipped || disabled.Detail != "disabled" {
		t.Fatalf("expected skipped disabled cache, got %+v", disabled)
	}

	path := filepath.Join(t.TempDir(), "cache", "descriptions.db")
	enabled := CheckCache(context.Background(), config.Cache{Enabled: true, Path: path})
	if !enabled.Passed {
		t.Fatalf("expected cache to open, got %+v", enabled)
	}
	if !strings.Contains(enabled.Detail, "0 entries") {
		t.Fatalf("unexpected detail: %s", enabled.Detail)
	}
}

func TestRunAllAndFailed(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "OK.")
	cfg := config.Default()
	cfg.Inference.BaseURL = srv.URL
	cfg.Paths.ImageDir = filepath.Join(t.TempDir(), "missing")
	cfg.Paths.StateDir = t.TempDir()

	results := RunAll(context.Background(), &cfg, time.Second)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[1].Passed {
		t.Fatal("expected missing image dir to fail")
	}
	if Failed(results) {
		t.Fatalf("missing image dir should be advisory, got %+v", results)
	}

	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "absent")
	if !Failed(RunAll(context.Background(), &cfg, time.Second)) {
		t.Fatal("expected missing state dir to fail the run")
	}
}
