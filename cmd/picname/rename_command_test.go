package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"picname/internal/dirlock"
	"picname/internal/services"
	"picname/internal/testsupport"
)

func TestRenamePreviewLeavesFilesAlone(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("A red fox"))
	testsupport.WriteImages(t, env.imageDir, "cat.jpg", "dog.png", "notes.txt")

	stdout, _, err := runCLI(t, nil, env.configPath)
	if err != nil {
		t.Fatalf("picname returned error: %v", err)
	}
	requireContains(t, stdout, "cat.jpg -> A_red_fox.jpg")
	requireContains(t, stdout, "dog.png -> A_red_fox.png")
	requireContains(t, stdout, "Would rename")
	requireContains(t, stdout, "--apply")
	requireContains(t, stdout, "skipped  notes.txt (not_image)")

	got := testsupport.ListDir(t, env.imageDir)
	want := []string{"cat.jpg", "dog.png", "notes.txt"}
	if !slices.Equal(got, want) {
		t.Fatalf("preview changed directory: got %v want %v", got, want)
	}
	if env.server.Calls() != 2 {
		t.Fatalf("expected 2 inference calls, got %d", env.server.Calls())
	}
}

func TestRenameApplyRenamesFiles(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("sunset over water"))
	testsupport.WriteImages(t, env.imageDir, "IMG_0001.JPG", "IMG_0002.jpg")

	stdout, _, err := runCLI(t, []string{"--apply"}, env.configPath)
	if err != nil {
		t.Fatalf("picname --apply returned error: %v", err)
	}
	requireContains(t, stdout, "applied")

	got := testsupport.ListDir(t, env.imageDir)
	want := []string{"sunset_over_water.jpg", "sunset_over_water_1.jpg"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected directory after apply: got %v want %v", got, want)
	}
}

func TestRenameApplyModeFromConfig(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("harbor"), testsupport.WithApplyMode())
	testsupport.WriteImages(t, env.imageDir, "a.webp")

	if _, _, err := runCLI(t, nil, env.configPath); err != nil {
		t.Fatalf("picname returned error: %v", err)
	}
	got := testsupport.ListDir(t, env.imageDir)
	if !slices.Equal(got, []string{"harbor.webp"}) {
		t.Fatalf("expected config apply mode to rename, got %v", got)
	}
}

func TestRenameJSONReport(t *testing.T) {
	env := setupCLITestEnv(t, func(call int) (string, int) {
		return "", http.StatusUnauthorized
	})
	testsupport.WriteImages(t, env.imageDir, "cat.jpg", "readme.md")

	stdout, _, err := runCLI(t, []string{"--json"}, env.configPath)
	if err != nil {
		t.Fatalf("picname --json returned error: %v", err)
	}

	var report batchReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode json report: %v\n%s", err, stdout)
	}
	if report.Mode != "preview" || report.Renamed != 0 || report.Failed != 1 || report.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.RunID == "" {
		t.Fatal("expected run id in report")
	}
	var failed *planReport
	for i := range report.Plans {
		if report.Plans[i].Status == "failed" {
			failed = &report.Plans[i]
		}
	}
	if failed == nil || failed.Reason != "inference" || failed.Error == "" {
		t.Fatalf("expected inference failure plan, got %+v", report.Plans)
	}
}

func TestRenameInDirOverride(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("mountain lake"))
	other := filepath.Join(t.TempDir(), "elsewhere")
	testsupport.WriteImages(t, other, "x.png")

	stdout, _, err := runCLI(t, []string{"--in-dir", other, "--apply"}, env.configPath)
	if err != nil {
		t.Fatalf("picname --in-dir returned error: %v", err)
	}
	requireContains(t, stdout, "mountain_lake.png")
	if got := testsupport.ListDir(t, other); !slices.Equal(got, []string{"mountain_lake.png"}) {
		t.Fatalf("unexpected directory: %v", got)
	}
}

func TestRenameMissingDirectoryFails(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("unused"))
	missing := filepath.Join(t.TempDir(), "nope")

	_, _, err := runCLI(t, []string{"--in-dir", missing}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if !errors.Is(err, services.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
	if env.server.Calls() != 0 {
		t.Fatalf("expected no inference calls, got %d", env.server.Calls())
	}
}

func TestRenameMissingDirectoryReportedBeforeLock(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("unused"))
	missing := filepath.Join(t.TempDir(), "gone")

	lock, err := dirlock.Acquire(env.cfg.LockDir(), missing)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	_, _, err = runCLI(t, []string{"--in-dir", missing}, env.configPath)
	if !errors.Is(err, services.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
	if errors.Is(err, dirlock.ErrHeld) {
		t.Fatalf("lock error reported ahead of missing directory: %v", err)
	}
}

func TestRenameRejectsHeldLock(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("unused"))
	testsupport.WriteImages(t, env.imageDir, "a.png")

	lock, err := dirlock.Acquire(env.cfg.LockDir(), env.imageDir)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	_, _, err = runCLI(t, []string{"--apply"}, env.configPath)
	if !errors.Is(err, dirlock.ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	if got := testsupport.ListDir(t, env.imageDir); !slices.Equal(got, []string{"a.png"}) {
		t.Fatalf("expected directory untouched, got %v", got)
	}
}

func TestRenameRejectsZeroWorkers(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("unused"))
	_, _, err := runCLI(t, []string{"--workers", "0"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--workers") {
		t.Fatalf("expected workers validation error, got %v", err)
	}
}

func TestRenameRejectsTooManyWorkers(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("unused"))
	testsupport.WriteImages(t, env.imageDir, "a.png")

	_, _, err := runCLI(t, []string{"--workers", "1000"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--workers must be between 1 and 32") {
		t.Fatalf("expected workers validation error, got %v", err)
	}
	if env.server.Calls() != 0 {
		t.Fatalf("expected no inference calls, got %d", env.server.Calls())
	}
}

func TestRenameUsesCache(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StaticAnswer("old bicycle"), testsupport.WithCache())
	testsupport.WriteImages(t, env.imageDir, "bike.jpg")

	if _, _, err := runCLI(t, nil, env.configPath); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stdout, _, err := runCLI(t, nil, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, stdout, "[cached]")
	if env.server.Calls() != 1 {
		t.Fatalf("expected cache to avoid second inference call, got %d calls", env.server.Calls())
	}

	if _, _, err := runCLI(t, []string{"--no-cache"}, env.configPath); err != nil {
		t.Fatalf("no-cache run: %v", err)
	}
	if env.server.Calls() != 2 {
		t.Fatalf("expected --no-cache to call the model, got %d calls", env.server.Calls())
	}
}

func TestRenameSendsBatchNotification(t *testing.T) {
	bodies := make(chan string, 1)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- r.Header.Get("Title") + "|" + string(body)
	}))
	t.Cleanup(ntfy.Close)

	env := setupCLITestEnv(t, testsupport.StaticAnswer("paper boat"), testsupport.WithNtfyTopic(ntfy.URL))
	testsupport.WriteImages(t, env.imageDir, "boat.png")

	if _, _, err := runCLI(t, []string{"--apply"}, env.configPath); err != nil {
		t.Fatalf("picname --apply returned error: %v", err)
	}
	select {
	case got := <-bodies:
		requireContains(t, got, "picname - Batch Finished|Renamed 1, failed 0, skipped 0")
	default:
		t.Fatal("expected a batch notification")
	}
}
